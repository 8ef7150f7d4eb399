package audit

import "time"

// Event is an immutable, append-only meeting-event record.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor capture is best-effort; do not block call flows on audit failures.
//
// Storage (Postgres):
// - Table meeting_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE; partition by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the lifecycle moment being recorded.
	Type EventType `json:"type" db:"type"`

	// CallID is the call this event belongs to.
	CallID string `json:"call_id" db:"call_id"`

	// ActorUserID is the authenticated user causing the event, empty for
	// system-initiated events (auto end on expiry).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeMeetingCreated   EventType = "meeting_created"
	EventTypeMemberInvited    EventType = "member_invited"
	EventTypeMeetingJoined    EventType = "meeting_joined"
	EventTypeMeetingLeft      EventType = "meeting_left"
	EventTypeMeetingEnded     EventType = "meeting_ended"
	EventTypeMeetingAutoEnded EventType = "meeting_auto_ended"
	EventTypeRoomDeleted      EventType = "room_deleted"
)
