package calls

import "time"

// Call mirrors the call record owned by the hosted call source.
//
// It is read-only to this service except through the source's own
// get-or-create / end mutations; fields are never written directly.
//
// NOTE: The source has no native "meeting kind". Scheduled meetings, personal
// rooms, and instant calls are told apart by convention: description content
// and a forward-looking ends_at/starts_at (see Classify).

type Call struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	CreatedByID string     `json:"created_by_id,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`

	// EndedAt is set once by an explicit end action and never cleared.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	Custom  Custom   `json:"custom"`
	Members []Member `json:"members,omitempty"`
}

// Custom carries the convention keys this service writes into the call
// source's open custom bag.
type Custom struct {
	Description string `json:"description,omitempty"`

	// EndsAt is kept as the raw ISO instant string delivered by the source.
	// It may be absent or malformed; parsing happens at classification time.
	EndsAt string `json:"ends_at,omitempty"`

	// DurationMinutes is derived at creation; informational only.
	DurationMinutes int `json:"duration,omitempty"`
}

type Member struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

const (
	CallTypeDefault = "default"
	CallTypeInvited = "invited"

	MemberRoleCallMember = "call_member"

	// DescriptionInstant is the placeholder written for ad-hoc calls.
	// Calls carrying it are never surfaced as upcoming.
	DescriptionInstant = "Instant Meeting"
)

// HasMember reports whether userID appears in the member set.
func (c Call) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// Ended reports whether the call was explicitly ended at the source.
func (c Call) Ended() bool { return c.EndedAt != nil }

// EndsAtTime parses the scheduled end instant from the custom bag.
// ok is false when ends_at is absent or unparsable.
func (c Call) EndsAtTime() (t time.Time, ok bool) {
	if c.Custom.EndsAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, c.Custom.EndsAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Recording is a post-call artifact with a lifecycle independent from calls.
type Recording struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	StartTime string `json:"start_time"`
}

// ItemKind discriminates mixed call/recording listings.
type ItemKind string

const (
	KindCall      ItemKind = "call"
	KindRecording ItemKind = "recording"
)

// ListItem is the tagged union rendered by meeting lists. Exactly one of
// Call/Recording is populated, selected by Kind.
type ListItem struct {
	Kind      ItemKind   `json:"kind"`
	Call      *Call      `json:"call,omitempty"`
	Recording *Recording `json:"recording,omitempty"`
}

func CallItem(c Call) ListItem {
	return ListItem{Kind: KindCall, Call: &c}
}

func RecordingItem(r Recording) ListItem {
	return ListItem{Kind: KindRecording, Recording: &r}
}
