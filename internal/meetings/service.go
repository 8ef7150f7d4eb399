package meetings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"meeting-platform/internal/audit"
	"meeting-platform/internal/calls"
	"meeting-platform/internal/lifecycle"
	"meeting-platform/internal/provider"
)

var (
	ErrValidation = errors.New("meetings: invalid input")
	ErrNotFound   = errors.New("meetings: meeting not found")
	ErrNotAllowed = errors.New("meetings: not allowed to join this meeting")
)

// defaultMeetingLength pads instant meetings with an end time so the
// countdown has something to arm against.
const defaultMeetingLength = time.Hour

// Service implements the meeting use cases on top of a call source.
// All state lives at the source; this layer does validation, access
// checks, countdown wiring and audit logging.
type Service struct {
	source  provider.CallSource
	watch   *lifecycle.Manager
	events  *audit.Service
	rdb   *redis.Client
	log   *slog.Logger
	clock func() time.Time
	link  func(callID string) string
}

type ServiceConfig struct {
	Source provider.CallSource
	Watch  *lifecycle.Manager
	Events *audit.Service
	Redis  *redis.Client
	Logger *slog.Logger

	// MeetingLink builds the public join link for a call id, typically
	// config.Config.MeetingLink. Nil falls back to the bare route.
	MeetingLink func(callID string) string
}

func NewService(cfg ServiceConfig) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	link := cfg.MeetingLink
	if link == nil {
		link = func(callID string) string { return meetingRoutePrefix + callID }
	}
	return &Service{
		source: cfg.Source,
		watch:  cfg.Watch,
		events: cfg.Events,
		rdb:    cfg.Redis,
		log:    log,
		clock:  time.Now,
		link:   link,
	}
}

type CreateRequest struct {
	Description  string
	StartsAt     time.Time
	EndsAt       time.Time
	InviteEmails string
}

type CreateResult struct {
	Call        calls.Call
	MeetingLink string
	Instant     bool
	Invited     []string
}

// Create provisions a meeting at the call source. A blank description
// makes an instant meeting; a described one is a scheduled meeting and
// must end strictly after it starts.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (CreateResult, error) {
	if req.StartsAt.IsZero() {
		return CreateResult{}, fmt.Errorf("%w: please select a date and time", ErrValidation)
	}

	described := req.Description != ""
	endsAt := req.EndsAt
	if endsAt.IsZero() {
		endsAt = req.StartsAt.Add(defaultMeetingLength)
	}
	if described && !endsAt.After(req.StartsAt) {
		return CreateResult{}, fmt.Errorf("%w: end time must be after the start time", ErrValidation)
	}

	var invited []string
	var members []calls.Member
	if described {
		var err error
		invited, err = ParseInviteEmails(req.InviteEmails)
		if err != nil {
			return CreateResult{}, err
		}
		for _, addr := range invited {
			members = append(members, calls.Member{UserID: addr, Role: calls.MemberRoleCallMember})
		}
	}

	description := req.Description
	if description == "" {
		description = calls.DescriptionInstant
	}

	id := uuid.NewString()
	data := provider.CallData{
		StartsAt:        req.StartsAt,
		Description:     description,
		EndsAt:          endsAt,
		DurationMinutes: int(math.Round(endsAt.Sub(req.StartsAt).Minutes())),
		Members:         members,
	}

	call, err := s.source.GetOrCreateCall(ctx, calls.CallTypeDefault, id, data)
	if err != nil {
		return CreateResult{}, fmt.Errorf("create meeting: %w", err)
	}

	s.logCreated(ctx, call.ID, userID, description, invited)

	return CreateResult{
		Call:        call,
		MeetingLink: s.link(call.ID),
		Instant:     !described,
		Invited:     invited,
	}, nil
}

// Get fetches one meeting by id.
func (s *Service) Get(ctx context.Context, callID string) (calls.Call, error) {
	found, err := s.source.QueryCalls(ctx, provider.CallFilter{ID: callID, Limit: 1})
	if err != nil {
		return calls.Call{}, fmt.Errorf("get meeting: %w", err)
	}
	if len(found) == 0 {
		return calls.Call{}, ErrNotFound
	}
	return found[0], nil
}

// Join admits the user into a meeting and arms its countdown watcher.
// Invite-only meetings reject users who are neither members nor the host.
func (s *Service) Join(ctx context.Context, userID, callID string) (calls.Call, error) {
	call, err := s.Get(ctx, callID)
	if err != nil {
		return calls.Call{}, err
	}

	if err := authorize(call, userID); err != nil {
		return calls.Call{}, err
	}

	if err := s.source.JoinCall(ctx, call.Type, call.ID, userID); err != nil {
		return calls.Call{}, fmt.Errorf("join meeting: %w", err)
	}

	s.watch.Start(ctx, call)
	s.logEvent(ctx, audit.EventTypeMeetingJoined, call.ID, userID, "")
	return call, nil
}

// Authorize reports whether the user may take part in the meeting.
// It guards every per-meeting subresource, not just joining: the
// lifecycle notice socket leaks countdown state to anyone who holds it.
func (s *Service) Authorize(ctx context.Context, userID, callID string) error {
	call, err := s.Get(ctx, callID)
	if err != nil {
		return err
	}
	return authorize(call, userID)
}

// authorize admits everyone to open meetings; invite-only meetings
// admit only the host and invited members.
func authorize(call calls.Call, userID string) error {
	if call.Type == calls.CallTypeInvited && call.CreatedByID != userID && !call.HasMember(userID) {
		return ErrNotAllowed
	}
	return nil
}

// Leave drops the user out of the meeting and releases its watcher.
// Leaving is best-effort: the user is already gone, so source failures
// are logged, not surfaced.
func (s *Service) Leave(ctx context.Context, userID, callID string) {
	s.watch.Stop(callID)
	callType := calls.CallTypeDefault
	if call, err := s.Get(ctx, callID); err == nil {
		callType = call.Type
	}
	if err := s.source.LeaveCall(ctx, callType, callID, userID); err != nil {
		s.log.Warn("leave call failed", "call_id", callID, "user_id", userID, "error", err)
	}
	s.logEvent(ctx, audit.EventTypeMeetingLeft, callID, userID, "")
}

// End terminates the meeting for everyone and stops its watcher.
func (s *Service) End(ctx context.Context, userID, callID string) error {
	call, err := s.Get(ctx, callID)
	if err != nil {
		return err
	}
	if err := s.source.EndCall(ctx, call.Type, call.ID); err != nil {
		return fmt.Errorf("end meeting: %w", err)
	}
	s.watch.Stop(call.ID)
	s.logEvent(ctx, audit.EventTypeMeetingEnded, call.ID, userID, "ended by participant")
	return nil
}

// List returns the user's meetings classified into ended and upcoming
// buckets as of now.
func (s *Service) List(ctx context.Context, userID string) (calls.Buckets, error) {
	found, err := s.source.QueryCalls(ctx, provider.CallFilter{
		MemberOrCreatorID: userID,
		ScheduledOnly:     true,
	})
	if err != nil {
		return calls.Buckets{}, fmt.Errorf("list meetings: %w", err)
	}
	return calls.Classify(found, s.clock()), nil
}

// logCreated records the creation and its invitations as one audit
// batch, so the trail never shows invitees without the creation row.
func (s *Service) logCreated(ctx context.Context, callID, userID, description string, invited []string) {
	if s.events == nil {
		return
	}
	events := []audit.Event{{
		Type:        audit.EventTypeMeetingCreated,
		CallID:      callID,
		ActorUserID: userID,
		Message:     description,
	}}
	for _, addr := range invited {
		events = append(events, audit.Event{
			Type:        audit.EventTypeMemberInvited,
			CallID:      callID,
			ActorUserID: userID,
			Message:     addr,
		})
	}
	if err := s.events.AppendAll(ctx, events); err != nil {
		s.log.Warn("audit append failed", "call_id", callID, "event", string(audit.EventTypeMeetingCreated), "error", err)
	}
}

// logEvent appends to the audit trail; failures never break user flows.
func (s *Service) logEvent(ctx context.Context, t audit.EventType, callID, userID, message string) {
	if s.events == nil {
		return
	}
	if err := s.events.LogLifecycle(ctx, t, callID, userID, "", message); err != nil {
		s.log.Warn("audit append failed", "call_id", callID, "event", string(t), "error", err)
	}
}
