package meetings

import (
	"context"
	"fmt"
	"math"
	"time"

	"meeting-platform/internal/audit"
	"meeting-platform/internal/calls"
	"meeting-platform/internal/provider"
)

// The personal room is a per-user standing meeting whose call id is the
// user id itself, so the room link never changes.

type Room struct {
	Call calls.Call
	Link string
}

type RoomRequest struct {
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
}

// PersonalRoom fetches the user's standing room, if it has ever been saved.
func (s *Service) PersonalRoom(ctx context.Context, userID string) (Room, error) {
	call, err := s.Get(ctx, userID)
	if err != nil {
		return Room{}, err
	}
	return Room{Call: call, Link: s.personalRoomLink(userID)}, nil
}

// SaveRoom creates or updates the personal room. Unlike ad-hoc meetings a
// room always has a real description; re-saving while a session is live
// re-arms the countdown against the new end time.
func (s *Service) SaveRoom(ctx context.Context, userID string, req RoomRequest) (Room, error) {
	if req.Description == "" {
		return Room{}, fmt.Errorf("%w: a room description is required", ErrValidation)
	}
	if req.StartsAt.IsZero() {
		return Room{}, fmt.Errorf("%w: please select a date and time", ErrValidation)
	}
	endsAt := req.EndsAt
	if endsAt.IsZero() {
		endsAt = req.StartsAt.Add(defaultMeetingLength)
	}
	if !endsAt.After(req.StartsAt) {
		return Room{}, fmt.Errorf("%w: end time must be after the start time", ErrValidation)
	}

	data := provider.CallData{
		StartsAt:        req.StartsAt,
		Description:     req.Description,
		EndsAt:          endsAt,
		DurationMinutes: int(math.Round(endsAt.Sub(req.StartsAt).Minutes())),
	}
	call, err := s.source.GetOrCreateCall(ctx, calls.CallTypeDefault, userID, data)
	if err != nil {
		return Room{}, fmt.Errorf("save room: %w", err)
	}

	s.watch.Refresh(call)
	s.logEvent(ctx, audit.EventTypeMeetingCreated, call.ID, userID, "personal room saved")
	return Room{Call: call, Link: s.personalRoomLink(userID)}, nil
}

// DeleteRoom ends the room's call at the source. The source keeps the
// record; "deleted" means no live session can continue in it.
func (s *Service) DeleteRoom(ctx context.Context, userID string) error {
	call, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.source.EndCall(ctx, call.Type, call.ID); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	s.watch.Stop(call.ID)
	s.logEvent(ctx, audit.EventTypeRoomDeleted, call.ID, userID, "")
	return nil
}

func (s *Service) personalRoomLink(userID string) string {
	return s.link(userID) + "?personal=true"
}
