package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for meeting events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error

	// AppendAll persists related events atomically: all rows or none.
	AppendAll(ctx context.Context, events []Event) error

	ListByCall(ctx context.Context, callID string, limit int) ([]Event, error)
}

// Service logs meeting lifecycle events.
//
// IMPORTANT:
// - Callers treat audit logging as best-effort: a failed append is logged
//   by the caller, never propagated into the user-facing flow.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.CallID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// AppendAll records several events for one lifecycle moment as a unit.
// Any invalid event rejects the whole batch before anything is written.
func (s *Service) AppendAll(ctx context.Context, events []Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if len(events) == 0 {
		return nil
	}

	now := s.clock().UTC()
	filled := make([]Event, len(events))
	for i, e := range events {
		if e.CallID == "" || e.Type == "" {
			return ErrInvalidEvent
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		filled[i] = e
	}
	return s.repo.AppendAll(ctx, filled)
}

// ListByCall returns the most recent events for one call, newest first.
func (s *Service) ListByCall(ctx context.Context, callID string, limit int) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if callID == "" {
		return nil, ErrInvalidEvent
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByCall(ctx, callID, limit)
}

// LogLifecycle records a lifecycle moment for a call.
func (s *Service) LogLifecycle(ctx context.Context, t EventType, callID, actorUserID, actorRole, message string) error {
	return s.Append(ctx, Event{
		Type:        t,
		CallID:      callID,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		Message:     message,
	})
}
