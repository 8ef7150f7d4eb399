package provider

import (
	"context"
	"errors"
	"time"

	"meeting-platform/internal/calls"
)

// CallSource is the provider-agnostic contract for the hosted video service.
//
// Rules:
// - No provider SDK/HTTP calls outside provider adapters.
// - Call state is mutated only through these operations, never by direct
//   field writes on returned records.
// - Adapters own their connection lifecycle: constructed from config at
//   process start, closed at shutdown.
type CallSource interface {
	Name() string
	HealthCheck(ctx context.Context) error

	// QueryCalls returns the calls visible to the filter, sorted by
	// starts_at descending. Consumers must not rely on the order.
	QueryCalls(ctx context.Context, f CallFilter) ([]calls.Call, error)

	// GetOrCreateCall is idempotent on id: an existing call has its
	// starts_at/custom/members rewritten from data; ended_at is never
	// touched.
	GetOrCreateCall(ctx context.Context, callType, id string, data CallData) (calls.Call, error)

	// Member and lifecycle mutations address /{type}/{id}; the type is part
	// of the call's identity at the source, never assumed.
	JoinCall(ctx context.Context, callType, id, userID string) error
	LeaveCall(ctx context.Context, callType, id, userID string) error

	// EndCall marks the call ended; irreversible.
	EndCall(ctx context.Context, callType, id string) error

	QueryRecordings(ctx context.Context, callType, id string) ([]calls.Recording, error)

	Close() error
}

// CallFilter narrows QueryCalls. Zero-value fields are ignored.
type CallFilter struct {
	// ID selects a single call.
	ID string

	// MemberOrCreatorID selects calls the user created or is a member of.
	MemberOrCreatorID string

	// ScheduledOnly restricts to calls that carry a starts_at.
	ScheduledOnly bool

	Limit int
}

// CallData is the mutation payload written through GetOrCreateCall.
type CallData struct {
	StartsAt time.Time

	Description     string
	EndsAt          time.Time
	DurationMinutes int

	Members []calls.Member
}

var (
	// ErrNotFound: the requested call does not exist at the source.
	ErrNotFound = errors.New("provider: call not found")

	// ErrUnavailable: the source could not be reached or answered 5xx.
	// User-initiated actions surface this as a retry prompt; background
	// actions log it only.
	ErrUnavailable = errors.New("provider: call source unavailable")
)
