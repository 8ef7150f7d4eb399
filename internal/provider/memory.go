package provider

import (
	"context"
	"sort"
	"sync"
	"time"

	"meeting-platform/internal/calls"
)

// MemorySource is an in-memory call source for tests and early development.
// It mirrors the hosted source's semantics: get-or-create idempotent on id,
// ended_at set once, recordings held per call.
type MemorySource struct {
	mu sync.Mutex

	Calls      map[string]*calls.Call
	Recordings map[string][]calls.Recording

	// Clock is injectable for deterministic tests.
	Clock func() time.Time

	// Fail, when set, is returned by every operation. Used to exercise
	// source-unavailable paths.
	Fail error

	endCalls int
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		Calls:      map[string]*calls.Call{},
		Recordings: map[string][]calls.Recording{},
		Clock:      time.Now,
	}
}

func (m *MemorySource) Name() string { return "memory" }

func (m *MemorySource) Close() error { return nil }

func (m *MemorySource) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Fail
}

func (m *MemorySource) QueryCalls(ctx context.Context, f CallFilter) ([]calls.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}

	out := make([]calls.Call, 0)
	for _, c := range m.Calls {
		if f.ID != "" && c.ID != f.ID {
			continue
		}
		if f.ScheduledOnly && c.StartsAt == nil {
			continue
		}
		if f.MemberOrCreatorID != "" && c.CreatedByID != f.MemberOrCreatorID && !c.HasMember(f.MemberOrCreatorID) {
			continue
		}
		out = append(out, *c)
	}

	// starts_at descending, matching the hosted query
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := time.Time{}, time.Time{}
		if out[i].StartsAt != nil {
			ti = *out[i].StartsAt
		}
		if out[j].StartsAt != nil {
			tj = *out[j].StartsAt
		}
		return ti.After(tj)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemorySource) GetOrCreateCall(ctx context.Context, callType, id string, data CallData) (calls.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return calls.Call{}, m.Fail
	}

	custom := calls.Custom{
		Description:     data.Description,
		DurationMinutes: data.DurationMinutes,
	}
	if !data.EndsAt.IsZero() {
		// Same sub-second precision as the hosted source's ISO timestamps.
		custom.EndsAt = data.EndsAt.UTC().Format(time.RFC3339Nano)
	}

	if existing, ok := m.Calls[id]; ok {
		// Rewrite the mutable window; ended_at is never cleared.
		starts := data.StartsAt
		existing.StartsAt = &starts
		existing.Custom = custom
		if len(data.Members) > 0 {
			existing.Members = append([]calls.Member(nil), data.Members...)
		}
		return *existing, nil
	}

	starts := data.StartsAt
	c := &calls.Call{
		ID:       id,
		Type:     callType,
		StartsAt: &starts,
		Custom:   custom,
		Members:  append([]calls.Member(nil), data.Members...),
	}
	m.Calls[id] = c
	return *c, nil
}

func (m *MemorySource) JoinCall(ctx context.Context, callType, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	c, ok := m.Calls[id]
	if !ok {
		return ErrNotFound
	}
	if !c.HasMember(userID) {
		c.Members = append(c.Members, calls.Member{UserID: userID, Role: calls.MemberRoleCallMember})
	}
	return nil
}

func (m *MemorySource) LeaveCall(ctx context.Context, callType, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	c, ok := m.Calls[id]
	if !ok {
		return ErrNotFound
	}
	kept := c.Members[:0]
	for _, mem := range c.Members {
		if mem.UserID != userID {
			kept = append(kept, mem)
		}
	}
	c.Members = kept
	return nil
}

func (m *MemorySource) EndCall(ctx context.Context, callType, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	c, ok := m.Calls[id]
	if !ok {
		return ErrNotFound
	}
	m.endCalls++
	if c.EndedAt == nil {
		now := m.Clock().UTC()
		c.EndedAt = &now
	}
	return nil
}

// EndCalls reports how many times EndCall reached an existing call.
func (m *MemorySource) EndCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endCalls
}

func (m *MemorySource) QueryRecordings(ctx context.Context, callType, id string) ([]calls.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	return append([]calls.Recording(nil), m.Recordings[id]...), nil
}
