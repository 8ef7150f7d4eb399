package provider

import (
	"context"
	"testing"
	"time"

	"meeting-platform/internal/calls"
)

func TestMemorySource_GetOrCreateIsIdempotent(t *testing.T) {
	m := NewMemorySource()
	ctx := context.Background()
	start := time.Unix(1700000000, 0).UTC()

	first, err := m.GetOrCreateCall(ctx, calls.CallTypeDefault, "c1", CallData{
		StartsAt: start, Description: "Sync", EndsAt: start.Add(time.Hour), DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	second, err := m.GetOrCreateCall(ctx, calls.CallTypeDefault, "c1", CallData{
		StartsAt: start, Description: "Sync v2", EndsAt: start.Add(2 * time.Hour), DurationMinutes: 120,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected same call id")
	}
	if second.Custom.Description != "Sync v2" {
		t.Fatalf("expected rewritten description, got %q", second.Custom.Description)
	}
	if len(m.Calls) != 1 {
		t.Fatalf("expected one call, got %d", len(m.Calls))
	}
}

func TestMemorySource_EndsAtKeepsSubSecondPrecision(t *testing.T) {
	m := NewMemorySource()
	ctx := context.Background()

	endsAt := time.Unix(1700000000, 250_000_000).UTC()
	c, err := m.GetOrCreateCall(ctx, calls.CallTypeDefault, "c1", CallData{
		StartsAt: endsAt.Add(-time.Hour), EndsAt: endsAt,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	parsed, ok := c.EndsAtTime()
	if !ok {
		t.Fatalf("ends_at %q did not parse", c.Custom.EndsAt)
	}
	if !parsed.Equal(endsAt) {
		t.Fatalf("ends_at round-trip lost precision: want %v, got %v", endsAt, parsed)
	}
}

func TestMemorySource_EndCallIsIrreversible(t *testing.T) {
	m := NewMemorySource()
	m.Clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	ctx := context.Background()

	if _, err := m.GetOrCreateCall(ctx, calls.CallTypeDefault, "c1", CallData{StartsAt: time.Unix(1700000000, 0)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.EndCall(ctx, calls.CallTypeDefault, "c1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	ended := *m.Calls["c1"].EndedAt

	// get-or-create after end must not resurrect the call
	if _, err := m.GetOrCreateCall(ctx, calls.CallTypeDefault, "c1", CallData{StartsAt: time.Unix(1800000000, 0)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if m.Calls["c1"].EndedAt == nil || !m.Calls["c1"].EndedAt.Equal(ended) {
		t.Fatalf("ended_at must survive get-or-create")
	}
}

func TestMemorySource_QueryFiltersByMembership(t *testing.T) {
	m := NewMemorySource()
	ctx := context.Background()
	start := time.Unix(1700000000, 0).UTC()

	if _, err := m.GetOrCreateCall(ctx, calls.CallTypeDefault, "mine", CallData{StartsAt: start}); err != nil {
		t.Fatalf("create: %v", err)
	}
	m.Calls["mine"].CreatedByID = "u1"
	if _, err := m.GetOrCreateCall(ctx, calls.CallTypeDefault, "other", CallData{StartsAt: start}); err != nil {
		t.Fatalf("create: %v", err)
	}
	m.Calls["other"].CreatedByID = "u2"
	if _, err := m.GetOrCreateCall(ctx, calls.CallTypeDefault, "invited", CallData{
		StartsAt: start, Members: []calls.Member{{UserID: "u1", Role: calls.MemberRoleCallMember}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	m.Calls["invited"].CreatedByID = "u2"

	got, err := m.QueryCalls(ctx, CallFilter{MemberOrCreatorID: "u1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 calls for u1, got %d", len(got))
	}
}

func TestTokenIssuer_UserTokenRequiresUser(t *testing.T) {
	i, err := NewTokenIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	if _, err := i.UserToken(""); err == nil {
		t.Fatalf("expected error for empty user id")
	}
	tok, err := i.UserToken("u1")
	if err != nil || tok == "" {
		t.Fatalf("expected token, got %q err %v", tok, err)
	}
}
