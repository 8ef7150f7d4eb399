package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meeting-platform/internal/calls"
	"meeting-platform/internal/config"
)

func newTestStream(t *testing.T, handler http.HandlerFunc) *StreamSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	issuer, err := NewTokenIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	s, err := NewStreamSource(config.StreamConfig{
		APIKey:  "key",
		BaseURL: srv.URL,
	}, issuer)
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	return s
}

func TestStreamSource_AddressesCallsByType(t *testing.T) {
	var paths []string
	s := newTestStream(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{}`))
	})
	ctx := context.Background()

	if err := s.EndCall(ctx, calls.CallTypeInvited, "inv-1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := s.JoinCall(ctx, calls.CallTypeInvited, "inv-1", "u1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.LeaveCall(ctx, calls.CallTypeDefault, "c1", "u1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := s.QueryRecordings(ctx, calls.CallTypeInvited, "inv-1"); err != nil {
		t.Fatalf("recordings: %v", err)
	}

	want := []string{
		"/video/call/invited/inv-1/mark_ended",
		"/video/call/invited/inv-1/members",
		"/video/call/default/c1/members",
		"/video/call/invited/inv-1/recordings",
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestStreamSource_EndsAtKeepsSubSecondPrecision(t *testing.T) {
	var gotEndsAt string
	s := newTestStream(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body struct {
			Data struct {
				Custom map[string]any `json:"custom"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &body); err == nil {
			gotEndsAt, _ = body.Data.Custom["ends_at"].(string)
		}
		w.Write([]byte(`{"call":{"id":"c1","type":"default"}}`))
	})

	endsAt := time.Date(2026, 8, 30, 12, 0, 0, 250_000_000, time.UTC)
	_, err := s.GetOrCreateCall(context.Background(), calls.CallTypeDefault, "c1", CallData{
		StartsAt: endsAt.Add(-time.Hour),
		EndsAt:   endsAt,
	})
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}

	parsed, perr := time.Parse(time.RFC3339, gotEndsAt)
	if perr != nil {
		t.Fatalf("ends_at %q did not parse: %v", gotEndsAt, perr)
	}
	if !parsed.Equal(endsAt) {
		t.Fatalf("ends_at round-trip lost precision: sent %v, got %v", endsAt, parsed)
	}
}

func TestStreamSource_NotFoundAndOutage(t *testing.T) {
	status := http.StatusNotFound
	s := newTestStream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"message":"nope"}`))
	})
	ctx := context.Background()

	if err := s.EndCall(ctx, calls.CallTypeDefault, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	status = http.StatusInternalServerError
	if err := s.EndCall(ctx, calls.CallTypeDefault, "c1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
