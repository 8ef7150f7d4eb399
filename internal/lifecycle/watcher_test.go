package lifecycle

import (
	"context"
	"testing"
	"time"

	"meeting-platform/internal/audit"
	"meeting-platform/internal/calls"
	"meeting-platform/internal/notify"
	"meeting-platform/internal/provider"
)

func newTestManager(t *testing.T, src *provider.MemorySource) (*Manager, *notify.Hub) {
	t.Helper()
	hub := notify.NewHub(nil)
	m := NewManager(ManagerConfig{
		Source:       src,
		Hub:          hub,
		Events:       audit.NewService(audit.NewMemoryRepo()),
		EvalInterval: 20 * time.Millisecond,
	})
	t.Cleanup(m.StopAll)
	return m, hub
}

func seedCall(t *testing.T, src *provider.MemorySource, id string, endsAt time.Time) calls.Call {
	t.Helper()
	data := provider.CallData{StartsAt: time.Now().Add(-time.Minute), Description: "Sync"}
	if !endsAt.IsZero() {
		data.EndsAt = endsAt
	}
	c, err := src.GetOrCreateCall(context.Background(), calls.CallTypeDefault, id, data)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return c
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func drainNotices(sub *notify.Subscription) []notify.Notice {
	var out []notify.Notice
	for {
		select {
		case n, ok := <-sub.C():
			if !ok {
				return out
			}
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestWatcher_WarnsInsideWindowWithoutEnding(t *testing.T) {
	src := provider.NewMemorySource()
	m, hub := newTestManager(t, src)

	c := seedCall(t, src, "c1", time.Now().Add(4*time.Minute))
	sub := hub.Subscribe("c1")
	defer sub.Close()

	m.Start(context.Background(), c)

	if !waitFor(t, time.Second, func() bool {
		for _, n := range drainNotices(sub) {
			if n.Event == notify.EventEndingSoon {
				if n.MinutesLeft != 4 {
					t.Fatalf("expected 4 minutes left, got %d", n.MinutesLeft)
				}
				return true
			}
		}
		return false
	}) {
		t.Fatalf("expected an ending-soon warning")
	}

	if src.EndCalls() != 0 {
		t.Fatalf("end call must not fire inside the warning window")
	}
}

func TestWatcher_WarnsAtMostOncePerArming(t *testing.T) {
	src := provider.NewMemorySource()
	m, hub := newTestManager(t, src)

	c := seedCall(t, src, "c1", time.Now().Add(2*time.Minute))
	sub := hub.Subscribe("c1")
	defer sub.Close()

	m.Start(context.Background(), c)

	// Allow several evaluation ticks to pass.
	time.Sleep(150 * time.Millisecond)

	warnings := 0
	for _, n := range drainNotices(sub) {
		if n.Event == notify.EventEndingSoon {
			warnings++
		}
	}
	if warnings != 1 {
		t.Fatalf("expected exactly one warning, got %d", warnings)
	}
}

func TestWatcher_ExpiredEndsCallOnceAndNavigates(t *testing.T) {
	src := provider.NewMemorySource()
	m, hub := newTestManager(t, src)

	c := seedCall(t, src, "c1", time.Now().Add(-time.Second))
	sub := hub.Subscribe("c1")
	defer sub.Close()

	m.Start(context.Background(), c)

	if !waitFor(t, time.Second, func() bool { return !m.Watching("c1") }) {
		t.Fatalf("expected watcher to terminate")
	}
	if src.EndCalls() != 1 {
		t.Fatalf("expected exactly one end call, got %d", src.EndCalls())
	}

	var navigated bool
	for _, n := range drainNotices(sub) {
		if n.Event == notify.EventNavigate && n.Route == LandingRoute {
			navigated = true
		}
	}
	if !navigated {
		t.Fatalf("expected navigation to landing route")
	}
}

func TestWatcher_NavigatesEvenWhenEndCallFails(t *testing.T) {
	src := provider.NewMemorySource()
	m, hub := newTestManager(t, src)

	c := seedCall(t, src, "c1", time.Now().Add(-time.Second))
	// Fail all source operations after seeding.
	src.Fail = provider.ErrUnavailable

	sub := hub.Subscribe("c1")
	defer sub.Close()

	m.Start(context.Background(), c)

	if !waitFor(t, time.Second, func() bool { return !m.Watching("c1") }) {
		t.Fatalf("expected watcher to terminate")
	}

	var navigated bool
	for _, n := range drainNotices(sub) {
		if n.Event == notify.EventNavigate {
			navigated = true
		}
	}
	if !navigated {
		t.Fatalf("navigation must happen regardless of end-call failure")
	}
}

func TestWatcher_RearmsWhenEndsAtMoves(t *testing.T) {
	src := provider.NewMemorySource()
	m, _ := newTestManager(t, src)

	c := seedCall(t, src, "c1", time.Now().Add(2*time.Hour))
	m.Start(context.Background(), c)

	if !m.Watching("c1") {
		t.Fatalf("expected active watcher")
	}

	// Organizer moves the end close; the original wake-up must be cancelled
	// and replaced.
	moved := seedCall(t, src, "c1", time.Now().Add(50*time.Millisecond))
	m.Refresh(moved)

	if !waitFor(t, time.Second, func() bool { return src.EndCalls() == 1 }) {
		t.Fatalf("expected end call at the updated instant, got %d", src.EndCalls())
	}
}

func TestWatcher_IdleWithoutEndsAt(t *testing.T) {
	src := provider.NewMemorySource()
	m, _ := newTestManager(t, src)

	c := seedCall(t, src, "c1", time.Time{})
	m.Start(context.Background(), c)

	time.Sleep(100 * time.Millisecond)
	if src.EndCalls() != 0 {
		t.Fatalf("idle watcher must never end the call")
	}
	if !m.Watching("c1") {
		t.Fatalf("idle watcher should stay mounted")
	}
}

func TestWatcher_StopCancelsPendingTimer(t *testing.T) {
	src := provider.NewMemorySource()
	m, _ := newTestManager(t, src)

	// A horizon comfortably past the Start/Stop race, but short enough
	// that the sleep below outlives it: a surviving timer would fire.
	c := seedCall(t, src, "c1", time.Now().Add(time.Second))
	m.Start(context.Background(), c)
	m.Stop("c1")

	time.Sleep(1200 * time.Millisecond)
	if src.EndCalls() != 0 {
		t.Fatalf("stopped watcher must not end the call")
	}
	if m.Watching("c1") {
		t.Fatalf("expected watcher removed")
	}
}

func TestWatcher_PollObservesExternalEdit(t *testing.T) {
	src := provider.NewMemorySource()
	m, _ := newTestManager(t, src)

	c := seedCall(t, src, "c1", time.Now().Add(2*time.Hour))
	m.Start(context.Background(), c)

	// Edit at the source without going through Refresh; the evaluation
	// poll must pick it up.
	seedCall(t, src, "c1", time.Now().Add(30*time.Millisecond))

	if !waitFor(t, time.Second, func() bool { return src.EndCalls() == 1 }) {
		t.Fatalf("expected poll-driven re-arm to end the call")
	}
}
