package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meeting-platform/internal/audit"
	"meeting-platform/internal/calls"
	"meeting-platform/internal/notify"
	"meeting-platform/internal/provider"
	"meeting-platform/pkg/utils"
)

type watcher struct {
	callID  string
	updates chan calls.Call
	cancel  context.CancelFunc
	done    chan struct{}
}

// run is the per-call countdown loop.
//
// States: idle (no ends_at), armed (one-shot wake-up at ends_at), expired
// (end call, navigate, terminal). The warning is not separately scheduled;
// it is detected on each evaluation — entry, state update, poll tick, or
// timer fire — and fires at most once per arming.
func (m *Manager) run(ctx context.Context, w *watcher, call calls.Call) {
	var (
		lastRaw  string // last ends_at value folded in
		callType = call.Type
		endsAt   time.Time
		armed    bool
		warned   bool

		timer  *time.Timer
		timerC <-chan time.Time
	)

	disarm := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
		armed = false
	}

	// apply folds new call state in, cancelling the previous wake-up and
	// re-arming when ends_at changed.
	apply := func(c calls.Call) {
		if c.Type != "" {
			callType = c.Type
		}
		raw := c.Custom.EndsAt
		if raw == lastRaw {
			return
		}
		disarm()
		lastRaw = raw
		warned = false

		if raw == "" {
			// Idle: countdown inactive until an edit adds ends_at.
			return
		}
		t, ok := c.EndsAtTime()
		if !ok {
			m.log.Warn("unparsable ends_at, countdown idle", "call_id", w.callID, "ends_at", raw)
			return
		}
		endsAt = t
		armed = true

		remaining := endsAt.Sub(m.clock())
		if remaining < 0 {
			remaining = 0
		}
		timer = time.NewTimer(remaining)
		timerC = timer.C
	}

	// evaluate checks the armed deadline; returns true when expired.
	evaluate := func() bool {
		if !armed {
			return false
		}
		remaining := endsAt.Sub(m.clock())

		if remaining <= 0 {
			m.expire(ctx, callType, w.callID)
			return true
		}

		if remaining <= WarningWindow && !warned {
			warned = true
			if m.warnOnce(ctx, w.callID, lastRaw, remaining) {
				minutes := int((remaining + time.Minute - 1) / time.Minute)
				m.hub.Publish(notify.Notice{
					Event:       notify.EventEndingSoon,
					CallID:      w.callID,
					MinutesLeft: minutes,
					Message:     fmt.Sprintf("This meeting will end in %d minute(s)", minutes),
				})
			}
		}
		return false
	}

	ticker := time.NewTicker(m.evalInterval)
	defer ticker.Stop()
	defer disarm()

	apply(call)
	if evaluate() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-timerC:
			if evaluate() {
				return
			}

		case c := <-w.updates:
			apply(c)
			if evaluate() {
				return
			}

		case <-ticker.C:
			m.refreshSlot(ctx, w.callID)
			if c, ok := m.refetch(ctx, w.callID); ok {
				apply(c)
			}
			if evaluate() {
				return
			}
		}
	}
}

// expire ends the call and navigates participants to the landing route.
// Navigation happens regardless of the end-call outcome; the failure is
// logged, not surfaced.
func (m *Manager) expire(ctx context.Context, callType, callID string) {
	if err := m.source.EndCall(ctx, callType, callID); err != nil && !errors.Is(err, context.Canceled) {
		m.log.Error("auto end failed", "call_id", callID, "err", err)
	}

	if m.events != nil {
		if err := m.events.LogLifecycle(ctx, audit.EventTypeMeetingAutoEnded, callID, "", "", "scheduled end time reached"); err != nil {
			m.log.Warn("audit append failed", "call_id", callID, "err", err)
		}
	}

	m.hub.Publish(notify.Notice{
		Event:   notify.EventMeetingEnded,
		CallID:  callID,
		Message: "The scheduled meeting time has finished.",
	})
	m.hub.Publish(notify.Notice{
		Event:  notify.EventNavigate,
		CallID: callID,
		Route:  LandingRoute,
	})
}

// warnOnce reports whether this process should emit the warning for the
// given arming. Redis extends the guarantee cluster-wide; without it the
// caller's in-process flag still holds per watcher.
func (m *Manager) warnOnce(ctx context.Context, callID, endsAtRaw string, remaining time.Duration) bool {
	if m.rdb == nil {
		return true
	}
	won, err := utils.MarkOnce(ctx, m.rdb, warnKey(callID, endsAtRaw), remaining+WarningWindow)
	if err != nil {
		m.log.Warn("warn dedup failed", "call_id", callID, "err", err)
		return true
	}
	return won
}

// refetch pulls current call state so edits made outside this process are
// observed. Failures degrade to the previously known state.
func (m *Manager) refetch(ctx context.Context, callID string) (calls.Call, bool) {
	got, err := m.source.QueryCalls(ctx, provider.CallFilter{ID: callID, Limit: 1})
	if err != nil || len(got) == 0 {
		if err != nil && !errors.Is(err, context.Canceled) {
			m.log.Debug("state refetch failed", "call_id", callID, "err", err)
		}
		return calls.Call{}, false
	}
	return got[0], true
}

func (m *Manager) refreshSlot(ctx context.Context, callID string) {
	if m.rdb == nil {
		return
	}
	if _, err := utils.AcquireWatch(ctx, m.rdb, watchKey(callID), m.owner, m.watchTTL()); err != nil {
		m.log.Debug("watch slot refresh failed", "call_id", callID, "err", err)
	}
}
