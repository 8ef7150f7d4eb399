package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"meeting-platform/internal/audit"
	"meeting-platform/internal/calls"
	"meeting-platform/internal/notify"
	"meeting-platform/internal/provider"
	"meeting-platform/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LandingRoute is where participants are sent after an automatic end.
const LandingRoute = "/"

// WarningWindow is how far ahead of the scheduled end the one-time
// ending-soon warning fires.
const WarningWindow = 5 * time.Minute

const defaultEvalInterval = 30 * time.Second

// Manager owns at most one countdown watcher per joined call. A watcher is
// started when a user joins and stopped when the view unmounts; across API
// instances a redis slot keeps the count at one per call.
type Manager struct {
	source provider.CallSource
	hub    *notify.Hub
	events *audit.Service
	rdb    *redis.Client
	log    *slog.Logger

	clock func() time.Time

	// evalInterval is the re-evaluation poll. Each poll refetches call
	// state so end-time edits made outside this process still re-arm.
	evalInterval time.Duration

	// owner identifies this process for the cross-instance watch slot.
	owner string

	mu       sync.Mutex
	watchers map[string]*watcher
}

type ManagerConfig struct {
	Source provider.CallSource
	Hub    *notify.Hub
	Events *audit.Service

	// Redis is optional; without it the single-watcher and warn-once
	// guarantees hold per process only.
	Redis *redis.Client

	Log *slog.Logger

	// EvalInterval overrides the re-evaluation poll; tests shorten it.
	EvalInterval time.Duration
}

func NewManager(cfg ManagerConfig) *Manager {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	interval := cfg.EvalInterval
	if interval <= 0 {
		interval = defaultEvalInterval
	}
	return &Manager{
		source:       cfg.Source,
		hub:          cfg.Hub,
		events:       cfg.Events,
		rdb:          cfg.Redis,
		log:          log,
		clock:        time.Now,
		evalInterval: interval,
		owner:        uuid.NewString(),
		watchers:     make(map[string]*watcher),
	}
}

// Start begins watching a joined call. Starting an already-watched call is a
// no-op; so is starting a call another instance already watches.
func (m *Manager) Start(ctx context.Context, call calls.Call) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.watchers[call.ID]; ok {
		return
	}

	if m.rdb != nil {
		ok, err := utils.AcquireWatch(ctx, m.rdb, watchKey(call.ID), m.owner, m.watchTTL())
		if err != nil {
			// Degrade to process-local watching; losing the cluster guarantee
			// beats losing the countdown.
			m.log.Warn("watch slot acquire failed", "call_id", call.ID, "err", err)
		} else if !ok {
			m.log.Debug("call already watched elsewhere", "call_id", call.ID)
			return
		}
	}

	wctx, cancel := context.WithCancel(context.Background())
	w := &watcher{
		callID:  call.ID,
		updates: make(chan calls.Call, 4),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.watchers[call.ID] = w

	go func() {
		defer close(w.done)
		defer m.remove(call.ID)
		m.run(wctx, w, call)
	}()
}

// Refresh pushes updated call state to the watcher, re-arming the countdown
// when ends_at moved. No-op when the call is not watched here.
func (m *Manager) Refresh(call calls.Call) {
	m.mu.Lock()
	w, ok := m.watchers[call.ID]
	m.mu.Unlock()
	if !ok {
		return
	}
	select {
	case w.updates <- call:
	default:
		// The watcher refetches on its next poll anyway.
	}
}

// Stop cancels the pending countdown for a call. Called on view unmount;
// the caller separately issues its best-effort leave.
func (m *Manager) Stop(callID string) {
	m.mu.Lock()
	w, ok := m.watchers[callID]
	m.mu.Unlock()
	if !ok {
		return
	}
	w.cancel()
	<-w.done
}

// StopAll tears down every watcher; used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ws := make([]*watcher, 0, len(m.watchers))
	for _, w := range m.watchers {
		ws = append(ws, w)
	}
	m.mu.Unlock()

	for _, w := range ws {
		w.cancel()
		<-w.done
	}
}

// Watching reports whether this instance holds a watcher for the call.
func (m *Manager) Watching(callID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.watchers[callID]
	return ok
}

func (m *Manager) remove(callID string) {
	m.mu.Lock()
	delete(m.watchers, callID)
	m.mu.Unlock()

	if m.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := utils.ReleaseWatch(ctx, m.rdb, watchKey(callID), m.owner); err != nil {
			m.log.Warn("watch slot release failed", "call_id", callID, "err", err)
		}
	}
}

func (m *Manager) watchTTL() time.Duration {
	// Outlive two missed polls so a stalled instance loses the slot.
	return 3 * m.evalInterval
}

func watchKey(callID string) string { return "meeting:watch:" + callID }

func warnKey(callID, endsAt string) string {
	return "meeting:warned:" + callID + ":" + endsAt
}
