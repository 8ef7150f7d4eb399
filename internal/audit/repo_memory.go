package audit

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory event repository for tests and early development.

type MemoryRepo struct {
	mu     sync.Mutex
	Events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

func (r *MemoryRepo) AppendAll(ctx context.Context, events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, events...)
	return nil
}

func (r *MemoryRepo) ListByCall(ctx context.Context, callID string, limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, 0)
	// newest first
	for i := len(r.Events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.Events[i].CallID == callID {
			out = append(out, r.Events[i])
		}
	}
	return out, nil
}
