package notify

import (
	"log/slog"
	"sync"
)

// Notice is a user-visible event pushed to mounted meeting views.
type Notice struct {
	Event  string `json:"event"`
	CallID string `json:"call_id"`

	// MinutesLeft accompanies ending-soon warnings.
	MinutesLeft int `json:"minutes_left,omitempty"`

	// Route accompanies navigate events (e.g. the landing route after an
	// automatic end).
	Route string `json:"route,omitempty"`

	Message string `json:"message,omitempty"`
}

const (
	EventEndingSoon   = "ending_soon"
	EventMeetingEnded = "meeting_ended"
	EventNavigate     = "navigate"
)

// Hub fans notices out to subscribers of a call. Delivery is best-effort: a
// subscriber that cannot keep up has notices dropped rather than blocking
// the countdown watcher.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
	log  *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
		log:  log,
	}
}

type Subscription struct {
	callID string
	ch     chan Notice

	once sync.Once
	hub  *Hub
}

// C delivers notices for the subscribed call.
func (s *Subscription) C() <-chan Notice { return s.ch }

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if set, ok := s.hub.subs[s.callID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.hub.subs, s.callID)
			}
		}
		close(s.ch)
	})
}

// Subscribe registers interest in one call's notices.
func (h *Hub) Subscribe(callID string) *Subscription {
	s := &Subscription{callID: callID, ch: make(chan Notice, 8), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[callID] == nil {
		h.subs[callID] = make(map[*Subscription]struct{})
	}
	h.subs[callID][s] = struct{}{}
	return s
}

// Publish sends a notice to every subscriber of the call.
func (h *Hub) Publish(n Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[n.CallID] {
		select {
		case s.ch <- n:
		default:
			h.log.Warn("notice channel full, dropping", "call_id", n.CallID, "event", n.Event)
		}
	}
}

// SubscriberCount reports how many views are attached to a call.
func (h *Hub) SubscriberCount(callID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[callID])
}
