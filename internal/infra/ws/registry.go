package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/adapter"
	"ai-chat-backend/internal/infra/metrics"
)

// Compile-time check
var _ adapter.EventDeliverer = (*Registry)(nil)

// Registry tracks at most one live connection per user. A new registration
// supersedes the previous one: the old connection is closed so the user's
// events have exactly one destination.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client
	log     *zerolog.Logger
}

func NewRegistry(log *zerolog.Logger) *Registry {
	return &Registry{clients: make(map[string]*Client), log: log}
}

func (r *Registry) Register(userID string, c *Client) {
	r.mu.Lock()
	prev := r.clients[userID]
	r.clients[userID] = c
	r.mu.Unlock()

	if prev != nil {
		// Replacing keeps the live count flat: the superseded connection's
		// own teardown hits the stale guard below and never decrements.
		r.log.Info().Str("user_id", userID).Msg("superseding existing connection")
		prev.shutdown()
		return
	}
	metrics.ConnOpened()
}

// Unregister removes the mapping only when it still points at the caller,
// so a superseded connection tearing down cannot evict its replacement.
func (r *Registry) Unregister(userID string, c *Client) {
	r.mu.Lock()
	removed := r.clients[userID] == c
	if removed {
		delete(r.clients, userID)
	}
	r.mu.Unlock()
	// An evicted client unregisters twice (evict path plus its own read loop
	// teardown); the gauge must move once.
	if removed {
		metrics.ConnClosed()
	}
}

// Deliver hands the event to the user's connection, if any. It never blocks:
// when the user is offline or the outbound buffer is full the event is
// dropped and the stalled connection is torn down.
func (r *Registry) Deliver(userID string, ev model.Event) {
	r.mu.Lock()
	c := r.clients[userID]
	r.mu.Unlock()
	if c == nil {
		metrics.EventDropped(ev.EventType())
		return
	}
	if c.enqueue(ev) {
		metrics.EventDelivered(ev.EventType())
		return
	}
	metrics.EventDropped(ev.EventType())
	r.log.Warn().Str("user_id", userID).Str("event", ev.EventType()).Msg("outbound buffer full, dropping connection")
	r.Unregister(userID, c)
	c.shutdown()
}
