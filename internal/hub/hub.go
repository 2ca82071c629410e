// Package hub fans reload signals out to connected preview clients. The
// build loop broadcasts; websocket handlers subscribe. A subscriber that
// stops draining its channel is dropped so one stuck browser tab can never
// stall the loop.
package hub

import (
	"context"
	"sync"

	"github.com/boifagusy/flashflow-sub000/internal/logging"
)

// maxMisses is how many consecutive full-buffer broadcasts a subscriber
// survives before it is pruned. Reloads are level triggered, so a client
// with one undelivered signal has lost nothing yet.
const maxMisses = 3

type client struct {
	ch     chan struct{}
	misses int
}

// Hub delivers reload signals to subscribers without ever blocking the
// sender. Each subscriber buffers a single pending signal.
type Hub struct {
	mu      sync.Mutex
	nextID  uint64
	clients map[uint64]*client
	logger  logging.Logger
}

// New returns an empty hub.
func New(logger logging.Logger) *Hub {
	return &Hub{
		clients: make(map[uint64]*client),
		logger:  logger.WithComponent("hub"),
	}
}

// Subscription is one subscriber's handle on the hub. Its channel closes
// when the subscription is cancelled, pruned, or the hub shuts down.
type Subscription struct {
	hub *Hub
	id  uint64
	ch  chan struct{}
}

// C returns the channel reload signals arrive on.
func (s *Subscription) C() <-chan struct{} {
	return s.ch
}

// Cancel removes the subscription. It is safe to call more than once and
// after the hub has already pruned the subscriber.
func (s *Subscription) Cancel() {
	s.hub.unsubscribe(s.id)
}

// Subscribe registers a new reload listener.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	c := &client{ch: make(chan struct{}, 1)}
	h.clients[h.nextID] = c

	h.logger.Debug(context.Background(), "client subscribed", "client_id", h.nextID, "clients", len(h.clients))
	return &Subscription{hub: h, id: h.nextID, ch: c.ch}
}

// Broadcast signals every subscriber that a reload is due. Sends never
// block; a subscriber whose buffer is still full after maxMisses
// consecutive broadcasts is dropped and its channel closed.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.ch <- struct{}{}:
			c.misses = 0
		default:
			c.misses++
			if c.misses >= maxMisses {
				delete(h.clients, id)
				close(c.ch)
				h.logger.Debug(context.Background(), "pruned unresponsive client", "client_id", id)
			}
		}
	}

	h.logger.Debug(context.Background(), "reload broadcast", "clients", len(h.clients))
}

// Len reports the current number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close drops every subscriber and closes their channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.ch)
	}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.ch)
		h.logger.Debug(context.Background(), "client unsubscribed", "client_id", id, "clients", len(h.clients))
	}
}
