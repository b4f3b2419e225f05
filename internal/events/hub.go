// Package events fans raffle notifications out to subscribers.
package events

import (
	"sync"
	"sync/atomic"

	"pooled-raffle/internal/raffle"
)

// DefaultBuffer is the channel size used by Subscribe when size <= 0.
const DefaultBuffer = 64

// Hub implements raffle.Notifier. Delivery never blocks: a subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu      sync.Mutex
	clients map[*Subscription]struct{}
	dropped atomic.Uint64
}

type Subscription struct {
	ch   chan raffle.Event
	done chan struct{}
}

func (s *Subscription) C() <-chan raffle.Event {
	return s.ch
}

// Done is closed when the subscription is removed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func NewHub() *Hub {
	return &Hub{clients: map[*Subscription]struct{}{}}
}

func (h *Hub) Subscribe(size int) *Subscription {
	if size <= 0 {
		size = DefaultBuffer
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &Subscription{ch: make(chan raffle.Event, size), done: make(chan struct{})}
	h.clients[s] = struct{}{}
	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[s]; ok {
		delete(h.clients, s)
		close(s.ch)
		close(s.done)
	}
}

// Close removes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		delete(h.clients, s)
		close(s.ch)
		close(s.done)
	}
}

func (h *Hub) Notify(ev raffle.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped returns the number of deliveries skipped because a buffer was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
