// Package progress fans out fetch and digest progress events to subscribers.
package progress

import (
	"fmt"
	"sync"
	"time"
)

const (
	KindFetch  = "fetch"
	KindDigest = "digest"
)

// Event is one progress update
type Event struct {
	Kind    string    `json:"kind"`
	Stage   string    `json:"stage"`
	Current int       `json:"current,omitempty"`
	Total   int       `json:"total,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Hub delivers published events to every subscriber. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	buffer      int
}

// NewHub creates a hub with per-subscriber buffers of the given size
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subscribers: make(map[chan Event]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish sends ev to all current subscribers
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of registered subscribers
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// PageFetched publishes a listing page as a fetch event. The library size is
// unknown while paging, so only the running count is reported.
func (h *Hub) PageFetched(offset, count, total int) {
	h.Publish(Event{
		Kind:    KindFetch,
		Stage:   "page",
		Current: total,
		Message: fmt.Sprintf("offset %d: %d items", offset, count),
	})
}
