// Package feed fans stream updates out to subscribers.
package feed

import (
	"sync"
	"sync/atomic"

	"YieldStream/internal/model"
)

// Hub delivers every published update to all current subscribers.
// Publish never blocks: a subscriber whose buffer is full misses the update.
type Hub struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]chan model.StreamUpdate
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan model.StreamUpdate)}
}

// Subscribe registers a subscriber with the given channel buffer. The cancel
// func unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan model.StreamUpdate, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan model.StreamUpdate, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish sends u to every subscriber that has room.
func (h *Hub) Publish(u model.StreamUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- u:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
