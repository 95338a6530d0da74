// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package controlapi

import (
	"sync"
	"sync/atomic"

	"github.com/intamia/beacon/lib/session"
)

// subscriberBuffer is how many lines a slow subscriber may fall behind
// before lines are dropped for it.
const subscriberBuffer = 64

// Hub fans session status lines out to subscribers. It implements
// [session.StatusSink]; Publish never blocks.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan session.Status]struct{}
	dropped     atomic.Uint64
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan session.Status]struct{})}
}

// Publish implements [session.StatusSink].
func (h *Hub) Publish(status session.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for subscriber := range h.subscribers {
		select {
		case subscriber <- status:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber. The returned cancel function
// unregisters it and closes the channel.
func (h *Hub) Subscribe() (<-chan session.Status, func()) {
	channel := make(chan session.Status, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[channel] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return channel, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, channel)
			h.mu.Unlock()
			close(channel)
		})
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Dropped returns how many deliveries were skipped for slow
// subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
