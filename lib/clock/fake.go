// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// FakeClock only moves when Advance is called. It is safe for
// concurrent use.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer

	// armed is closed, then replaced, every time a timer is added.
	armed chan struct{}
}

type fakeTimer struct {
	at time.Time
	c  chan time.Time

	// period is non-zero for tickers.
	period  time.Duration
	stopped bool
}

// Fake returns a FakeClock reading start until advanced.
func Fake(start time.Time) *FakeClock {
	return &FakeClock{now: start, armed: make(chan struct{})}
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After fires once Advance has moved the clock d past now.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.arm(&fakeTimer{at: c.now.Add(d), c: channel})
	return channel
}

// NewTicker fires every d of advanced time.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker interval must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{at: c.now.Add(d), c: make(chan time.Time, 1), period: d}
	c.arm(timer)
	return &Ticker{C: timer.c, stopFunc: func() {
		c.mu.Lock()
		timer.stopped = true
		c.mu.Unlock()
	}}
}

func (c *FakeClock) arm(timer *fakeTimer) {
	c.timers = append(c.timers, timer)
	close(c.armed)
	c.armed = make(chan struct{})
}

// Advance moves the clock forward by d and fires due timers earliest
// first. A ticker whose channel is still full misses the tick.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)

	for {
		next := c.earliestDue()
		if next < 0 {
			return
		}
		timer := c.timers[next]
		select {
		case timer.c <- c.now:
		default:
		}
		if timer.period > 0 {
			timer.at = timer.at.Add(timer.period)
			continue
		}
		c.timers = append(c.timers[:next], c.timers[next+1:]...)
	}
}

// earliestDue returns the index of the earliest live timer at or
// before now, or -1. Stopped timers are dropped on the way.
func (c *FakeClock) earliestDue() int {
	live := c.timers[:0]
	for _, timer := range c.timers {
		if !timer.stopped {
			live = append(live, timer)
		}
	}
	c.timers = live

	best := -1
	for i, timer := range c.timers {
		if timer.at.After(c.now) {
			continue
		}
		if best < 0 || timer.at.Before(c.timers[best].at) {
			best = i
		}
	}
	return best
}

// Pending returns the number of live timers.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, timer := range c.timers {
		if !timer.stopped {
			count++
		}
	}
	return count
}

// BlockUntil waits until at least n timers are live, so a test can
// advance past a timer another goroutine is about to arm.
func (c *FakeClock) BlockUntil(n int) {
	for {
		c.mu.Lock()
		armed := c.armed
		c.mu.Unlock()
		if c.Pending() >= n {
			return
		}
		<-armed
	}
}
