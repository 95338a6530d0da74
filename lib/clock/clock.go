// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the subset of the time package that session latency,
// stress pauses and periodic update checks depend on.
type Clock interface {
	Now() time.Time

	// After delivers the time once d has elapsed, or immediately when
	// d <= 0.
	After(d time.Duration) <-chan time.Time

	// NewTicker ticks every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C, which holds one tick. A consumer that
// falls behind misses ticks.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop ends the ticks. C is not closed.
func (t *Ticker) Stop() { t.stopFunc() }
