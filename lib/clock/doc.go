// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// Code that measures latency, waits between attempts, or runs
// periodic work takes a [Clock] instead of calling the time package.
// Production passes [Real]; tests pass [Fake] and move time with
// [FakeClock.Advance].
//
// [FakeClock.BlockUntil] waits for another goroutine to arm a timer
// before the test advances past it:
//
//	go runner.Stress(ctx, 3, time.Second)
//	fake.BlockUntil(1)
//	fake.Advance(time.Second)
package clock
