// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var start = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func fired(channel <-chan time.Time) bool {
	select {
	case <-channel:
		return true
	default:
		return false
	}
}

func TestNowMovesOnlyOnAdvance(t *testing.T) {
	fake := Fake(start)
	if !fake.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", fake.Now(), start)
	}
	fake.Advance(1500 * time.Millisecond)
	if want := start.Add(1500 * time.Millisecond); !fake.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", fake.Now(), want)
	}
}

func TestAfterFiresAtDeadline(t *testing.T) {
	fake := Fake(start)
	pause := fake.After(time.Second)

	fake.Advance(999 * time.Millisecond)
	if fired(pause) {
		t.Fatal("fired before the pause elapsed")
	}
	fake.Advance(time.Millisecond)
	if !fired(pause) {
		t.Fatal("did not fire once the pause elapsed")
	}
	if fake.Pending() != 0 {
		t.Errorf("Pending() = %d after firing, want 0", fake.Pending())
	}
}

func TestAfterNonPositiveFiresImmediately(t *testing.T) {
	fake := Fake(start)
	for _, d := range []time.Duration{0, -time.Second} {
		if !fired(fake.After(d)) {
			t.Errorf("After(%v) did not fire immediately", d)
		}
	}
	if fake.Pending() != 0 {
		t.Errorf("immediate After armed a timer")
	}
}

func TestTickerFiresEachPeriod(t *testing.T) {
	fake := Fake(start)
	ticker := fake.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	if fired(ticker.C) {
		t.Fatal("ticked before the first period")
	}
	for tick := 1; tick <= 3; tick++ {
		fake.Advance(6 * time.Hour)
		if !fired(ticker.C) {
			t.Fatalf("no tick %d", tick)
		}
	}
}

func TestTickerMissesTicksWhileFull(t *testing.T) {
	fake := Fake(start)
	ticker := fake.NewTicker(time.Minute)
	defer ticker.Stop()

	fake.Advance(10 * time.Minute)
	count := 0
	for fired(ticker.C) {
		count++
	}
	if count != 1 {
		t.Errorf("buffered %d ticks, want 1", count)
	}
}

func TestTickerStop(t *testing.T) {
	fake := Fake(start)
	ticker := fake.NewTicker(time.Second)
	ticker.Stop()
	fake.Advance(time.Minute)
	if fired(ticker.C) {
		t.Error("stopped ticker fired")
	}
	if fake.Pending() != 0 {
		t.Errorf("Pending() = %d after Stop, want 0", fake.Pending())
	}
}

func TestTickerRejectsNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewTicker(0) did not panic")
		}
	}()
	Fake(start).NewTicker(0)
}

func TestAdvanceFiresEveryDueTimer(t *testing.T) {
	fake := Fake(start)
	late := fake.After(3 * time.Second)
	early := fake.After(time.Second)
	future := fake.After(time.Hour)

	fake.Advance(5 * time.Second)
	if !fired(early) || !fired(late) {
		t.Fatal("a due timer did not fire")
	}
	if fired(future) {
		t.Error("a timer fired before its deadline")
	}
	if fake.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", fake.Pending())
	}
}

func TestBlockUntil(t *testing.T) {
	fake := Fake(start)
	results := make(chan time.Time, 3)
	for range 3 {
		go func() { results <- <-fake.After(2 * time.Second) }()
	}

	fake.BlockUntil(3)
	fake.Advance(2 * time.Second)
	for i := range 3 {
		select {
		case <-results:
		case <-time.After(5 * time.Second):
			t.Fatalf("waiter %d never fired", i)
		}
	}
}

func TestClocksImplementClock(t *testing.T) {
	var _ Clock = (*FakeClock)(nil)
	var _ Clock = Real()
}

func TestRealTicker(t *testing.T) {
	ticker := Real().NewTicker(time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C:
	case <-time.After(5 * time.Second):
		t.Fatal("wall clock ticker never ticked")
	}
}
