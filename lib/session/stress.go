// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/intamia/beacon/lib/negotiate"
)

// StressReport summarizes a Stress run.
type StressReport struct {
	Iterations int                    `json:"iterations"`
	Succeeded  int                    `json:"succeeded"`
	Failed     int                    `json:"failed"`
	Modes      map[negotiate.Mode]int `json:"modes"`
	Mean       time.Duration          `json:"mean"`
	P95        time.Duration          `json:"p95"`
	Max        time.Duration          `json:"max"`
}

func (r StressReport) String() string {
	return fmt.Sprintf("%d/%d sessions succeeded, mean %v, p95 %v, max %v",
		r.Succeeded, r.Iterations, r.Mean, r.P95, r.Max)
}

// Stress runs iterations sessions back to back with pause between them
// and reports latency. An unreachable orchestrator or a session error
// counts as a failure; the run continues. Cancelling ctx stops early
// and reports what finished.
func (r *Runner) Stress(ctx context.Context, iterations int, pause time.Duration) (StressReport, error) {
	if iterations <= 0 {
		return StressReport{}, fmt.Errorf("iterations must be positive, got %d", iterations)
	}
	report := StressReport{Modes: make(map[negotiate.Mode]int)}
	var durations []time.Duration

	for i := range iterations {
		if i > 0 && pause > 0 {
			select {
			case <-r.clock.After(pause):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			break
		}

		outcome, err := r.Run(ctx)
		if errors.Is(err, ErrSessionActive) {
			return report, err
		}
		report.Iterations++
		report.Modes[outcome.Mode]++
		durations = append(durations, outcome.Duration())
		if err != nil || outcome.Mode == negotiate.ModeUnreachable {
			report.Failed++
		} else {
			report.Succeeded++
		}
		r.logger.Info("stress iteration",
			"iteration", i+1,
			"mode", outcome.Mode,
			"duration", outcome.Duration(),
			"error", outcome.Error,
		)
	}

	report.Mean, report.P95, report.Max = latency(durations)
	return report, ctx.Err()
}

// latency returns the mean, nearest-rank 95th percentile and maximum.
func latency(durations []time.Duration) (mean, p95, maximum time.Duration) {
	if len(durations) == 0 {
		return 0, 0, 0
	}
	sorted := slices.Clone(durations)
	slices.Sort(sorted)
	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	rank := (len(sorted)*95 + 99) / 100
	return total / time.Duration(len(sorted)), sorted[rank-1], sorted[len(sorted)-1]
}
