// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"testing"
	"time"

	"github.com/intamia/beacon/lib/channel"
	"github.com/intamia/beacon/lib/clock"
	"github.com/intamia/beacon/lib/testutil"
	"github.com/intamia/beacon/lib/update"
)

type fixedAddress string

func (a fixedAddress) BaseAddress() string { return string(a) }

func TestCheckUpdatesPeriodically(t *testing.T) {
	orchestrator := testutil.NewOrchestrator(t)
	orchestrator.Configure(func(state *testutil.OrchestratorState) {
		state.ManifestBody = `{"android":{"versionCode":3,"versionName":"1.3","download_url":"/artifacts/a.apk"}}`
	})

	logger := testutil.DiscardLogger()
	factory, err := channel.New(channel.Config{}, channel.StaticToken(""), logger)
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}
	fake := clock.Fake(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	manager, err := update.NewManager(factory, fixedAddress(orchestrator.URL()), update.Config{
		ManifestPath: update.DefaultManifestPath,
		Platform:     "android",
		Dir:          t.TempDir(),
		CurrentCode:  3,
	}, nil, fake, logger)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checkUpdatesPeriodically(ctx, manager, fake, 6*time.Hour, logger)
		close(done)
	}()

	fake.BlockUntil(1)
	if got := len(orchestrator.Requests(update.DefaultManifestPath)); got != 0 {
		t.Fatalf("checked %d times before the first interval", got)
	}

	for want := 1; want <= 2; want++ {
		fake.Advance(6 * time.Hour)
		deadline := time.Now().Add(5 * time.Second)
		for len(orchestrator.Requests(update.DefaultManifestPath)) < want {
			if time.Now().After(deadline) {
				t.Fatalf("manifest fetched %d times, want %d", len(orchestrator.Requests(update.DefaultManifestPath)), want)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "periodic checker did not stop")
}
