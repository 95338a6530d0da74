// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package negotiate

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/intamia/beacon/lib/channel"
	"github.com/intamia/beacon/lib/testutil"
)

type capabilityFunc func() bool

func (f capabilityFunc) Available() bool { return f() }

func newNegotiator(t *testing.T, capability RealTimeCapability) *Negotiator {
	t.Helper()
	factory, err := channel.New(channel.Config{ProbeTimeout: 200 * time.Millisecond}, nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}
	return New(factory, capability, "", testutil.DiscardLogger())
}

func TestNegotiateModes(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		want      Mode
	}{
		{"real-time available", true, ModeRealTime},
		{"real-time unavailable", false, ModeFallback},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			orchestrator := testutil.NewOrchestrator(t)
			negotiator := newNegotiator(t, capabilityFunc(func() bool { return test.available }))

			decision := negotiator.Negotiate(context.Background(), orchestrator.URL())
			if !decision.Reachable || decision.Mode != test.want {
				t.Errorf("decision = %+v, want reachable %s", decision, test.want)
			}
		})
	}
}

func TestNegotiateNilCapabilityFallsBack(t *testing.T) {
	orchestrator := testutil.NewOrchestrator(t)
	decision := newNegotiator(t, nil).Negotiate(context.Background(), orchestrator.URL())
	if decision.Mode != ModeFallback {
		t.Errorf("mode = %s, want %s", decision.Mode, ModeFallback)
	}
}

func TestNegotiateUnreachable(t *testing.T) {
	tests := []struct {
		name   string
		state  testutil.OrchestratorState
		reason string
	}{
		{"client error", testutil.OrchestratorState{HealthStatus: http.StatusUnauthorized}, "HTTP 401"},
		{"server error", testutil.OrchestratorState{HealthStatus: http.StatusServiceUnavailable}, "HTTP 503"},
		{"timeout", testutil.OrchestratorState{HealthDelay: 2 * time.Second}, "health probe"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			orchestrator := testutil.NewOrchestrator(t)
			orchestrator.Configure(func(state *testutil.OrchestratorState) { *state = test.state })
			asked := false
			negotiator := newNegotiator(t, capabilityFunc(func() bool { asked = true; return true }))

			decision := negotiator.Negotiate(context.Background(), orchestrator.URL())
			if decision.Reachable || decision.Mode != ModeUnreachable {
				t.Fatalf("decision = %+v, want unreachable", decision)
			}
			if !strings.Contains(decision.Reason, test.reason) {
				t.Errorf("reason = %q, want it to mention %q", decision.Reason, test.reason)
			}
			if asked {
				t.Error("real-time capability consulted for an unreachable orchestrator")
			}
			if got := len(orchestrator.Requests("/health")); got != 1 {
				t.Errorf("health probed %d times, want exactly 1 (no retry)", got)
			}
		})
	}
}

func TestNegotiateConnectionRefused(t *testing.T) {
	orchestrator := testutil.NewOrchestrator(t)
	address := orchestrator.URL()
	orchestrator.Server.Close()

	decision := newNegotiator(t, nil).Negotiate(context.Background(), address)
	if decision.Mode != ModeUnreachable || decision.Reason == "" {
		t.Errorf("decision = %+v, want unreachable with a reason", decision)
	}
}

func TestProbeSendsBearerToken(t *testing.T) {
	orchestrator := testutil.NewOrchestrator(t)
	factory, err := channel.New(channel.Config{}, channel.StaticToken("tok"), testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}
	negotiator := New(factory, nil, "/health", testutil.DiscardLogger())
	if err := negotiator.Probe(context.Background(), orchestrator.URL()+"/"); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	requests := orchestrator.Requests("/health")
	if len(requests) != 1 || requests[0].Authorization != "Bearer tok" {
		t.Errorf("requests = %+v, want one with the bearer token", requests)
	}
}
