// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package negotiate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/intamia/beacon/lib/channel"
	"github.com/intamia/beacon/lib/netutil"
	"github.com/intamia/beacon/lib/sessionconfig"
)

// DefaultHealthPath is the orchestrator's liveness endpoint.
const DefaultHealthPath = "/health"

// Mode is the negotiated transport.
type Mode string

const (
	ModeRealTime    Mode = "realtime"
	ModeFallback    Mode = "fallback"
	ModeUnreachable Mode = "unreachable"
)

// Decision is the outcome of one negotiation. Reachable is false
// exactly when Mode is ModeUnreachable.
type Decision struct {
	Reachable bool `json:"reachable"`
	Mode      Mode `json:"mode"`
	// Reason explains an unreachable decision.
	Reason string `json:"reason,omitempty"`
}

// RealTimeCapability reports whether a real-time media session can be
// established from this device.
type RealTimeCapability interface {
	Available() bool
}

// Negotiator probes the orchestrator and picks a transport.
type Negotiator struct {
	client     *http.Client
	healthPath string
	capability RealTimeCapability
	logger     *slog.Logger
}

// New returns a Negotiator probing with the factory's probe client. A
// nil capability means real-time is never offered. An empty
// healthPath means DefaultHealthPath.
func New(factory *channel.Factory, capability RealTimeCapability, healthPath string, logger *slog.Logger) *Negotiator {
	if healthPath == "" {
		healthPath = DefaultHealthPath
	}
	return &Negotiator{
		client:     factory.Client(channel.ProfileProbe),
		healthPath: healthPath,
		capability: capability,
		logger:     logger,
	}
}

// Negotiate probes baseAddress and returns the transport decision.
func (n *Negotiator) Negotiate(ctx context.Context, baseAddress string) Decision {
	if err := n.Probe(ctx, baseAddress); err != nil {
		n.logger.Warn("orchestrator unreachable",
			"base_url", baseAddress,
			"error", err,
		)
		return Decision{Mode: ModeUnreachable, Reason: err.Error()}
	}

	if n.capability != nil && n.capability.Available() {
		n.logger.Info("transport negotiated", "base_url", baseAddress, "mode", ModeRealTime)
		return Decision{Reachable: true, Mode: ModeRealTime}
	}
	n.logger.Info("transport negotiated", "base_url", baseAddress, "mode", ModeFallback)
	return Decision{Reachable: true, Mode: ModeFallback}
}

// Probe performs the health check once. A nil error means the
// orchestrator answered with a 2xx status.
func (n *Negotiator) Probe(ctx context.Context, baseAddress string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, sessionconfig.JoinPath(baseAddress, n.healthPath), nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	response, err := n.client.Do(request)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer netutil.DrainAndClose(response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("health probe: HTTP %d", response.StatusCode)
	}
	return nil
}
