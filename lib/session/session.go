// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/intamia/beacon/lib/capture"
	"github.com/intamia/beacon/lib/clock"
	"github.com/intamia/beacon/lib/discovery"
	"github.com/intamia/beacon/lib/negotiate"
	"github.com/intamia/beacon/lib/sessionconfig"
	"github.com/intamia/beacon/lib/turn"
	"github.com/intamia/beacon/transport"
)

// DefaultCaptureSeconds is the fallback recording length.
const DefaultCaptureSeconds = 5

// ErrSessionActive is returned by Run while another session is running
// on the same Runner.
var ErrSessionActive = errors.New("a session is already active")

// Discoverer finds an orchestrator on the local network.
type Discoverer interface {
	Discover(ctx context.Context, timeout time.Duration) (discovery.Endpoint, bool)
}

// Negotiator decides whether and how the orchestrator can be reached.
type Negotiator interface {
	Negotiate(ctx context.Context, baseAddress string) negotiate.Decision
}

// Capturer records speech.
type Capturer interface {
	Capture(ctx context.Context, durationSeconds int) (capture.Clip, error)
}

// TurnSender performs one request/response exchange.
type TurnSender interface {
	SendTurn(ctx context.Context, baseAddress string, clip capture.Clip) (turn.Reply, error)
}

// Call is a live real-time session.
type Call interface {
	Done() <-chan struct{}
	ReceivedPackets() uint64
	Close() error
}

// RealTime starts real-time calls.
type RealTime interface {
	Start(ctx context.Context, baseAddress string) (Call, error)
}

// TransportRealTime adapts a [transport.Session] to [RealTime].
type TransportRealTime struct {
	Session *transport.Session
}

// Start implements [RealTime].
func (t TransportRealTime) Start(ctx context.Context, baseAddress string) (Call, error) {
	call, err := t.Session.Start(ctx, baseAddress)
	if err != nil {
		return nil, err
	}
	return call, nil
}

// Status is one progress line of a session.
type Status struct {
	SessionID string    `json:"session_id"`
	Time      time.Time `json:"time"`
	Line      string    `json:"line"`
}

// StatusSink receives progress lines. Publish must not block.
type StatusSink interface {
	Publish(Status)
}

// StatusFunc adapts a function to [StatusSink].
type StatusFunc func(Status)

// Publish implements [StatusSink].
func (f StatusFunc) Publish(status Status) { f(status) }

// Outcome describes a finished session.
type Outcome struct {
	ID          string         `json:"id"`
	Mode        negotiate.Mode `json:"mode"`
	BaseAddress string         `json:"base_url"`
	Discovered  bool           `json:"discovered"`

	// Reason explains an unreachable orchestrator, or why a real-time
	// attempt fell back to the file exchange.
	Reason string `json:"reason,omitempty"`

	Reply    *turn.Reply `json:"reply,omitempty"`
	AudioURL string      `json:"audio_url,omitempty"`

	// ReceivedPackets counts remote audio packets of a real-time call.
	ReceivedPackets uint64 `json:"received_packets,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Error    string    `json:"error,omitempty"`
}

// Duration is the wall time between start and finish.
func (o Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}

// Config wires a Runner. Settings, Negotiator, Capture and Turn are
// required.
type Config struct {
	Settings   *sessionconfig.Config
	Negotiator Negotiator
	Capture    Capturer
	Turn       TurnSender

	// Discoverer is consulted before every session when set.
	Discoverer       Discoverer
	DiscoveryTimeout time.Duration

	// RealTime is used when negotiation picks real-time. Nil makes
	// real-time decisions fall back to the file exchange.
	RealTime RealTime

	Player         Player
	Status         StatusSink
	CaptureSeconds int
	Clock          clock.Clock
	Logger         *slog.Logger
}

// Runner runs sessions one at a time.
type Runner struct {
	config Config
	logger *slog.Logger
	clock  clock.Clock

	active atomic.Bool

	mu   sync.Mutex
	last *Outcome
}

// NewRunner validates config and returns a Runner.
func NewRunner(config Config) (*Runner, error) {
	switch {
	case config.Settings == nil:
		return nil, errors.New("session runner requires settings")
	case config.Negotiator == nil:
		return nil, errors.New("session runner requires a negotiator")
	case config.Capture == nil:
		return nil, errors.New("session runner requires a capture pipeline")
	case config.Turn == nil:
		return nil, errors.New("session runner requires a turn client")
	}
	if config.CaptureSeconds <= 0 {
		config.CaptureSeconds = DefaultCaptureSeconds
	}
	if config.DiscoveryTimeout <= 0 {
		config.DiscoveryTimeout = discovery.DefaultTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Player == nil {
		config.Player = LogPlayer{Logger: config.Logger}
	}
	return &Runner{config: config, logger: config.Logger, clock: config.Clock}, nil
}

// Active reports whether a session is running.
func (r *Runner) Active() bool {
	return r.active.Load()
}

// Last returns the most recently finished session.
func (r *Runner) Last() (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Outcome{}, false
	}
	return *r.last, true
}

func (r *Runner) remember(outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &outcome
}
