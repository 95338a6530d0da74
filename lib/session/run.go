// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/intamia/beacon/lib/negotiate"
)

// run carries the per-session state through the steps of Run.
type run struct {
	*Runner
	outcome Outcome
	logger  *slog.Logger
}

// Run performs one session. The returned error is non-nil only when a
// step after negotiation failed; an unreachable orchestrator is a
// normal outcome with Mode set to [negotiate.ModeUnreachable].
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	claimed, err := r.Start()
	if err != nil {
		return Outcome{}, err
	}
	return claimed(ctx)
}

// Claimed performs a session whose slot is already held. It must be
// called exactly once; the slot is released when it returns.
type Claimed func(ctx context.Context) (Outcome, error)

// Start takes the runner's single session slot without running
// anything yet, so a caller can acknowledge the session before doing
// the work elsewhere. It returns [ErrSessionActive] when the slot is taken.
func (r *Runner) Start() (Claimed, error) {
	if !r.active.CompareAndSwap(false, true) {
		return nil, ErrSessionActive
	}
	var once sync.Once
	return func(ctx context.Context) (Outcome, error) {
		ran := false
		once.Do(func() { ran = true })
		if !ran {
			return Outcome{}, ErrSessionActive
		}
		defer r.active.Store(false)
		return r.perform(ctx)
	}, nil
}

func (r *Runner) perform(ctx context.Context) (Outcome, error) {
	id := uuid.NewString()
	session := &run{
		Runner:  r,
		outcome: Outcome{ID: id, Started: r.clock.Now()},
		logger:  r.logger.With("session_id", id),
	}
	err := session.execute(ctx)
	session.outcome.Finished = r.clock.Now()
	if err != nil {
		session.outcome.Error = err.Error()
	}
	r.remember(session.outcome)

	session.logger.Info("session finished",
		"mode", session.outcome.Mode,
		"duration", session.outcome.Duration(),
		"error", session.outcome.Error,
	)
	return session.outcome, err
}

func (s *run) execute(ctx context.Context) error {
	s.locate(ctx)

	base := s.config.Settings.BaseAddress()
	s.outcome.BaseAddress = base
	s.status("checking orchestrator health")
	decision := s.config.Negotiator.Negotiate(ctx, base)
	s.outcome.Mode = decision.Mode
	if !decision.Reachable {
		s.outcome.Reason = decision.Reason
		s.status("orchestrator unreachable: " + decision.Reason)
		return nil
	}
	s.status("orchestrator reachable")

	if decision.Mode == negotiate.ModeRealTime {
		handled, err := s.realTime(ctx, base)
		if handled {
			return err
		}
		s.outcome.Mode = negotiate.ModeFallback
	}
	return s.fallback(ctx, base)
}

// locate runs discovery when configured. A found orchestrator replaces
// the configured address; not finding one keeps it.
func (s *run) locate(ctx context.Context) {
	if s.config.Discoverer == nil {
		return
	}
	s.status("searching for orchestrator")
	endpoint, found := s.config.Discoverer.Discover(ctx, s.config.DiscoveryTimeout)
	if !found {
		s.status("no orchestrator discovered, using " + s.config.Settings.BaseAddress())
		return
	}
	if err := s.config.Settings.SetDiscovered(ctx, endpoint.Host, endpoint.Port); err != nil {
		// The address is already live in memory; only persistence failed.
		s.logger.Warn("persisting discovered orchestrator", "endpoint", endpoint.String(), "error", err)
	}
	s.outcome.Discovered = true
	s.status("orchestrator discovered at " + endpoint.String())
}

// realTime attempts a real-time call. handled is false when the call
// could not start and the session should fall back.
func (s *run) realTime(ctx context.Context, base string) (handled bool, err error) {
	if s.config.RealTime == nil {
		s.outcome.Reason = "real-time transport not configured"
		return false, nil
	}
	s.status("starting real-time session")
	call, err := s.config.RealTime.Start(ctx, base)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		s.logger.Warn("real-time session failed, falling back", "error", err)
		s.outcome.Reason = err.Error()
		s.status("real-time session failed, falling back to file exchange")
		return false, nil
	}
	s.status("real-time session connected")

	select {
	case <-call.Done():
		s.status("real-time session ended")
	case <-ctx.Done():
		s.status("real-time session cancelled")
	}
	s.outcome.ReceivedPackets = call.ReceivedPackets()
	if err := call.Close(); err != nil {
		s.logger.Warn("closing real-time session", "error", err)
	}
	return true, nil
}

func (s *run) fallback(ctx context.Context, base string) error {
	seconds := s.config.CaptureSeconds
	s.status(fmt.Sprintf("recording %d seconds", seconds))
	clip, err := s.config.Capture.Capture(ctx, seconds)
	if err != nil {
		s.status("recording failed")
		return fmt.Errorf("capturing speech: %w", err)
	}

	s.status("sending turn")
	reply, err := s.config.Turn.SendTurn(ctx, base, clip)
	if err != nil {
		s.status("turn exchange failed")
		return fmt.Errorf("exchanging turn: %w", err)
	}
	s.outcome.Reply = &reply

	if preview := reply.Preview(); preview != "" {
		s.status("reply: " + preview)
	}
	if !reply.HasAudio() {
		s.status("reply has no audio")
		return nil
	}

	audioURL, err := reply.ResolveAudioURL(s.config.Settings.BaseURL())
	if err != nil {
		s.logger.Warn("reply audio URL unusable", "audio_url", reply.AudioURL, "error", err)
		s.status("reply audio URL unusable")
		return nil
	}
	s.outcome.AudioURL = audioURL
	s.status("playing reply")
	if err := s.config.Player.Play(ctx, audioURL); err != nil {
		s.logger.Warn("playing reply", "audio_url", audioURL, "error", err)
		s.status("playback failed")
	}
	return nil
}

func (s *run) status(line string) {
	s.logger.Info("session status", "status", line)
	if s.config.Status == nil {
		return
	}
	s.config.Status.Publish(Status{SessionID: s.outcome.ID, Time: s.clock.Now(), Line: line})
}
