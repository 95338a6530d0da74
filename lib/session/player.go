// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Player plays reply audio. Playback itself belongs to the host; the
// session only hands over a resolved URL.
type Player interface {
	Play(ctx context.Context, audioURL string) error
}

// LogPlayer records the URL without playing anything.
type LogPlayer struct {
	Logger *slog.Logger
}

// Play implements [Player].
func (p LogPlayer) Play(_ context.Context, audioURL string) error {
	p.Logger.Info("reply audio ready", "audio_url", audioURL)
	return nil
}

// CommandPlayer runs Argv with the URL appended and waits for it, for
// example ["ffplay", "-nodisp", "-autoexit", "-loglevel", "error"].
type CommandPlayer struct {
	Argv []string
}

// Play implements [Player].
func (p CommandPlayer) Play(ctx context.Context, audioURL string) error {
	if len(p.Argv) == 0 {
		return fmt.Errorf("no player command configured")
	}
	args := append(append([]string(nil), p.Argv[1:]...), audioURL)
	output, err := exec.CommandContext(ctx, p.Argv[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("running %s: %w: %s", p.Argv[0], err, strings.TrimSpace(string(output)))
	}
	return nil
}
