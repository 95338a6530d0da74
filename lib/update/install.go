// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNoInstaller is returned by Install when no installer is
// configured. The artifact stays staged.
var ErrNoInstaller = errors.New("no update installer configured")

// Installer hands a staged artifact to whatever applies it.
type Installer interface {
	Install(ctx context.Context, artifact Artifact) error
}

// CommandInstaller runs Argv with the artifact path appended, for
// example ["adb", "install", "-r"] or ["pm", "install", "-r"].
type CommandInstaller struct {
	Argv []string
}

// maxInstallerOutput bounds how much installer output an error quotes.
const maxInstallerOutput = 2 << 10

// Install implements [Installer].
func (c CommandInstaller) Install(ctx context.Context, artifact Artifact) error {
	if len(c.Argv) == 0 {
		return ErrNoInstaller
	}
	args := append(append([]string(nil), c.Argv[1:]...), artifact.Path)
	command := exec.CommandContext(ctx, c.Argv[0], args...)
	output, err := command.CombinedOutput()
	if err != nil {
		excerpt := strings.TrimSpace(string(output))
		if len(excerpt) > maxInstallerOutput {
			excerpt = excerpt[:maxInstallerOutput]
		}
		return fmt.Errorf("running %s: %w: %s", c.Argv[0], err, excerpt)
	}
	return nil
}

// Install triggers installation of a staged artifact and removes its
// stage record on success.
func (m *Manager) Install(ctx context.Context, artifact Artifact) error {
	if m.installer == nil {
		return ErrNoInstaller
	}
	m.logger.Info("installing update",
		"version_name", artifact.Entry.VersionName,
		"path", artifact.Path,
		"verified", artifact.Verified,
	)
	if err := m.installer.Install(ctx, artifact); err != nil {
		return fmt.Errorf("installing %s: %w", artifact.Entry.VersionName, err)
	}
	if err := os.Remove(StagePath(artifact.Path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("removing stage record", "error", err)
	}
	return nil
}

// Outcome summarizes CheckAndStage.
type Outcome struct {
	Check     CheckResult `json:"check"`
	Artifact  *Artifact   `json:"artifact,omitempty"`
	Installed bool        `json:"installed"`
}

// CheckAndStage runs the whole chain: check, download and verify, then
// install when an installer is configured. A failed check is reported
// in the outcome, not as an error.
func (m *Manager) CheckAndStage(ctx context.Context) (Outcome, error) {
	outcome := Outcome{Check: m.Check(ctx)}
	if outcome.Check.Status != StatusUpdateAvailable {
		return outcome, nil
	}

	artifact, err := m.Download(ctx, outcome.Check.Entry)
	if err != nil {
		return outcome, err
	}
	outcome.Artifact = &artifact

	if m.installer == nil {
		m.logger.Info("update staged without installer", "path", artifact.Path)
		return outcome, nil
	}
	if err := m.Install(ctx, artifact); err != nil {
		return outcome, err
	}
	outcome.Installed = true
	return outcome, nil
}
