// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/intamia/beacon/lib/binhash"
	"github.com/intamia/beacon/lib/codec"
)

// stageSuffix names the sidecar written next to a staged artifact.
const stageSuffix = ".stage"

// Stage is the on-disk record of a staged artifact.
type Stage struct {
	Entry    stageEntry `cbor:"entry"`
	Digest   string     `cbor:"sha256"`
	Verified bool       `cbor:"verified"`
	StagedAt time.Time  `cbor:"staged_at"`
}

type stageEntry struct {
	VersionCode int    `cbor:"version_code"`
	VersionName string `cbor:"version_name"`
	DownloadURL string `cbor:"download_url"`
	SHA256      string `cbor:"sha256,omitempty"`
	Notes       string `cbor:"notes,omitempty"`
}

// StagePath is the sidecar path for an artifact.
func StagePath(artifactPath string) string {
	return artifactPath + stageSuffix
}

// ReadStage decodes the sidecar of artifactPath.
func ReadStage(artifactPath string) (Stage, error) {
	data, err := os.ReadFile(StagePath(artifactPath))
	if err != nil {
		return Stage{}, err
	}
	var stage Stage
	if err := codec.Unmarshal(data, &stage); err != nil {
		return Stage{}, fmt.Errorf("decoding %s: %w", StagePath(artifactPath), err)
	}
	return stage, nil
}

func (m *Manager) writeStage(artifact Artifact) error {
	entry := artifact.Entry
	data, err := codec.Marshal(Stage{
		Entry: stageEntry{
			VersionCode: entry.VersionCode,
			VersionName: entry.VersionName,
			DownloadURL: entry.DownloadURL,
			SHA256:      entry.SHA256,
			Notes:       entry.Notes,
		},
		Digest:   artifact.Digest,
		Verified: artifact.Verified,
		StagedAt: m.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding stage record: %w", err)
	}
	path := StagePath(artifact.Path)
	temporary := path + partialSuffix
	if err := os.WriteFile(temporary, data, 0o644); err != nil {
		return fmt.Errorf("writing stage record: %w", err)
	}
	if err := os.Rename(temporary, path); err != nil {
		os.Remove(temporary)
		return fmt.Errorf("writing stage record: %w", err)
	}
	return nil
}

// Staged returns the newest staged artifact that is still newer than
// the running build and whose file still hashes to its recorded
// digest. Stale or tampered stages are skipped with a warning.
func (m *Manager) Staged() (Artifact, bool, error) {
	if m.config.Dir == "" {
		return Artifact{}, false, nil
	}
	sidecars, err := filepath.Glob(filepath.Join(m.config.Dir, "*"+stageSuffix))
	if err != nil {
		return Artifact{}, false, err
	}

	var best Artifact
	found := false
	for _, sidecar := range sidecars {
		artifactPath := sidecar[:len(sidecar)-len(stageSuffix)]
		stage, err := ReadStage(artifactPath)
		if err != nil {
			m.logger.Warn("ignoring unreadable stage record", "path", sidecar, "error", err)
			continue
		}
		if stage.Entry.VersionCode <= m.config.CurrentCode {
			continue
		}
		digest, err := binhash.HashFile(artifactPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				m.logger.Warn("ignoring unreadable staged artifact", "path", artifactPath, "error", err)
			}
			continue
		}
		if !binhash.Matches(digest, stage.Digest) {
			m.logger.Warn("staged artifact changed since staging", "path", artifactPath)
			continue
		}
		if found && stage.Entry.VersionCode <= best.Entry.VersionCode {
			continue
		}
		best = Artifact{
			Path:     artifactPath,
			Verified: stage.Verified,
			Digest:   stage.Digest,
			Entry: Entry{
				VersionCode: stage.Entry.VersionCode,
				VersionName: stage.Entry.VersionName,
				DownloadURL: stage.Entry.DownloadURL,
				SHA256:      stage.Entry.SHA256,
				Notes:       stage.Entry.Notes,
			},
		}
		found = true
	}
	return best, found, nil
}
