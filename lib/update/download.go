// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/intamia/beacon/lib/binhash"
	"github.com/intamia/beacon/lib/netutil"
)

// partialSuffix marks an artifact that has not finished downloading
// and verifying.
const partialSuffix = ".partial"

// Artifact is a downloaded update on disk.
type Artifact struct {
	Path string `json:"path"`
	// Verified is false only when the manifest published no digest.
	Verified bool   `json:"verified"`
	Digest   string `json:"sha256"`
	Entry    Entry  `json:"entry"`
}

// DownloadError is a failed artifact transfer. StatusCode is zero when
// the failure was not an HTTP status.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("downloading %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("downloading %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// IntegrityError means the downloaded bytes do not match the published
// digest. The file has been removed.
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("artifact %s failed verification: sha256 %s, manifest says %s",
		filepath.Base(e.Path), e.Actual, strings.ToLower(e.Expected))
}

// ArtifactPath is where entry's artifact lands once verified.
func (m *Manager) ArtifactPath(entry Entry) string {
	return filepath.Join(m.config.Dir, m.config.ArtifactPrefix+safeName(entry.VersionName)+m.config.ArtifactExt)
}

// Download fetches, verifies and stages entry's artifact.
func (m *Manager) Download(ctx context.Context, entry Entry) (Artifact, error) {
	if m.config.Dir == "" {
		return Artifact{}, errors.New("no update download directory configured")
	}
	source, err := m.resolve(entry.DownloadURL)
	if err != nil {
		return Artifact{}, &DownloadError{URL: entry.DownloadURL, Err: err}
	}
	if err := os.MkdirAll(m.config.Dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("creating update directory: %w", err)
	}

	finalPath := m.ArtifactPath(entry)
	partialPath := finalPath + partialSuffix

	streamed, err := m.fetch(ctx, source, partialPath)
	if err != nil {
		os.Remove(partialPath)
		return Artifact{}, err
	}

	artifact := Artifact{Path: finalPath, Entry: entry, Digest: binhash.FormatDigest(streamed)}
	if entry.SHA256 == "" {
		m.logger.Warn("manifest publishes no sha256; artifact is unverified",
			"version_name", entry.VersionName,
			"path", finalPath,
		)
	} else {
		if err := verify(partialPath, streamed, entry.SHA256); err != nil {
			os.Remove(partialPath)
			var integrity *IntegrityError
			if errors.As(err, &integrity) {
				integrity.Path = finalPath
				m.logger.Error("update artifact discarded",
					"version_name", entry.VersionName,
					"expected", integrity.Expected,
					"actual", integrity.Actual,
				)
			}
			return Artifact{}, err
		}
		artifact.Verified = true
	}

	if err := os.Rename(partialPath, finalPath); err != nil {
		os.Remove(partialPath)
		return Artifact{}, fmt.Errorf("moving verified artifact into place: %w", err)
	}
	if err := m.writeStage(artifact); err != nil {
		return artifact, err
	}

	m.logger.Info("update staged",
		"version_code", entry.VersionCode,
		"version_name", entry.VersionName,
		"path", finalPath,
		"verified", artifact.Verified,
	)
	return artifact, nil
}

// fetch streams source into path and returns the digest of the bytes
// written.
func (m *Manager) fetch(ctx context.Context, source, path string) ([32]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return [32]byte{}, &DownloadError{URL: source, Err: err}
	}
	response, err := m.client.Do(request)
	if err != nil {
		return [32]byte{}, &DownloadError{URL: source, Err: err}
	}
	defer netutil.DrainAndClose(response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return [32]byte{}, &DownloadError{URL: source, StatusCode: response.StatusCode}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return [32]byte{}, fmt.Errorf("creating %s: %w", path, err)
	}
	hasher := binhash.NewHasher()
	if _, err := io.Copy(io.MultiWriter(file, hasher), response.Body); err != nil {
		file.Close()
		return [32]byte{}, &DownloadError{URL: source, Err: err}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return [32]byte{}, fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return [32]byte{}, fmt.Errorf("closing %s: %w", path, err)
	}
	return hasher.Digest(), nil
}

// verify checks both the streamed digest and a fresh digest of the
// file against the published value.
func verify(path string, streamed [32]byte, published string) error {
	if !binhash.Matches(streamed, published) {
		return &IntegrityError{Path: path, Expected: published, Actual: binhash.FormatDigest(streamed)}
	}
	onDisk, err := binhash.HashFile(path)
	if err != nil {
		return err
	}
	if !binhash.Matches(onDisk, published) {
		return &IntegrityError{Path: path, Expected: published, Actual: binhash.FormatDigest(onDisk)}
	}
	return nil
}

// resolve makes a manifest download URL absolute against the current
// base address.
func (m *Manager) resolve(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("empty download URL")
	}
	reference, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if reference.IsAbs() {
		return reference.String(), nil
	}
	base, err := url.Parse(m.base.BaseAddress() + "/")
	if err != nil {
		return "", err
	}
	return base.ResolveReference(reference).String(), nil
}

// safeName keeps a version name usable as a file name component.
func safeName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	mapped = strings.Trim(mapped, ".")
	if mapped == "" {
		return "unknown"
	}
	return mapped
}
