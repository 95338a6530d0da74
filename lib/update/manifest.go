// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/intamia/beacon/lib/netutil"
	"github.com/intamia/beacon/lib/sessionconfig"
)

// Status classifies a manifest check.
type Status int

const (
	StatusNoUpdate Status = iota
	StatusUpdateAvailable
	StatusCheckFailed
)

func (s Status) String() string {
	switch s {
	case StatusNoUpdate:
		return "no-update"
	case StatusUpdateAvailable:
		return "update-available"
	case StatusCheckFailed:
		return "check-failed"
	default:
		return "unknown"
	}
}

// MarshalText makes Status readable in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Entry is one platform's release in the manifest.
type Entry struct {
	VersionCode int    `json:"versionCode"`
	VersionName string `json:"versionName"`
	DownloadURL string `json:"download_url"`
	SHA256      string `json:"sha256"`
	Notes       string `json:"notes,omitempty"`
}

// CheckResult is the outcome of Check. Entry is set only for
// StatusUpdateAvailable; Reason only for StatusCheckFailed.
type CheckResult struct {
	Status Status `json:"status"`
	Entry  Entry  `json:"entry,omitzero"`
	Reason string `json:"reason,omitempty"`
}

// manifestEntry tolerates the loose typing of hand-edited manifests:
// versionCode may be a number or a numeric string.
type manifestEntry struct {
	VersionCode looseInt `json:"versionCode"`
	VersionName string   `json:"versionName"`
	DownloadURL string   `json:"download_url"`
	SHA256      string   `json:"sha256"`
	Notes       string   `json:"notes"`
}

type looseInt int

func (l *looseInt) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if text == "" || text == "null" {
		*l = 0
		return nil
	}
	value, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("versionCode %s is not an integer", data)
	}
	*l = looseInt(value)
	return nil
}

// ParseManifest extracts platform's entry from a manifest body. The
// boolean is false when the manifest has no entry for platform.
func ParseManifest(body []byte, platform string) (Entry, bool, error) {
	var manifest map[string]json.RawMessage
	if err := json.Unmarshal(body, &manifest); err != nil {
		return Entry{}, false, fmt.Errorf("decoding manifest: %w", err)
	}
	raw, ok := manifest[platform]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return Entry{}, false, nil
	}
	var decoded manifestEntry
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Entry{}, false, fmt.Errorf("decoding %q entry: %w", platform, err)
	}
	entry := Entry{
		VersionCode: int(decoded.VersionCode),
		VersionName: strings.TrimSpace(decoded.VersionName),
		DownloadURL: strings.TrimSpace(decoded.DownloadURL),
		SHA256:      strings.TrimSpace(decoded.SHA256),
		Notes:       decoded.Notes,
	}
	if entry.VersionName == "" {
		entry.VersionName = strconv.Itoa(entry.VersionCode)
	}
	return entry, true, nil
}

// Check fetches the manifest and compares it with the running build.
func (m *Manager) Check(ctx context.Context) CheckResult {
	base := m.base.BaseAddress()
	result := m.check(ctx, base)
	switch result.Status {
	case StatusUpdateAvailable:
		m.logger.Info("update available",
			"base_url", base,
			"current_code", m.config.CurrentCode,
			"version_code", result.Entry.VersionCode,
			"version_name", result.Entry.VersionName,
		)
	case StatusNoUpdate:
		m.logger.Info("no update available", "base_url", base, "current_code", m.config.CurrentCode)
	case StatusCheckFailed:
		m.logger.Warn("update check failed", "base_url", base, "reason", result.Reason)
	}
	return result
}

// CheckManifest is Check reduced to "is there an entry to install".
// Failures report false.
func (m *Manager) CheckManifest(ctx context.Context) (Entry, bool) {
	result := m.Check(ctx)
	return result.Entry, result.Status == StatusUpdateAvailable
}

func (m *Manager) check(ctx context.Context, base string) CheckResult {
	failed := func(format string, args ...any) CheckResult {
		return CheckResult{Status: StatusCheckFailed, Reason: fmt.Sprintf(format, args...)}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, sessionconfig.JoinPath(base, m.config.ManifestPath), nil)
	if err != nil {
		return failed("building manifest request: %v", err)
	}
	request.Header.Set("Accept", "application/json")
	response, err := m.client.Do(request)
	if err != nil {
		return failed("fetching manifest: %v", err)
	}
	defer netutil.DrainAndClose(response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return failed("manifest: HTTP %d", response.StatusCode)
	}
	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return failed("reading manifest: %v", err)
	}
	entry, found, err := ParseManifest(body, m.config.Platform)
	if err != nil {
		return failed("%v", err)
	}
	if !found || entry.VersionCode <= m.config.CurrentCode {
		return CheckResult{Status: StatusNoUpdate}
	}
	if entry.DownloadURL == "" {
		return failed("manifest entry %d has no download_url", entry.VersionCode)
	}
	return CheckResult{Status: StatusUpdateAvailable, Entry: entry}
}
