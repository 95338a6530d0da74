// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/intamia/beacon/lib/channel"
	"github.com/intamia/beacon/lib/clock"
	"github.com/intamia/beacon/lib/testutil"
)

type staticAddress string

func (s staticAddress) BaseAddress() string { return string(s) }

type recordingInstaller struct {
	mu        sync.Mutex
	installed []Artifact
	err       error
}

func (r *recordingInstaller) Install(_ context.Context, artifact Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.installed = append(r.installed, artifact)
	return nil
}

func (r *recordingInstaller) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.installed)
}

var stagedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newManager(t *testing.T, base string, currentCode int, installer Installer) *Manager {
	t.Helper()
	factory, err := channel.New(channel.Config{}, nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}
	config := Config{Dir: t.TempDir(), CurrentCode: currentCode}
	manager, err := NewManager(factory, staticAddress(base), config, installer, clock.Fake(stagedAt), testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return manager
}

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func manifest(code any, name, url, sha string) string {
	return fmt.Sprintf(`{"android":{"versionCode":%v,"versionName":%q,"download_url":%q,"sha256":%q,"notes":"fixes"}}`,
		code, name, url, sha)
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantFound bool
		wantCode  int
		wantName  string
		wantErr   bool
	}{
		{name: "numeric code", body: `{"android":{"versionCode":7,"versionName":"1.7","download_url":"/a"}}`, wantFound: true, wantCode: 7, wantName: "1.7"},
		{name: "string code", body: `{"android":{"versionCode":"12","download_url":"/a"}}`, wantFound: true, wantCode: 12, wantName: "12"},
		{name: "missing platform", body: `{"ios":{"versionCode":3}}`},
		{name: "null platform", body: `{"android":null}`},
		{name: "bad code", body: `{"android":{"versionCode":"seven"}}`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			entry, found, err := ParseManifest([]byte(test.body), "android")
			if (err != nil) != test.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, test.wantErr)
			}
			if found != test.wantFound {
				t.Fatalf("found = %v, want %v", found, test.wantFound)
			}
			if !found {
				return
			}
			if entry.VersionCode != test.wantCode {
				t.Errorf("VersionCode = %d, want %d", entry.VersionCode, test.wantCode)
			}
			if entry.VersionName != test.wantName {
				t.Errorf("VersionName = %q, want %q", entry.VersionName, test.wantName)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		want       Status
		wantReason string
	}{
		{name: "newer", body: manifest(5, "1.5", "/artifacts/SOS_1.5.apk", ""), want: StatusUpdateAvailable},
		{name: "same", body: manifest(3, "1.3", "/artifacts/x", ""), want: StatusNoUpdate},
		{name: "older", body: manifest(1, "1.1", "/artifacts/x", ""), want: StatusNoUpdate},
		{name: "other platform only", body: `{"ios":{"versionCode":99}}`, want: StatusNoUpdate},
		{name: "server error", status: http.StatusInternalServerError, body: "{}", want: StatusCheckFailed, wantReason: "HTTP 500"},
		{name: "garbage", body: "not json", want: StatusCheckFailed, wantReason: "decoding manifest"},
		{name: "no download url", body: manifest(9, "1.9", "", ""), want: StatusCheckFailed, wantReason: "download_url"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			orchestrator := testutil.NewOrchestrator(t)
			orchestrator.Configure(func(state *testutil.OrchestratorState) {
				state.ManifestStatus = test.status
				state.ManifestBody = test.body
			})
			manager := newManager(t, orchestrator.URL(), 3, nil)

			result := manager.Check(context.Background())
			if result.Status != test.want {
				t.Fatalf("status = %v, want %v (reason %q)", result.Status, test.want, result.Reason)
			}
			if test.wantReason != "" && !strings.Contains(result.Reason, test.wantReason) {
				t.Errorf("reason = %q, want it to mention %q", result.Reason, test.wantReason)
			}
			if test.want == StatusUpdateAvailable && result.Entry.VersionCode != 5 {
				t.Errorf("entry code = %d, want 5", result.Entry.VersionCode)
			}
		})
	}
}

func TestCheckMissingManifest(t *testing.T) {
	orchestrator := testutil.NewOrchestrator(t)
	manager := newManager(t, orchestrator.URL(), 1, nil)

	if _, ok := manager.CheckManifest(context.Background()); ok {
		t.Fatal("CheckManifest reported an update with no manifest served")
	}
	if got := len(orchestrator.Requests(DefaultManifestPath)); got != 1 {
		t.Errorf("manifest requests = %d, want 1", got)
	}
}

func TestDownloadVerified(t *testing.T) {
	payload := []byte("release build 1.5")
	orchestrator := testutil.NewOrchestrator(t)
	orchestrator.Configure(func(state *testutil.OrchestratorState) {
		state.Artifacts = map[string][]byte{"beacon.apk": payload}
	})
	manager := newManager(t, orchestrator.URL(), 3, nil)

	entry := Entry{VersionCode: 5, VersionName: "1.5", DownloadURL: "artifacts/beacon.apk", SHA256: strings.ToUpper(digestOf(payload))}
	artifact, err := manager.Download(context.Background(), entry)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !artifact.Verified {
		t.Error("artifact not marked verified")
	}
	if filepath.Base(artifact.Path) != "SOS_1.5.apk" {
		t.Errorf("artifact name = %q, want SOS_1.5.apk", filepath.Base(artifact.Path))
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("artifact contents = %q, want %q", data, payload)
	}
	if _, err := os.Stat(artifact.Path + partialSuffix); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("partial file left behind: %v", err)
	}

	stage, err := ReadStage(artifact.Path)
	if err != nil {
		t.Fatalf("ReadStage: %v", err)
	}
	if stage.Entry.VersionCode != 5 || !stage.Verified {
		t.Errorf("stage = %+v", stage)
	}
	if !stage.StagedAt.Equal(stagedAt) {
		t.Errorf("StagedAt = %v, want %v", stage.StagedAt, stagedAt)
	}
}

func TestDownloadDigestMismatchRemovesFile(t *testing.T) {
	orchestrator := testutil.NewOrchestrator(t)
	orchestrator.Configure(func(state *testutil.OrchestratorState) {
		state.Artifacts = map[string][]byte{"beacon.apk": []byte("tampered")}
	})
	manager := newManager(t, orchestrator.URL(), 3, nil)

	entry := Entry{VersionCode: 5, VersionName: "1.5", DownloadURL: "/artifacts/beacon.apk", SHA256: digestOf([]byte("genuine"))}
	_, err := manager.Download(context.Background(), entry)

	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("error = %v, want *IntegrityError", err)
	}
	if integrity.Actual != digestOf([]byte("tampered")) {
		t.Errorf("Actual = %q", integrity.Actual)
	}
	entries, err := os.ReadDir(manager.config.Dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("update directory holds %d files after mismatch, want 0", len(entries))
	}
	if _, found, _ := manager.Staged(); found {
		t.Error("mismatched artifact is staged")
	}
}

func TestDownloadWithoutDigestIsUnverified(t *testing.T) {
	orchestrator := testutil.NewOrchestrator(t)
	orchestrator.Configure(func(state *testutil.OrchestratorState) {
		state.Artifacts = map[string][]byte{"beacon.apk": []byte("bytes")}
	})
	manager := newManager(t, orchestrator.URL(), 3, nil)

	artifact, err := manager.Download(context.Background(), Entry{VersionCode: 4, VersionName: "1.4", DownloadURL: orchestrator.URL() + "/artifacts/beacon.apk"})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if artifact.Verified {
		t.Error("artifact marked verified without a published digest")
	}
	if artifact.Digest != digestOf([]byte("bytes")) {
		t.Errorf("Digest = %q", artifact.Digest)
	}
}

func TestDownloadHTTPError(t *testing.T) {
	orchestrator := testutil.NewOrchestrator(t)
	manager := newManager(t, orchestrator.URL(), 3, nil)

	_, err := manager.Download(context.Background(), Entry{VersionCode: 4, VersionName: "1.4", DownloadURL: "/artifacts/missing.apk"})
	var download *DownloadError
	if !errors.As(err, &download) {
		t.Fatalf("error = %v, want *DownloadError", err)
	}
	if download.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", download.StatusCode)
	}
}

func TestCheckAndStageInstalls(t *testing.T) {
	payload := []byte("release build 2.0")
	orchestrator := testutil.NewOrchestrator(t)
	orchestrator.Configure(func(state *testutil.OrchestratorState) {
		state.ManifestBody = manifest(`"20"`, "2.0", "/artifacts/SOS_2.0.apk", digestOf(payload))
		state.Artifacts = map[string][]byte{"SOS_2.0.apk": payload}
	})
	installer := &recordingInstaller{}
	manager := newManager(t, orchestrator.URL(), 3, installer)

	outcome, err := manager.CheckAndStage(context.Background())
	if err != nil {
		t.Fatalf("CheckAndStage: %v", err)
	}
	if !outcome.Installed {
		t.Fatal("outcome not installed")
	}
	if installer.count() != 1 {
		t.Fatalf("installer called %d times, want 1", installer.count())
	}
	if _, err := os.Stat(StagePath(outcome.Artifact.Path)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stage record survives install: %v", err)
	}
	if _, err := os.Stat(outcome.Artifact.Path); err != nil {
		t.Errorf("verified artifact missing after install: %v", err)
	}
}

func TestCheckAndStageMismatchNeverInstalls(t *testing.T) {
	orchestrator := testutil.NewOrchestrator(t)
	orchestrator.Configure(func(state *testutil.OrchestratorState) {
		state.ManifestBody = manifest(20, "2.0", "/artifacts/SOS_2.0.apk", digestOf([]byte("genuine")))
		state.Artifacts = map[string][]byte{"SOS_2.0.apk": []byte("tampered")}
	})
	installer := &recordingInstaller{}
	manager := newManager(t, orchestrator.URL(), 3, installer)

	outcome, err := manager.CheckAndStage(context.Background())
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("error = %v, want *IntegrityError", err)
	}
	if outcome.Installed || installer.count() != 0 {
		t.Error("installer ran for a mismatched artifact")
	}
}

func TestCheckAndStageWithoutInstaller(t *testing.T) {
	payload := []byte("build")
	orchestrator := testutil.NewOrchestrator(t)
	orchestrator.Configure(func(state *testutil.OrchestratorState) {
		state.ManifestBody = manifest(8, "1.8", "/artifacts/b.apk", digestOf(payload))
		state.Artifacts = map[string][]byte{"b.apk": payload}
	})
	manager := newManager(t, orchestrator.URL(), 3, nil)

	outcome, err := manager.CheckAndStage(context.Background())
	if err != nil {
		t.Fatalf("CheckAndStage: %v", err)
	}
	if outcome.Installed || outcome.Artifact == nil {
		t.Fatalf("outcome = %+v, want staged but not installed", outcome)
	}
	if err := manager.Install(context.Background(), *outcome.Artifact); !errors.Is(err, ErrNoInstaller) {
		t.Errorf("Install error = %v, want ErrNoInstaller", err)
	}

	staged, found, err := manager.Staged()
	if err != nil || !found {
		t.Fatalf("Staged = found %v, err %v", found, err)
	}
	if staged.Entry.VersionCode != 8 {
		t.Errorf("staged code = %d, want 8", staged.Entry.VersionCode)
	}
}

func TestStagedSkipsModifiedArtifact(t *testing.T) {
	payload := []byte("build")
	orchestrator := testutil.NewOrchestrator(t)
	orchestrator.Configure(func(state *testutil.OrchestratorState) {
		state.Artifacts = map[string][]byte{"b.apk": payload}
	})
	manager := newManager(t, orchestrator.URL(), 3, nil)

	artifact, err := manager.Download(context.Background(), Entry{VersionCode: 8, VersionName: "1.8", DownloadURL: "/artifacts/b.apk", SHA256: digestOf(payload)})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if err := os.WriteFile(artifact.Path, []byte("swapped"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := manager.Staged(); found {
		t.Error("Staged returned an artifact whose bytes changed")
	}
}

func TestCommandInstaller(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	dir := t.TempDir()
	marker := filepath.Join(dir, "installed")
	installer := CommandInstaller{Argv: []string{"/bin/sh", "-c", `cp "$0" ` + marker}}

	artifactPath := filepath.Join(dir, "SOS_1.apk")
	if err := os.WriteFile(artifactPath, []byte("apk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := installer.Install(context.Background(), Artifact{Path: artifactPath}); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if data, err := os.ReadFile(marker); err != nil || string(data) != "apk" {
		t.Errorf("marker = %q, %v", data, err)
	}

	failing := CommandInstaller{Argv: []string{"/bin/sh", "-c", "echo refused >&2; exit 3"}}
	err := failing.Install(context.Background(), Artifact{Path: artifactPath})
	if err == nil || !strings.Contains(err.Error(), "refused") {
		t.Errorf("error = %v, want it to quote installer output", err)
	}

	if err := (CommandInstaller{}).Install(context.Background(), Artifact{}); !errors.Is(err, ErrNoInstaller) {
		t.Errorf("empty argv error = %v, want ErrNoInstaller", err)
	}
}
