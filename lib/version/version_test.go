// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestCode(t *testing.T) {
	original := VersionCode
	t.Cleanup(func() { VersionCode = original })

	tests := []struct {
		injected string
		want     int
	}{
		{"14", 14},
		{"0", 0},
		{"", 0},
		{"1.4", 0},
		{"-3", 0},
	}
	for _, test := range tests {
		VersionCode = test.injected
		if got := Code(); got != test.want {
			t.Errorf("Code() with VersionCode=%q = %d, want %d", test.injected, got, test.want)
		}
	}
}

func TestInfo(t *testing.T) {
	originalVersion, originalCode, originalDirty := Version, VersionCode, GitDirty
	t.Cleanup(func() { Version, VersionCode, GitDirty = originalVersion, originalCode, originalDirty })

	Version, VersionCode, GitDirty = "1.4.0", "14", "true"
	info := Info()
	for _, want := range []string{"1.4.0", "[14]", "-dirty"} {
		if !strings.Contains(info, want) {
			t.Errorf("Info() = %q, missing %q", info, want)
		}
	}
	if !strings.HasPrefix(Full(), info) {
		t.Errorf("Full() does not start with Info()")
	}
}

func TestSelfDigest(t *testing.T) {
	digest, path, err := SelfDigest()
	if err != nil {
		t.Fatalf("SelfDigest: %v", err)
	}
	if len(digest) != 64 {
		t.Errorf("digest %q is not 64 hex characters", digest)
	}
	if path == "" {
		t.Error("empty executable path")
	}
}
