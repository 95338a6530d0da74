// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"bytes"
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeArtifact(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "SOS_17.apk")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestHashFile(t *testing.T) {
	large := make([]byte, 300<<10)
	for i := range large {
		large[i] = byte(i % 251)
	}

	tests := []struct {
		name    string
		content []byte
	}{
		{"empty", nil},
		{"small", []byte("release 1.7")},
		{"larger than one copy buffer", large},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := HashFile(writeArtifact(t, test.content))
			if err != nil {
				t.Fatalf("HashFile: %v", err)
			}
			if want := sha256.Sum256(test.content); got != want {
				t.Errorf("HashFile = %x, want %x", got, want)
			}
		})
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "gone.apk")); err == nil {
		t.Fatal("HashFile succeeded on a missing file")
	}
}

func TestHasherWhileDownloading(t *testing.T) {
	content := []byte("bytes hashed as they arrive")
	hasher := NewHasher()
	var saved bytes.Buffer
	if _, err := io.Copy(&saved, io.TeeReader(bytes.NewReader(content), hasher)); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	fromFile, err := HashFile(writeArtifact(t, saved.Bytes()))
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if hasher.Digest() != fromFile {
		t.Errorf("streamed digest %x, file digest %x", hasher.Digest(), fromFile)
	}
	if hasher.Count() != int64(len(content)) {
		t.Errorf("Count = %d, want %d", hasher.Count(), len(content))
	}
}

func TestParseDigest(t *testing.T) {
	digest := sha256.Sum256([]byte("manifest"))
	formatted := FormatDigest(digest)
	if len(formatted) != 64 || formatted != strings.ToLower(formatted) {
		t.Fatalf("FormatDigest = %q, want 64 lowercase hex characters", formatted)
	}
	parsed, err := ParseDigest(strings.ToUpper(formatted))
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if parsed != digest {
		t.Errorf("ParseDigest = %x, want %x", parsed, digest)
	}

	for _, bad := range []string{"", "abcd", strings.Repeat("z", 64), formatted + "aa"} {
		if _, err := ParseDigest(bad); err == nil {
			t.Errorf("ParseDigest(%q) succeeded", bad)
		}
	}
}

func TestMatches(t *testing.T) {
	digest := sha256.Sum256([]byte("apk"))
	lower := FormatDigest(digest)

	tests := []struct {
		name      string
		published string
		want      bool
	}{
		{"lowercase", lower, true},
		{"uppercase", strings.ToUpper(lower), true},
		{"surrounding space", " " + lower + "\n", true},
		{"different digest", FormatDigest(sha256.Sum256([]byte("other"))), false},
		{"truncated", lower[:62], false},
		{"empty", "", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Matches(digest, test.published); got != test.want {
				t.Errorf("Matches(%q) = %v, want %v", test.published, got, test.want)
			}
		})
	}
}
