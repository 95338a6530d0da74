// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Hasher accumulates a SHA-256 digest of everything written to it.
type Hasher struct {
	hash  hash.Hash
	count int64
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{hash: sha256.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	h.hash.Write(p)
	h.count += int64(len(p))
	return len(p), nil
}

// Digest returns the digest of the bytes written so far.
func (h *Hasher) Digest() [32]byte {
	var digest [32]byte
	copy(digest[:], h.hash.Sum(nil))
	return digest
}

// Count is the number of bytes written.
func (h *Hasher) Count() int64 { return h.count }

// HashFile computes the SHA-256 digest of the file at path.
func HashFile(path string) ([32]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := NewHasher()
	if _, err := io.Copy(hasher, file); err != nil {
		return [32]byte{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return hasher.Digest(), nil
}

// FormatDigest returns the lowercase hex encoding of a digest.
func FormatDigest(digest [32]byte) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses a 64-character hex digest in either case.
func ParseDigest(hexString string) ([32]byte, error) {
	var digest [32]byte
	decoded, err := hex.DecodeString(strings.TrimSpace(hexString))
	if err != nil {
		return digest, fmt.Errorf("parsing hash digest: %w", err)
	}
	if len(decoded) != 32 {
		return digest, fmt.Errorf("hash digest is %d bytes, want 32", len(decoded))
	}
	copy(digest[:], decoded)
	return digest, nil
}

// Matches reports whether digest equals the published hex string,
// ignoring case. A malformed published string never matches.
func Matches(digest [32]byte, published string) bool {
	expected, err := ParseDigest(published)
	if err != nil {
		return false
	}
	return expected == digest
}
