// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSealOpen(t *testing.T) {
	sealer, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	ciphertext, err := sealer.Seal([]byte("bearer-token-123"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if strings.Contains(ciphertext, "bearer-token-123") {
		t.Fatal("ciphertext contains the plaintext")
	}
	plaintext, err := sealer.Open(ciphertext)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(plaintext) != "bearer-token-123" {
		t.Errorf("plaintext = %q", plaintext)
	}
}

func TestOpenWithWrongIdentity(t *testing.T) {
	alice, _ := Generate()
	bob, _ := Generate()
	ciphertext, err := alice.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := bob.Open(ciphertext); err == nil {
		t.Fatal("Open with another identity succeeded")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	sealer, _ := Generate()
	if _, err := sealer.Open("not base64!"); err == nil {
		t.Error("expected base64 error")
	}
	if _, err := sealer.Open("aGVsbG8="); err == nil {
		t.Error("expected age error")
	}
}

func TestLoadOrCreatePersistsIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "identity.txt")

	first, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate (create): %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("identity file mode = %v, want 0600", info.Mode().Perm())
	}

	second, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate (load): %v", err)
	}
	if first.Recipient() != second.Recipient() {
		t.Error("reloaded identity differs from the created one")
	}

	ciphertext, _ := first.Seal([]byte("x"))
	if _, err := second.Open(ciphertext); err != nil {
		t.Errorf("reloaded identity cannot open: %v", err)
	}
}

func TestLoadEmptyIdentityFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.txt")
	if err := os.WriteFile(path, []byte("# only comments\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadOrCreate(path); err == nil {
		t.Fatal("expected error for identity file without a key")
	}
}
