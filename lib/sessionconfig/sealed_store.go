// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package sessionconfig

import (
	"context"
	"fmt"

	"github.com/intamia/beacon/lib/sealed"
)

// SealedStore encrypts the values of selected keys before handing them
// to the wrapped store. Other keys pass through unchanged.
type SealedStore struct {
	inner  Store
	sealer *sealed.Sealer
	keys   map[string]bool
}

// NewSealedStore seals the given keys (KeyToken when none are named).
func NewSealedStore(inner Store, sealer *sealed.Sealer, keys ...string) *SealedStore {
	if len(keys) == 0 {
		keys = []string{KeyToken}
	}
	sealedKeys := make(map[string]bool, len(keys))
	for _, key := range keys {
		sealedKeys[key] = true
	}
	return &SealedStore{inner: inner, sealer: sealer, keys: sealedKeys}
}

func (s *SealedStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, found, err := s.inner.Get(ctx, key)
	if err != nil || !found || !s.keys[key] {
		return value, found, err
	}
	plaintext, err := s.sealer.Open(value)
	if err != nil {
		return "", false, fmt.Errorf("unsealing %q: %w", key, err)
	}
	return string(plaintext), true, nil
}

func (s *SealedStore) Set(ctx context.Context, key, value string) error {
	if !s.keys[key] {
		return s.inner.Set(ctx, key, value)
	}
	ciphertext, err := s.sealer.Seal([]byte(value))
	if err != nil {
		return fmt.Errorf("sealing %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, ciphertext)
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
