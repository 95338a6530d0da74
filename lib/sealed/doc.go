// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts small secrets (the orchestrator bearer token)
// before they reach the device state database. It wraps filippo.io/age
// with a single X25519 identity kept in a device-local identity file.
//
// Ciphertext is base64-encoded so it fits a TEXT column. The identity
// file uses the standard age format (one AGE-SECRET-KEY-1... line,
// optional "#" comments) and is created with mode 0600 by
// [LoadOrCreate] on first use.
package sealed
