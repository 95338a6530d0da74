// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionconfig holds the process-wide orchestrator settings:
// the base address every request is built from and the optional bearer
// token.
//
// [Config] is safe for concurrent use. Reads take a read lock and never
// wait on persistence; writes are serialized, applied in memory first
// (so every later read sees them, last writer wins) and then written
// through to a [Store]. The base address always carries a scheme and a
// host; an empty token means requests go out without an Authorization
// header.
//
// Stores: [MemoryStore] for tests and ephemeral runs, [SQLiteStore] for
// the device state database, and [SealedStore], which wraps another
// store and encrypts the token with an age identity before it is
// written.
package sessionconfig
