// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the device-local SQLite database that holds
// beacon's persisted state (orchestrator address, sealed bearer token).
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool with the pragmas a
// handheld needs:
//
//   - journal_mode=WAL: readers never block the single writer.
//   - synchronous=FULL: a configuration write survives power loss.
//     Writes are rare (pairing, discovery), so the fsync cost is
//     irrelevant next to losing a freshly paired token.
//   - busy_timeout=5000: wait for the write lock instead of failing
//     with SQLITE_BUSY when the control API and a CLI invocation race.
//   - foreign_keys=ON.
//
// [Pool.Do] borrows a connection for the length of a callback. Take and
// Put are there for callers that hold one across several steps.
// Connections are not safe for concurrent use.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/data/beacon/state.db",
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
package sqlitepool
