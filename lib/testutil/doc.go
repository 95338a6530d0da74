// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for beacon packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not hang forever when a goroutine under
// test never delivers.
//
// [Orchestrator] is an httptest-backed fake of the orchestrator's HTTP
// surface (/health, /turn, /updates/manifest.json, artifact downloads,
// /webrtc/offer). Tests configure responses per endpoint and inspect
// the recorded requests afterwards.
//
// [DiscardLogger] returns a logger that drops everything, for
// constructors that require one.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
