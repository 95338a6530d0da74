// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package session runs one emergency voice session end to end.
//
// A [Runner] strings the components together in a fixed order:
// discovery (optional) updates the shared configuration, the
// negotiator probes the orchestrator and picks a transport, and the
// session then either hands off to a real-time call or records a clip,
// exchanges it through the turn endpoint and gives the reply audio to a
// [Player]. An unreachable orchestrator ends the session before the
// microphone is touched.
//
// A Runner allows one session at a time. A second Run while one is in
// flight fails fast with [ErrSessionActive]; it is never queued or
// interleaved with the active one.
//
// Progress is reported as human-readable status lines through a
// [StatusSink]. The CLI prints them; the control API fans them out to
// WebSocket subscribers.
package session
