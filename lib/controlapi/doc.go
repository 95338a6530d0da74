// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package controlapi is the local HTTP boundary that a UI process (the
// on-screen SOS button, a wake-word listener) uses to drive beacon.
//
// Routes:
//
//	POST /v1/sos           start a session in the background (202), or
//	                       ?wait=true to block and return the outcome
//	GET  /v1/status        configuration snapshot, activity, last outcome
//	POST /v1/update/check  run an update check and return its result
//	GET  /v1/events        WebSocket stream of session status lines
//
// A second POST /v1/sos while a session runs answers 409 Conflict. The
// events stream sends one JSON object per status line and pings the
// peer periodically so idle connections through NAT stay open.
//
// [Server] owns the listener lifecycle: Serve blocks until its context
// is cancelled, then drains in-flight requests.
package controlapi
