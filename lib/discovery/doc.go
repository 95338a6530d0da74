// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package discovery finds an orchestrator on the local network via
// DNS-SD over multicast DNS.
//
// The orchestrator advertises the service type "_sos._tcp" in the
// "local." domain. [Discoverer.Discover] browses for that type and
// returns the first responder that carries a usable address and port.
// First responder wins: when several orchestrators answer, which one
// is chosen depends on response timing. Sites with more than one
// orchestrator on a segment should configure the base address
// explicitly instead.
//
// Not finding an orchestrator is a normal outcome, not an error.
// Timeouts and facility failures (no multicast-capable interface,
// socket permission denied) all yield (Endpoint{}, false) and are
// logged at Info. Discover never writes the session configuration; the
// caller decides what to do with the result.
//
// The browse facility sits behind [Browser]. [ZeroconfBrowser] is the
// production implementation using github.com/grandcat/zeroconf; tests
// substitute an in-process fake.
package discovery
