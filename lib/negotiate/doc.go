// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package negotiate decides how a session talks to the orchestrator.
//
// [Negotiator.Negotiate] is the only place the transport is chosen. It
// probes GET {base}/health with the short probe client. Any 2xx answer
// means reachable; the body is ignored. Connection failure, timeout or
// a non-2xx status means [ModeUnreachable], with the cause kept in
// [Decision.Reason]. There is no retry: the user pressing the button
// again is the retry.
//
// A reachable orchestrator is then matched against the local
// [RealTimeCapability]. When real-time media is available the decision
// is [ModeRealTime]; otherwise [ModeFallback], the synchronous
// record-and-upload exchange.
package negotiate
