// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the real-time media path between a beacon
// device and the orchestrator.
//
// [Capability] answers the question the negotiator asks: can this
// device run a WebRTC session at all? It builds a pion/webrtc API with
// the default codec set and creates (then closes) a PeerConnection. The
// answer is computed once and cached, and configuration can disable
// real-time entirely.
//
// [Session.Start] establishes a call. The device is always the offerer.
// The offer carries one send-receive audio transceiver and an ordered
// "control" data channel. Signaling is vanilla ICE: all candidates are
// gathered before the offer is sent, so one round-trip through a
// [Signaler] is enough. [HTTPSignaler] posts the offer as JSON to
// {base}/webrtc/offer and reads the answer from the response body.
//
// A [Call] exposes the local audio track ([Call.Microphone]) for the
// media layer to feed, and the control channel as a net.Conn
// ([Call.Control]) wrapped by [ControlConn]. Encoding microphone audio
// and playing remote audio are not this package's job; remote RTP is
// drained and counted so the transceiver never stalls.
//
// [LoopbackAnswerer] is an in-process answering peer. It lets tests
// and local demos complete the whole offer/answer/ICE sequence without
// an orchestrator; it echoes whatever arrives on the control channel.
package transport
