// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package pairing reads the pairing URIs an orchestrator hands out
// (usually as a QR code) and applies them to the session configuration.
//
// A pairing URI has the form
//
//	sos://pair?token=<token>[&url=<base address>]
//
// The token is usually a JWT. The device has no key to verify it, so
// its claims are only inspected: a token that has already expired is
// rejected up front instead of failing on the first request.
package pairing
