// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response handling for beacon's
// orchestrator clients.
//
// The orchestrator is reached over a trust-on-LAN link, so nothing it
// sends is read without a limit. JSON replies (turn replies, update
// manifests, signaling answers) are capped at [MaxResponseSize].
// Error bodies quoted in error messages are capped at [MaxErrorBody].
// Bodies that are only consumed for connection reuse (the health
// probe) are drained through [DrainAndClose]. Artifact downloads are
// streamed with io.Copy and never pass through these helpers.
//
// [IsExpectedCloseError] classifies errors seen when a status stream
// client disconnects.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MaxResponseSize bounds JSON API reads: 1 MiB. Orchestrator replies
// are a few hundred bytes.
const MaxResponseSize int64 = 1 << 20

// MaxErrorBody bounds the slice of an error response quoted in error
// messages.
const MaxErrorBody int64 = 4 << 10

// maxDrain is how much of an ignored body is read before closing.
const maxDrain int64 = 64 << 10

// ReadResponse reads a JSON API response body up to MaxResponseSize
// bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a JSON API response body (up to MaxResponseSize
// bytes) and JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads the start of an error response for diagnostics. Read
// errors are ignored: a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBody))
	return strings.TrimSpace(string(data))
}

// DrainAndClose discards a bounded amount of body so the connection can
// be reused, then closes it.
func DrainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, maxDrain))
	body.Close()
}
