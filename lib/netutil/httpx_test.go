// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
)

func TestReadResponse(t *testing.T) {
	t.Run("normal body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader([]byte(`{"audio_url":"x"}`)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"audio_url":"x"}` {
			t.Fatalf("got %q", data)
		}
	})

	t.Run("oversized body is truncated", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader(make([]byte, MaxResponseSize+10)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if int64(len(data)) != MaxResponseSize {
			t.Fatalf("read %d bytes, want %d", len(data), MaxResponseSize)
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if _, err := ReadResponse(&failReader{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestDecodeResponse(t *testing.T) {
	var result struct {
		VersionCode int `json:"versionCode"`
	}
	if err := DecodeResponse(strings.NewReader(`{"versionCode":42}`), &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.VersionCode != 42 {
		t.Fatalf("versionCode = %d, want 42", result.VersionCode)
	}
	if err := DecodeResponse(strings.NewReader(`not json`), &result); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if err := DecodeResponse(&failReader{}, &result); err == nil {
		t.Fatal("expected error from failing reader")
	}
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(strings.NewReader("  unauthorized\n")); got != "unauthorized" {
		t.Fatalf("got %q", got)
	}
	if got := ErrorBody(strings.NewReader(strings.Repeat("x", 10000))); int64(len(got)) != MaxErrorBody {
		t.Fatalf("error body length = %d, want %d", len(got), MaxErrorBody)
	}
	if got := ErrorBody(&failReader{}); got != "" {
		t.Fatalf("expected empty from failing reader, got %q", got)
	}
}

func TestDrainAndClose(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("ok")}
	DrainAndClose(body)
	if !body.closed {
		t.Fatal("body not closed")
	}
}

func TestIsExpectedCloseError(t *testing.T) {
	expected := []error{io.EOF, net.ErrClosed, syscall.EPIPE, syscall.ECONNRESET, fmt.Errorf("write: %w", syscall.EPIPE)}
	for _, err := range expected {
		if !IsExpectedCloseError(err) {
			t.Errorf("IsExpectedCloseError(%v) = false", err)
		}
	}
	for _, err := range []error{nil, fmt.Errorf("boom"), syscall.ENOENT} {
		if IsExpectedCloseError(err) {
			t.Errorf("IsExpectedCloseError(%v) = true", err)
		}
	}
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

// failReader always returns an error on Read.
type failReader struct{}

func (*failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}
