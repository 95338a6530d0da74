// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/intamia/beacon/lib/channel"
	"github.com/intamia/beacon/lib/testutil"
)

func TestCapability_Disabled(t *testing.T) {
	capability := NewCapability(false, ICEConfig{}, testutil.DiscardLogger())
	if capability.Available() {
		t.Error("disabled capability reported available")
	}
}

func TestCapability_Enabled(t *testing.T) {
	capability := NewCapability(true, ICEConfig{}, testutil.DiscardLogger())
	if !capability.Available() {
		t.Error("enabled capability with host-only ICE reported unavailable")
	}
	// Cached: the second call must agree.
	if !capability.Available() {
		t.Error("second Available() call disagreed with the first")
	}
}

// TestSession_StartWithLoopback completes offer, answer and ICE against
// an in-process answerer, then round-trips a line over the control
// channel.
func TestSession_StartWithLoopback(t *testing.T) {
	answerer := NewLoopbackAnswerer(testutil.DiscardLogger())
	t.Cleanup(answerer.Close)
	session := NewSession(answerer, ICEConfig{}, testutil.DiscardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	call, err := session.Start(ctx, "loopback")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer call.Close()

	if call.Microphone() == nil {
		t.Error("call has no microphone track")
	}

	control := call.Control()
	control.SetDeadline(time.Now().Add(10 * time.Second))
	if _, err := control.Write([]byte("{\"type\":\"hello\"}\n")); err != nil {
		t.Fatalf("control Write: %v", err)
	}
	line, err := bufio.NewReader(control).ReadString('\n')
	if err != nil {
		t.Fatalf("control Read: %v", err)
	}
	if line != "{\"type\":\"hello\"}\n" {
		t.Errorf("echo = %q", line)
	}
}

func TestSession_CloseEndsCall(t *testing.T) {
	answerer := NewLoopbackAnswerer(testutil.DiscardLogger())
	t.Cleanup(answerer.Close)
	session := NewSession(answerer, ICEConfig{}, testutil.DiscardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	call, err := session.Start(ctx, "loopback")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-call.Done():
		t.Fatal("call ended before Close")
	default:
	}
	call.Close()
	testutil.RequireClosed(t, call.Done(), 5*time.Second, "call not done after Close")
	// Second Close is a no-op.
	call.Close()
}

func TestSession_StartOverHTTP(t *testing.T) {
	answerer := NewLoopbackAnswerer(testutil.DiscardLogger())
	t.Cleanup(answerer.Close)
	orchestrator := testutil.NewOrchestrator(t)
	orchestrator.Configure(func(state *testutil.OrchestratorState) {
		state.Answer = answerer.Answer
	})

	factory, err := channel.New(channel.Config{}, channel.StaticToken("tok"), testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}
	session := NewSession(NewHTTPSignaler(factory, ""), ICEConfig{}, testutil.DiscardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	call, err := session.Start(ctx, orchestrator.URL())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer call.Close()

	requests := orchestrator.Requests("/webrtc/offer")
	if len(requests) != 1 {
		t.Fatalf("got %d signaling requests, want 1", len(requests))
	}
	request := requests[0]
	if request.Authorization != "Bearer tok" {
		t.Errorf("Authorization = %q", request.Authorization)
	}
	if request.ContentType != "application/json" {
		t.Errorf("Content-Type = %q", request.ContentType)
	}
	var offer struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	}
	if err := json.Unmarshal(request.Body, &offer); err != nil {
		t.Fatalf("offer body: %v", err)
	}
	if offer.Type != "offer" {
		t.Errorf("type = %q, want offer", offer.Type)
	}
	if !strings.Contains(offer.SDP, "m=audio") || !strings.Contains(offer.SDP, "m=application") {
		t.Errorf("offer lacks audio or data channel section:\n%s", offer.SDP)
	}
	if !strings.Contains(offer.SDP, "a=candidate") {
		t.Error("offer has no embedded candidates; gathering did not complete before signaling")
	}
}

func TestHTTPSignaler_ErrorStatus(t *testing.T) {
	orchestrator := testutil.NewOrchestrator(t)
	factory, err := channel.New(channel.Config{}, nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}
	session := NewSession(NewHTTPSignaler(factory, ""), ICEConfig{}, testutil.DiscardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err = session.Start(ctx, orchestrator.URL())
	var signalingErr *SignalingError
	if !errors.As(err, &signalingErr) {
		t.Fatalf("error = %v, want *SignalingError", err)
	}
	if signalingErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", signalingErr.StatusCode)
	}
}

func TestSession_StartCancelled(t *testing.T) {
	session := NewSession(NewLoopbackAnswerer(testutil.DiscardLogger()), ICEConfig{}, testutil.DiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := session.Start(ctx, "loopback"); err == nil {
		t.Fatal("Start succeeded with a cancelled context")
	}
}
