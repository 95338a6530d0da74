// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pion/webrtc/v4"

	"github.com/intamia/beacon/lib/channel"
	"github.com/intamia/beacon/lib/netutil"
	"github.com/intamia/beacon/lib/sessionconfig"
)

// DefaultSignalingPath is where the orchestrator accepts offers.
const DefaultSignalingPath = "/webrtc/offer"

// Signaler carries one offer to the orchestrator at baseAddress and
// returns its answer. Offers are complete (vanilla ICE), so a single
// exchange is the whole signaling conversation.
type Signaler interface {
	Exchange(ctx context.Context, baseAddress string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error)
}

// SignalingError is a non-2xx answer from the signaling endpoint.
type SignalingError struct {
	StatusCode int
	Body       string
}

func (e *SignalingError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("signaling: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("signaling: HTTP %d: %s", e.StatusCode, e.Body)
}

var _ Signaler = (*HTTPSignaler)(nil)

// HTTPSignaler posts offers as {"type":"offer","sdp":"..."} and expects
// {"type":"answer","sdp":"..."} back.
type HTTPSignaler struct {
	client *http.Client
	path   string
}

// NewHTTPSignaler signals over the factory's exchange client. An empty
// path means DefaultSignalingPath.
func NewHTTPSignaler(factory *channel.Factory, path string) *HTTPSignaler {
	if path == "" {
		path = DefaultSignalingPath
	}
	return &HTTPSignaler{client: factory.Client(channel.ProfileExchange), path: path}
}

// Exchange implements [Signaler].
func (s *HTTPSignaler) Exchange(ctx context.Context, baseAddress string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	body, err := json.Marshal(offer)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("encoding offer: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, sessionconfig.JoinPath(baseAddress, s.path), bytes.NewReader(body))
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("building signaling request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("posting offer: %w", err)
	}
	defer netutil.DrainAndClose(response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return webrtc.SessionDescription{}, &SignalingError{
			StatusCode: response.StatusCode,
			Body:       netutil.ErrorBody(response.Body),
		}
	}

	var answer webrtc.SessionDescription
	if err := netutil.DecodeResponse(response.Body, &answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("decoding answer: %w", err)
	}
	if answer.Type != webrtc.SDPTypeAnswer || answer.SDP == "" {
		return webrtc.SessionDescription{}, fmt.Errorf("orchestrator returned %q description, want a non-empty answer", answer.Type)
	}
	return answer, nil
}
