// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

var _ Signaler = (*LoopbackAnswerer)(nil)

// LoopbackAnswerer answers offers with an in-process PeerConnection.
// Remote audio is drained. The control channel echoes what it reads.
type LoopbackAnswerer struct {
	logger *slog.Logger

	mu    sync.Mutex
	peers []*webrtc.PeerConnection
}

// NewLoopbackAnswerer returns an answerer with no peers yet.
func NewLoopbackAnswerer(logger *slog.Logger) *LoopbackAnswerer {
	return &LoopbackAnswerer{logger: logger}
}

// Exchange implements [Signaler]. baseAddress is ignored.
func (a *LoopbackAnswerer) Exchange(ctx context.Context, _ string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	pc, err := newPeerConnection(ICEConfig{})
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("creating answering PeerConnection: %w", err)
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		go drainTrack(track, nil)
	})
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnOpen(func() {
			stream, err := dc.Detach()
			if err != nil {
				a.logger.Warn("detaching loopback data channel failed", "label", dc.Label(), "error", err)
				return
			}
			go func() {
				defer stream.Close()
				io.Copy(stream, stream)
			}()
		})
	})

	answer, err := answerOffer(ctx, pc, offer)
	if err != nil {
		pc.Close()
		return webrtc.SessionDescription{}, err
	}

	a.mu.Lock()
	a.peers = append(a.peers, pc)
	a.mu.Unlock()
	return answer, nil
}

// Answer is Exchange on raw SDP strings, the shape an HTTP fake of the
// signaling endpoint needs.
func (a *LoopbackAnswerer) Answer(offerSDP string) (string, error) {
	answer, err := a.Exchange(context.Background(), "", webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	})
	if err != nil {
		return "", err
	}
	return answer.SDP, nil
}

// Close closes every answered PeerConnection.
func (a *LoopbackAnswerer) Close() {
	a.mu.Lock()
	peers := a.peers
	a.peers = nil
	a.mu.Unlock()
	for _, pc := range peers {
		pc.Close()
	}
}

func answerOffer(ctx context.Context, pc *webrtc.PeerConnection, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("setting remote description: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("creating SDP answer: %w", err)
	}
	if err := gather(ctx, pc, answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return *pc.LocalDescription(), nil
}
