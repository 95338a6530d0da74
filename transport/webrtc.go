// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
)

// iceGatherTimeout bounds candidate gathering before the SDP is sent.
const iceGatherTimeout = 15 * time.Second

// iceConnectTimeout bounds the wait for the PeerConnection to reach
// Connected after the answer is applied.
const iceConnectTimeout = 30 * time.Second

// controlOpenTimeout bounds the wait for the control data channel.
const controlOpenTimeout = 10 * time.Second

// controlLabel names the call's control data channel.
const controlLabel = "control"

// Capability reports whether this device can run a real-time session.
// The check runs once; its result is cached for the process.
type Capability struct {
	enabled   bool
	iceConfig ICEConfig
	logger    *slog.Logger

	once      sync.Once
	available bool
}

// NewCapability returns a Capability. When enabled is false Available
// always reports false without touching pion.
func NewCapability(enabled bool, iceConfig ICEConfig, logger *slog.Logger) *Capability {
	return &Capability{enabled: enabled, iceConfig: iceConfig, logger: logger}
}

// Available implements negotiate.RealTimeCapability.
func (c *Capability) Available() bool {
	c.once.Do(c.check)
	return c.available
}

func (c *Capability) check() {
	if !c.enabled {
		c.logger.Debug("real-time sessions disabled by configuration")
		return
	}
	pc, err := newPeerConnection(c.iceConfig)
	if err != nil {
		c.logger.Warn("real-time sessions unavailable", "error", err)
		return
	}
	pc.Close()
	c.available = true
}

// Session starts real-time calls against an orchestrator.
type Session struct {
	signaler  Signaler
	iceConfig ICEConfig
	logger    *slog.Logger
}

// NewSession returns a Session signaling through signaler.
func NewSession(signaler Signaler, iceConfig ICEConfig, logger *slog.Logger) *Session {
	return &Session{signaler: signaler, iceConfig: iceConfig, logger: logger}
}

// Start offers a call to the orchestrator at baseAddress and returns
// once ICE is connected and the control channel is open. The returned
// call must be closed by the caller.
func (s *Session) Start(ctx context.Context, baseAddress string) (*Call, error) {
	pc, err := newPeerConnection(s.iceConfig)
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}
	fail := func(err error) (*Call, error) {
		pc.Close()
		return nil, err
	}

	call := &Call{
		connection: pc,
		done:       make(chan struct{}),
		logger:     s.logger.With("base_url", baseAddress),
	}

	microphone, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "beacon",
	)
	if err != nil {
		return fail(fmt.Errorf("creating microphone track: %w", err))
	}
	sender, err := pc.AddTrack(microphone)
	if err != nil {
		return fail(fmt.Errorf("adding microphone track: %w", err))
	}
	call.microphone = microphone
	go drainRTCP(sender)

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		call.logger.Info("remote audio track started", "codec", track.Codec().MimeType)
		go drainTrack(track, &call.received)
	})

	connected := make(chan struct{})
	var connectedOnce sync.Once
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		call.logger.Info("real-time connection state", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateConnected:
			connectedOnce.Do(func() { close(connected) })
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			call.finish()
		}
	})

	ordered := true
	control, err := pc.CreateDataChannel(controlLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return fail(fmt.Errorf("creating control channel: %w", err))
	}
	controlOpen := make(chan struct{})
	control.OnOpen(func() { close(controlOpen) })

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fail(fmt.Errorf("creating SDP offer: %w", err))
	}
	if err := gather(ctx, pc, offer); err != nil {
		return fail(err)
	}

	answer, err := s.signaler.Exchange(ctx, baseAddress, *pc.LocalDescription())
	if err != nil {
		return fail(fmt.Errorf("exchanging offer: %w", err))
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		return fail(fmt.Errorf("setting remote description: %w", err))
	}

	if err := wait(ctx, connected, call.done, iceConnectTimeout, "ICE connection"); err != nil {
		return fail(err)
	}
	if err := wait(ctx, controlOpen, call.done, controlOpenTimeout, "control channel"); err != nil {
		return fail(err)
	}

	stream, err := control.Detach()
	if err != nil {
		return fail(fmt.Errorf("detaching control channel: %w", err))
	}
	call.control = NewControlConn(stream, "beacon/"+controlLabel, baseAddress+"/"+controlLabel)

	call.logger.Info("real-time session established")
	return call, nil
}

// Call is an established real-time session.
type Call struct {
	connection *webrtc.PeerConnection
	microphone *webrtc.TrackLocalStaticSample
	control    *ControlConn
	logger     *slog.Logger

	received atomic.Uint64

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Done is closed when the call ends, locally or because the
// connection failed.
func (c *Call) Done() <-chan struct{} { return c.done }

// Control is the ordered control data channel.
func (c *Call) Control() net.Conn { return c.control }

// Microphone is the outbound Opus track. The media layer writes
// encoded samples to it.
func (c *Call) Microphone() *webrtc.TrackLocalStaticSample { return c.microphone }

// ReceivedPackets counts remote RTP packets drained so far.
func (c *Call) ReceivedPackets() uint64 { return c.received.Load() }

// Close hangs up. It is safe to call more than once.
func (c *Call) Close() error {
	c.closeOnce.Do(func() {
		if c.control != nil {
			c.control.Close()
		}
		c.closeErr = c.connection.Close()
		c.finish()
		c.logger.Info("real-time session closed", "received_packets", c.received.Load())
	})
	return c.closeErr
}

func (c *Call) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// newPeerConnection builds a PeerConnection with the default codecs,
// detachable data channels and loopback candidates (same-host
// orchestrators and tests have no other interface).
func newPeerConnection(iceConfig ICEConfig) (*webrtc.PeerConnection, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("registering codecs: %w", err)
	}
	settingEngine := webrtc.SettingEngine{}
	settingEngine.DetachDataChannels()
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithSettingEngine(settingEngine),
	)
	return api.NewPeerConnection(webrtc.Configuration{ICEServers: iceConfig.Servers})
}

// gather applies description locally and waits for candidate gathering
// to finish, so the resulting local description is complete.
func gather(ctx context.Context, pc *webrtc.PeerConnection, description webrtc.SessionDescription) error {
	complete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(description); err != nil {
		return fmt.Errorf("setting local description: %w", err)
	}
	timer := time.NewTimer(iceGatherTimeout)
	defer timer.Stop()
	select {
	case <-complete:
		return nil
	case <-timer.C:
		return fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func wait(ctx context.Context, ready, ended <-chan struct{}, timeout time.Duration, what string) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ready:
		return nil
	case <-ended:
		return fmt.Errorf("%s: connection closed", what)
	case <-timer.C:
		return fmt.Errorf("%s timed out after %s", what, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func drainTrack(track *webrtc.TrackRemote, counter *atomic.Uint64) {
	buffer := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buffer); err != nil {
			return
		}
		if counter != nil {
			counter.Add(1)
		}
	}
}

// drainRTCP reads the sender's RTCP so pion's interceptors keep
// running.
func drainRTCP(sender *webrtc.RTPSender) {
	buffer := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buffer); err != nil {
			return
		}
	}
}
