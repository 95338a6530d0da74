// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"net"
	"sync"
	"time"
)

// ControlConn is the call's control data channel as a net.Conn. The
// detached pion stream is message-preserving SCTP underneath, so each
// Write arrives as one message; readers should treat it as a stream of
// newline-delimited JSON.
//
// Deadlines are enforced by closing the stream when they fire. An
// expired deadline therefore breaks the connection for good, the same
// trade-off net.Pipe makes.
type ControlConn struct {
	stream io.ReadWriteCloser
	label  string
	peer   string

	mu         sync.Mutex
	readTimer  *time.Timer
	writeTimer *time.Timer
	expired    bool
}

var _ net.Conn = (*ControlConn)(nil)

// NewControlConn wraps a detached data channel. label names the local
// end and peer the remote end, for addresses and logs.
func NewControlConn(stream io.ReadWriteCloser, label, peer string) *ControlConn {
	return &ControlConn{stream: stream, label: label, peer: peer}
}

func (c *ControlConn) Read(buffer []byte) (int, error) { return c.stream.Read(buffer) }

func (c *ControlConn) Write(buffer []byte) (int, error) { return c.stream.Write(buffer) }

// Close stops pending deadline timers and closes the stream.
func (c *ControlConn) Close() error {
	c.mu.Lock()
	c.readTimer = stopTimer(c.readTimer)
	c.writeTimer = stopTimer(c.writeTimer)
	c.mu.Unlock()
	return c.stream.Close()
}

func (c *ControlConn) LocalAddr() net.Addr  { return controlAddr(c.label) }
func (c *ControlConn) RemoteAddr() net.Addr { return controlAddr(c.peer) }

// SetDeadline sets both deadlines. The zero time clears them.
func (c *ControlConn) SetDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readTimer = c.armLocked(c.readTimer, deadline)
	c.writeTimer = c.armLocked(c.writeTimer, deadline)
	return nil
}

func (c *ControlConn) SetReadDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readTimer = c.armLocked(c.readTimer, deadline)
	return nil
}

func (c *ControlConn) SetWriteDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeTimer = c.armLocked(c.writeTimer, deadline)
	return nil
}

// armLocked replaces timer with one firing at deadline. Caller holds mu.
func (c *ControlConn) armLocked(timer *time.Timer, deadline time.Time) *time.Timer {
	stopTimer(timer)
	if deadline.IsZero() || c.expired {
		return nil
	}
	wait := time.Until(deadline)
	if wait <= 0 {
		c.expireLocked()
		return nil
	}
	return time.AfterFunc(wait, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.expireLocked()
	})
}

func (c *ControlConn) expireLocked() {
	if c.expired {
		return
	}
	c.expired = true
	c.stream.Close()
}

func stopTimer(timer *time.Timer) *time.Timer {
	if timer != nil {
		timer.Stop()
	}
	return nil
}

type controlAddr string

func (a controlAddr) Network() string { return "webrtc" }
func (a controlAddr) String() string  { return string(a) }
