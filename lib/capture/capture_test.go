// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/intamia/beacon/lib/testutil"
	"github.com/intamia/beacon/lib/wav"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStream serves data in reads of at most readSize bytes, then
// returns finalErr. When block is set, Read waits for Close instead and
// then returns closedErr (io.ErrClosedPipe when unset).
type fakeStream struct {
	data      []byte
	readSize  int
	finalErr  error
	block     bool
	closedErr error
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream(data []byte, readSize int, finalErr error) *fakeStream {
	return &fakeStream{data: data, readSize: readSize, finalErr: finalErr, closed: make(chan struct{})}
}

func (s *fakeStream) Read(p []byte) (int, error) {
	if s.block {
		<-s.closed
		if s.closedErr != nil {
			return 0, s.closedErr
		}
		return 0, io.ErrClosedPipe
	}
	if len(s.data) == 0 {
		return 0, s.finalErr
	}
	n := min(len(p), s.readSize, len(s.data))
	copy(p, s.data[:n])
	s.data = s.data[n:]
	return n, nil
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// fakeMicrophone hands out pre-built streams and tracks how many are
// open at once.
type fakeMicrophone struct {
	mu        sync.Mutex
	streams   []*fakeStream
	openErr   error
	opens     int
	active    atomic.Int32
	maxActive atomic.Int32
	opened    chan *fakeStream
}

func (m *fakeMicrophone) Open(context.Context) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	stream := m.streams[m.opens]
	m.opens++
	active := m.active.Add(1)
	if active > m.maxActive.Load() {
		m.maxActive.Store(active)
	}
	if m.opened != nil {
		m.opened <- stream
	}
	return &trackedStream{fakeStream: stream, microphone: m}, nil
}

type trackedStream struct {
	*fakeStream
	microphone *fakeMicrophone
	once       sync.Once
}

func (s *trackedStream) Close() error {
	s.once.Do(func() { s.microphone.active.Add(-1) })
	return s.fakeStream.Close()
}

func samples(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 253)
	}
	return data
}

func TestCaptureFullDuration(t *testing.T) {
	for _, seconds := range []int{1, 2, 3} {
		total := seconds * 16000 * 2
		// Odd read sizes exercise accumulation of partial chunks.
		stream := newFakeStream(samples(total+5000), 777, io.EOF)
		microphone := &fakeMicrophone{streams: []*fakeStream{stream}}
		pipeline := NewPipeline(microphone, Config{}, discardLogger())

		clip, err := pipeline.Capture(context.Background(), seconds)
		if err != nil {
			t.Fatalf("Capture(%d): %v", seconds, err)
		}
		if len(clip.Payload) != total {
			t.Errorf("payload = %d bytes, want %d", len(clip.Payload), total)
		}
		if !clip.Complete() {
			t.Error("Complete() = false for a full capture")
		}
		if !bytes.Equal(clip.Payload, samples(total)) {
			t.Error("payload bytes do not match the stream")
		}
		if !stream.isClosed() {
			t.Error("stream not closed after capture")
		}

		container, err := clip.Container()
		if err != nil {
			t.Fatalf("Container: %v", err)
		}
		if got := binary.LittleEndian.Uint32(container[40:44]); int(got) != total {
			t.Errorf("dataLength = %d, want %d", got, total)
		}
		format, payload, err := wav.Parse(container)
		if err != nil {
			t.Fatalf("wav.Parse: %v", err)
		}
		if format.SampleRate != 16000 || format.Channels != 1 || format.BitsPerSample != 16 {
			t.Errorf("format = %+v", format)
		}
		if len(payload) != total {
			t.Errorf("parsed payload = %d bytes, want %d", len(payload), total)
		}
	}
}

func TestCaptureUnderrun(t *testing.T) {
	stream := newFakeStream(samples(1000), 300, io.EOF)
	pipeline := NewPipeline(&fakeMicrophone{streams: []*fakeStream{stream}}, Config{}, discardLogger())

	clip, err := pipeline.Capture(context.Background(), 1)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(clip.Payload) != 1000 {
		t.Fatalf("payload = %d bytes, want 1000", len(clip.Payload))
	}
	if clip.Complete() {
		t.Error("Complete() = true for a short capture")
	}
	container, err := clip.Container()
	if err != nil {
		t.Fatalf("Container: %v", err)
	}
	if got := binary.LittleEndian.Uint32(container[40:44]); got != 1000 {
		t.Errorf("dataLength = %d, want bytes actually captured (1000)", got)
	}
	if !stream.isClosed() {
		t.Error("stream not closed after underrun")
	}
}

func TestCaptureOpenFailure(t *testing.T) {
	microphone := &fakeMicrophone{openErr: errors.New("permission denied")}
	pipeline := NewPipeline(microphone, Config{}, discardLogger())

	_, err := pipeline.Capture(context.Background(), 1)
	var captureErr *CaptureError
	if !errors.As(err, &captureErr) {
		t.Fatalf("error = %v, want *CaptureError", err)
	}
	if captureErr.Op != "open" {
		t.Errorf("Op = %q, want open", captureErr.Op)
	}

	// The handle must be free again.
	microphone.openErr = nil
	microphone.streams = []*fakeStream{newFakeStream(samples(32000), 32000, io.EOF)}
	if _, err := pipeline.Capture(context.Background(), 1); err != nil {
		t.Fatalf("Capture after open failure: %v", err)
	}
}

func TestCaptureReadErrorReleasesMicrophone(t *testing.T) {
	stream := newFakeStream(samples(500), 500, errors.New("device unplugged"))
	microphone := &fakeMicrophone{streams: []*fakeStream{stream}}
	pipeline := NewPipeline(microphone, Config{}, discardLogger())

	_, err := pipeline.Capture(context.Background(), 1)
	var captureErr *CaptureError
	if !errors.As(err, &captureErr) || captureErr.Op != "read" {
		t.Fatalf("error = %v, want read CaptureError", err)
	}
	if !stream.isClosed() {
		t.Error("stream not closed after read error")
	}
	if microphone.active.Load() != 0 {
		t.Errorf("active streams = %d, want 0", microphone.active.Load())
	}
}

func TestCaptureCancelUnblocksRead(t *testing.T) {
	stream := newFakeStream(nil, 0, nil)
	stream.block = true
	microphone := &fakeMicrophone{streams: []*fakeStream{stream}}
	pipeline := NewPipeline(microphone, Config{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := pipeline.Capture(ctx, 5)
		result <- err
	}()

	// Let the capture reach its blocking read before cancelling.
	for microphone.active.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	err := testutil.RequireReceive(t, result, 5*time.Second, "capture did not return after cancel")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if !stream.isClosed() {
		t.Error("microphone not released after cancel")
	}
}

// A killed recorder process usually reads as a clean end of stream.
func TestCaptureCancelWithEOFOnClose(t *testing.T) {
	stream := newFakeStream(nil, 0, nil)
	stream.block = true
	stream.closedErr = io.EOF
	microphone := &fakeMicrophone{streams: []*fakeStream{stream}}
	pipeline := NewPipeline(microphone, Config{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	type captureResult struct {
		clip Clip
		err  error
	}
	result := make(chan captureResult, 1)
	go func() {
		clip, err := pipeline.Capture(ctx, 5)
		result <- captureResult{clip, err}
	}()

	for microphone.active.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	got := testutil.RequireReceive(t, result, 5*time.Second, "capture did not return after cancel")
	if !errors.Is(got.err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", got.err)
	}
	if len(got.clip.Payload) != 0 {
		t.Errorf("cancelled capture returned %d bytes", len(got.clip.Payload))
	}
}

func TestCaptureSerializesMicrophone(t *testing.T) {
	first := newFakeStream(nil, 0, nil)
	first.block = true
	second := newFakeStream(samples(32000), 4000, io.EOF)
	microphone := &fakeMicrophone{
		streams: []*fakeStream{first, second},
		opened:  make(chan *fakeStream, 2),
	}
	pipeline := NewPipeline(microphone, Config{}, discardLogger())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := pipeline.Capture(firstCtx, 1)
		firstDone <- err
	}()
	testutil.RequireReceive(t, microphone.opened, 5*time.Second, "first capture did not open")

	secondDone := make(chan error, 1)
	go func() {
		_, err := pipeline.Capture(context.Background(), 1)
		secondDone <- err
	}()

	select {
	case <-microphone.opened:
		t.Fatal("second capture opened the microphone while the first held it")
	case <-time.After(50 * time.Millisecond):
	}

	cancelFirst()
	testutil.RequireReceive(t, firstDone, 5*time.Second, "first capture")
	if err := testutil.RequireReceive(t, secondDone, 5*time.Second, "second capture"); err != nil {
		t.Fatalf("second capture: %v", err)
	}
	if got := microphone.maxActive.Load(); got != 1 {
		t.Errorf("max concurrently open streams = %d, want 1", got)
	}
}

func TestCaptureQueuedCallerHonorsCancel(t *testing.T) {
	blocker := newFakeStream(nil, 0, nil)
	blocker.block = true
	microphone := &fakeMicrophone{streams: []*fakeStream{blocker}, opened: make(chan *fakeStream, 1)}
	pipeline := NewPipeline(microphone, Config{}, discardLogger())

	holderCtx, releaseHolder := context.WithCancel(context.Background())
	defer releaseHolder()
	go pipeline.Capture(holderCtx, 1)
	testutil.RequireReceive(t, microphone.opened, 5*time.Second, "holder did not open")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := pipeline.Capture(ctx, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("queued capture error = %v, want deadline exceeded", err)
	}
}

func TestCaptureRejectsNonPositiveDuration(t *testing.T) {
	pipeline := NewPipeline(&fakeMicrophone{}, Config{}, discardLogger())
	if _, err := pipeline.Capture(context.Background(), 0); err == nil {
		t.Error("expected error for zero duration")
	}
}

func TestReaderMicrophoneOneShot(t *testing.T) {
	microphone := NewReaderMicrophone(bytes.NewReader(samples(64)))
	stream, err := microphone.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(stream)
	if len(data) != 64 {
		t.Errorf("read %d bytes, want 64", len(data))
	}
	if _, err := microphone.Open(context.Background()); err == nil {
		t.Error("second Open succeeded, want error")
	}
}

func TestCommandMicrophoneMissingRecorder(t *testing.T) {
	microphone := &CommandMicrophone{Argv: []string{"beacon-test-no-such-recorder"}}
	pipeline := NewPipeline(microphone, Config{}, discardLogger())
	_, err := pipeline.Capture(context.Background(), 1)
	var captureErr *CaptureError
	if !errors.As(err, &captureErr) || captureErr.Op != "open" {
		t.Fatalf("error = %v, want open CaptureError", err)
	}
}
