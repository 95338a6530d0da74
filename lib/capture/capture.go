// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/intamia/beacon/lib/wav"
)

// DefaultChunkBytes is 100 ms of 16 kHz mono 16-bit audio.
const DefaultChunkBytes = 3200

// maxEmptyReads bounds consecutive (0, nil) reads before the stream is
// treated as stuck.
const maxEmptyReads = 100

// Microphone opens audio streams. Each stream yields raw 16 kHz mono
// signed 16-bit little-endian samples.
type Microphone interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Clip is one captured recording. It is not modified after Capture
// returns.
type Clip struct {
	Format wav.Format

	// DurationSeconds is the requested duration. When the stream ended
	// early, Payload is shorter than DurationSeconds worth of audio.
	DurationSeconds int

	// Payload holds the raw PCM samples.
	Payload []byte
}

// Complete reports whether the clip holds the full requested duration.
func (c Clip) Complete() bool {
	return len(c.Payload) == c.DurationSeconds*c.Format.ByteRate()
}

// Container returns the clip wrapped in the 44-byte WAV header.
func (c Clip) Container() ([]byte, error) {
	return wav.Encode(c.Format, c.Payload)
}

// CaptureError reports a microphone failure. The microphone has
// already been released when a CaptureError is returned.
type CaptureError struct {
	// Op is "open" or "read".
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Config tunes a Pipeline.
type Config struct {
	// ChunkBytes is the maximum size of a single read. Zero means
	// DefaultChunkBytes.
	ChunkBytes int
}

// Pipeline serializes captures against one microphone.
type Pipeline struct {
	microphone Microphone
	chunkBytes int
	logger     *slog.Logger

	// handle is a one-slot semaphore guarding the microphone.
	handle chan struct{}
}

// NewPipeline creates a Pipeline for the given microphone.
func NewPipeline(microphone Microphone, config Config, logger *slog.Logger) *Pipeline {
	chunkBytes := config.ChunkBytes
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}
	return &Pipeline{
		microphone: microphone,
		chunkBytes: chunkBytes,
		logger:     logger,
		handle:     make(chan struct{}, 1),
	}
}

// Capture records durationSeconds of speech. It blocks while another
// capture holds the microphone.
func (p *Pipeline) Capture(ctx context.Context, durationSeconds int) (Clip, error) {
	if durationSeconds <= 0 {
		return Clip{}, fmt.Errorf("capture duration must be positive, got %d", durationSeconds)
	}

	select {
	case p.handle <- struct{}{}:
	case <-ctx.Done():
		return Clip{}, ctx.Err()
	}
	defer func() { <-p.handle }()

	stream, err := p.microphone.Open(ctx)
	if err != nil {
		return Clip{}, &CaptureError{Op: "open", Err: err}
	}

	var closeOnce sync.Once
	var closeErr error
	release := func() {
		closeOnce.Do(func() { closeErr = stream.Close() })
	}
	stopWatch := context.AfterFunc(ctx, release)
	defer func() {
		stopWatch()
		release()
		if closeErr != nil {
			p.logger.Warn("closing microphone stream", "error", closeErr)
		}
	}()

	totalBytes := durationSeconds * wav.Speech.ByteRate()
	payload, err := p.read(stream, totalBytes)
	// Closing the stream on cancel often surfaces as a clean EOF, so
	// cancellation wins over whatever read reported.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Clip{}, ctxErr
	}
	if err != nil {
		return Clip{}, &CaptureError{Op: "read", Err: err}
	}

	clip := Clip{
		Format:          wav.Speech,
		DurationSeconds: durationSeconds,
		Payload:         payload,
	}
	if !clip.Complete() {
		p.logger.Warn("microphone stream ended early",
			"requested_bytes", totalBytes,
			"captured_bytes", len(payload),
		)
	} else {
		p.logger.Info("capture complete", "seconds", durationSeconds, "bytes", len(payload))
	}
	return clip, nil
}

// read accumulates up to totalBytes from stream. End of stream ends
// the capture early without error.
func (p *Pipeline) read(stream io.Reader, totalBytes int) ([]byte, error) {
	payload := make([]byte, 0, totalBytes)
	chunk := make([]byte, min(p.chunkBytes, totalBytes))
	emptyReads := 0

	for len(payload) < totalBytes {
		want := min(len(chunk), totalBytes-len(payload))
		n, err := stream.Read(chunk[:want])
		payload = append(payload, chunk[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if n == 0 {
			emptyReads++
			if emptyReads >= maxEmptyReads {
				return nil, io.ErrNoProgress
			}
			continue
		}
		emptyReads = 0
	}
	return payload, nil
}
