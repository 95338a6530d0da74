// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// DefaultRecorder is the recorder command used when none is
// configured. It writes raw 16 kHz mono S16_LE samples to stdout until
// killed.
var DefaultRecorder = []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"}

// CommandMicrophone records by running an external process and reading
// its stdout. Closing the stream kills the process.
type CommandMicrophone struct {
	// Argv is the command and its arguments. Empty means DefaultRecorder.
	Argv []string
}

// Open starts the recorder process.
func (m *CommandMicrophone) Open(ctx context.Context) (io.ReadCloser, error) {
	argv := m.Argv
	if len(argv) == 0 {
		argv = DefaultRecorder
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("recorder %q not available: %w", argv[0], err)
	}

	command := exec.Command(path, argv[1:]...)
	stdout, err := command.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recorder stdout: %w", err)
	}
	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("starting recorder: %w", err)
	}
	return &processStream{command: command, stdout: stdout}, nil
}

// processStream is the read side of a running recorder. The process
// is not bound to the Open context: the pipeline closes the stream on
// cancellation, which kills the process.
type processStream struct {
	command   *exec.Cmd
	stdout    io.ReadCloser
	closeOnce sync.Once
	closeErr  error
}

func (s *processStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *processStream) Close() error {
	s.closeOnce.Do(func() {
		if s.command.Process != nil {
			_ = s.command.Process.Kill()
		}
		s.stdout.Close()
		err := s.command.Wait()
		// A killed recorder exits with a signal status; that is the
		// normal way to stop it.
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// ReaderMicrophone serves a single pre-recorded stream of raw samples.
// A second Open fails because the reader has been consumed.
type ReaderMicrophone struct {
	mu     sync.Mutex
	reader io.Reader
	opened bool
}

// NewReaderMicrophone wraps reader as a one-shot microphone.
func NewReaderMicrophone(reader io.Reader) *ReaderMicrophone {
	return &ReaderMicrophone{reader: reader}
}

// Open returns the wrapped reader. Closing the stream closes the
// reader when it implements io.Closer.
func (m *ReaderMicrophone) Open(context.Context) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opened {
		return nil, errors.New("reader microphone already consumed")
	}
	m.opened = true
	if closer, ok := m.reader.(io.ReadCloser); ok {
		return closer, nil
	}
	return io.NopCloser(m.reader), nil
}
