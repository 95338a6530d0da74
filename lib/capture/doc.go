// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture records fixed-duration speech clips from a
// microphone for the fallback (upload) transport.
//
// A [Pipeline] owns exclusive access to one [Microphone]. Each call to
// [Pipeline.Capture] acquires the handle, opens a stream, reads bounded
// chunks into a linear buffer until the requested byte count
// (16000 Hz x 2 bytes x seconds) has been collected or the stream
// ends, and then closes the stream. The stream is closed on every exit
// path, including read errors and context cancellation; cancellation
// closes the stream from a separate goroutine, which is what unblocks
// an in-flight Read.
//
// Concurrent Capture calls on one Pipeline queue behind the handle:
// they never interleave reads on the same stream. A queued caller
// whose context is cancelled gives up its place without touching the
// microphone.
//
// The resulting [Clip] carries raw PCM; [Clip.Container] wraps it in
// the RIFF/WAVE container from package wav. A short stream produces a
// short clip whose container header declares exactly the bytes
// captured.
//
// Two microphones are provided: [CommandMicrophone] reads raw PCM from
// the stdout of a recorder process (arecord by default) and
// [ReaderMicrophone] wraps an io.Reader, which covers replaying a file
// of raw samples.
package capture
