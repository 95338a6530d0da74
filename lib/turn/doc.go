// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package turn sends a recorded clip to the orchestrator and reads its
// reply. This is the fallback path used when no real-time session is
// possible.
//
// [Client.SendTurn] posts POST {base}/turn as multipart/form-data with
// a single part named "audio". The part carries the clip as a WAV
// container with Content-Type audio/wav and a filename of the form
// sos_<id>.wav, where <id> is a keyed BLAKE3 digest prefix of the PCM
// payload. The same clip always uploads under the same name, which lets
// the orchestrator correlate retries.
//
// A non-2xx status is a [*TransportError] carrying the status code and
// a bounded excerpt of the body. A 2xx body is parsed into a [Reply].
// The playback URL is audio_url when non-blank, otherwise tts_url. Both
// blank is a valid reply that simply has nothing to play.
package turn
