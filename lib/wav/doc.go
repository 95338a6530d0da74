// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package wav writes and reads the minimal RIFF/WAVE container the
// orchestrator accepts for uploaded turns: a fixed 44-byte header
// describing 16-bit linear PCM followed immediately by the samples.
//
// The header layout is fixed byte-for-byte:
//
//	0   "RIFF"
//	4   uint32 dataLength+36
//	8   "WAVE"
//	12  "fmt "
//	16  uint32 16 (fmt chunk size)
//	20  uint16 1 (linear PCM)
//	22  uint16 channels
//	24  uint32 sample rate
//	28  uint32 byte rate
//	32  uint16 block align
//	34  uint16 bits per sample
//	36  "data"
//	40  uint32 dataLength
//
// All integers are little-endian. [Encode] always derives dataLength
// from the payload it is given, so a short capture produces a header
// that agrees with the bytes actually written. [Parse] is the inverse
// and is strict about the fixed fields.
package wav
