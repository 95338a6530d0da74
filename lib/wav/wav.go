// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// HeaderSize is the length of the container header preceding the
// sample bytes.
const HeaderSize = 44

// formatPCM is the WAVE format tag for uncompressed linear PCM.
const formatPCM = 1

// Format describes the sample layout declared in the header.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Speech is the only format the capture pipeline produces: 16 kHz,
// mono, 16-bit.
var Speech = Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}

// BlockAlign is the size in bytes of one frame (one sample for every
// channel).
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// ByteRate is the number of payload bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Header returns the 44-byte header for a payload of dataLength bytes.
func Header(format Format, dataLength int) ([]byte, error) {
	if dataLength < 0 || int64(dataLength) > math.MaxUint32-36 {
		return nil, fmt.Errorf("wav: data length %d out of range", dataLength)
	}
	if format.SampleRate <= 0 || format.Channels <= 0 || format.BitsPerSample <= 0 || format.BitsPerSample%8 != 0 {
		return nil, fmt.Errorf("wav: invalid format %+v", format)
	}

	header := make([]byte, HeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(dataLength+36))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(format.ByteRate()))
	binary.LittleEndian.PutUint16(header[32:34], uint16(format.BlockAlign()))
	binary.LittleEndian.PutUint16(header[34:36], uint16(format.BitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLength))
	return header, nil
}

// Encode returns the complete container for payload.
func Encode(format Format, payload []byte) ([]byte, error) {
	header, err := Header(format, len(payload))
	if err != nil {
		return nil, err
	}
	container := make([]byte, 0, HeaderSize+len(payload))
	container = append(container, header...)
	return append(container, payload...), nil
}

// Write streams the container for payload to w.
func Write(w io.Writer, format Format, payload []byte) error {
	header, err := Header(format, len(payload))
	if err != nil {
		return err
	}
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wav: writing header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wav: writing payload: %w", err)
	}
	return nil
}

// Parse decodes a container produced by [Encode]. It returns the
// declared format and the payload slice (aliasing data). The declared
// data length must match the bytes that follow the header exactly.
func Parse(data []byte) (Format, []byte, error) {
	if len(data) < HeaderSize {
		return Format{}, nil, fmt.Errorf("wav: %d bytes is shorter than the %d-byte header", len(data), HeaderSize)
	}
	if !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return Format{}, nil, fmt.Errorf("wav: missing RIFF/WAVE signature")
	}
	if !bytes.Equal(data[12:16], []byte("fmt ")) || binary.LittleEndian.Uint32(data[16:20]) != 16 {
		return Format{}, nil, fmt.Errorf("wav: unexpected fmt chunk")
	}
	if tag := binary.LittleEndian.Uint16(data[20:22]); tag != formatPCM {
		return Format{}, nil, fmt.Errorf("wav: format tag %d is not linear PCM", tag)
	}
	if !bytes.Equal(data[36:40], []byte("data")) {
		return Format{}, nil, fmt.Errorf("wav: missing data chunk")
	}

	format := Format{
		Channels:      int(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(data[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(data[34:36])),
	}
	if got := int(binary.LittleEndian.Uint32(data[28:32])); got != format.ByteRate() {
		return Format{}, nil, fmt.Errorf("wav: byte rate %d does not match format (want %d)", got, format.ByteRate())
	}
	if got := int(binary.LittleEndian.Uint16(data[32:34])); got != format.BlockAlign() {
		return Format{}, nil, fmt.Errorf("wav: block align %d does not match format (want %d)", got, format.BlockAlign())
	}

	dataLength := int(binary.LittleEndian.Uint32(data[40:44]))
	if riff := int(binary.LittleEndian.Uint32(data[4:8])); riff != dataLength+36 {
		return Format{}, nil, fmt.Errorf("wav: RIFF size %d disagrees with data length %d", riff, dataLength)
	}
	payload := data[HeaderSize:]
	if len(payload) != dataLength {
		return Format{}, nil, fmt.Errorf("wav: header declares %d data bytes, container holds %d", dataLength, len(payload))
	}
	return format, payload, nil
}
