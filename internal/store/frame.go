package store

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// PrefixSize is the width of the little-endian length prefix.
	PrefixSize = 4

	// tagStart and tagEnd bound the embedded routing tag within a payload.
	tagStart = 4
	tagEnd   = 8

	// DefaultMaxFrameLength caps a single payload at 256 MiB.
	DefaultMaxFrameLength = 256 << 20

	// DefaultInitialCapacity is the starting buffer size.
	DefaultInitialCapacity = 1 << 20
)

// ErrFrameTooLarge reports a length prefix above the configured maximum.
// Ingest stops at the last valid frame boundary.
var ErrFrameTooLarge = errors.New("frame exceeds maximum length")

// ErrShortFrame reports a truncated trailing frame during load, where the
// stream is expected to be complete.
var ErrShortFrame = errors.New("truncated frame at end of stream")

// Tag returns the 4-byte routing tag embedded at payload bytes 4..8, or the
// empty string for payloads too short to carry one.
func Tag(payload []byte) string {
	if len(payload) < tagEnd {
		return ""
	}
	return string(payload[tagStart:tagEnd])
}

// ScanFrames walks data from offset 0 and calls emit for each complete
// frame's payload. It stops at the first incomplete frame and returns the
// number of bytes consumed and frames emitted; the caller keeps the residue
// for the next chunk. A length prefix above maxFrame stops the scan at the
// boundary with ErrFrameTooLarge.
//
// Feeding any bytewise partition of a stream through repeated calls yields
// the same frames in the same order as one call over the whole stream.
func ScanFrames(data []byte, maxFrame uint32, emit func(payload []byte)) (consumed int, frames int, err error) {
	for len(data)-consumed >= PrefixSize {
		n := binary.LittleEndian.Uint32(data[consumed:])
		if n > maxFrame {
			return consumed, frames, fmt.Errorf("frame of %d bytes at offset %d: %w", n, consumed, ErrFrameTooLarge)
		}
		total := PrefixSize + int(n)
		if len(data)-consumed < total {
			break
		}
		emit(data[consumed+PrefixSize : consumed+total])
		consumed += total
		frames++
	}
	return consumed, frames, nil
}
