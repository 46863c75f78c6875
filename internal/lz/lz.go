// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

// Package lz implements the Nintendo DS LZ10 and LZ11 stream formats.
//
// Both variants start with a 4-byte header: the variant marker (0x10 or 0x11)
// followed by the 24-bit little-endian decompressed size. A zero size is
// followed by an extended 32-bit size. Payload is a sequence of flag bytes,
// each describing the next eight tokens MSB-first: a clear bit is one literal
// byte, a set bit is a back-reference into already decoded output.
package lz

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Variant is the stream variant marker.
type Variant byte

// Supported stream variants.
const (
	LZ10 Variant = 0x10
	LZ11 Variant = 0x11
)

// Format limits.
const (
	// MaxInputSize is the largest input Compress accepts (24-bit size header).
	MaxInputSize = 0xFFFFFF

	windowSize = 0x1000 // back-reference window
	minMatch   = 3      // shortest encoded back-reference
	minDisp    = 2      // shortest distance searched by the encoder
	lz10Max    = 0x12   // longest LZ10 back-reference
	lz11Max    = 0x10110
	lz11Mid    = 0x11  // first length of the 3-byte LZ11 token
	lz11Long   = 0x111 // first length of the 4-byte LZ11 token
	headerSize = 4
	growHint   = 8 // initial output capacity per input byte
)

var (
	// ErrCorrupt means the compressed stream is truncated or references data before its start.
	ErrCorrupt = errors.New("lz: corrupt stream")
	// ErrUnknownVariant means the stream marker is neither 0x10 nor 0x11.
	ErrUnknownVariant = errors.New("lz: unknown stream variant")
	// ErrTooLarge means input exceeds the 24-bit size header, or a decoded
	// size does not fit in memory.
	ErrTooLarge = errors.New("lz: input exceeds 24-bit size limit")
)

// String returns "lz10" or "lz11".
func (v Variant) String() string {
	switch v {
	case LZ10:
		return "lz10"
	case LZ11:
		return "lz11"
	default:
		return fmt.Sprintf("lz(%#02x)", byte(v))
	}
}

// Valid reports whether v is a supported variant.
func (v Variant) Valid() bool {
	return v == LZ10 || v == LZ11
}

// Detect returns the variant of a stream from its marker byte.
func Detect(src []byte) (Variant, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("%w: empty stream", ErrCorrupt)
	}

	v := Variant(src[0])
	if !v.Valid() {
		return 0, fmt.Errorf("%w: marker %#02x", ErrUnknownVariant, src[0])
	}

	return v, nil
}

// Codec is the default compression collaborator. Both methods allocate the
// returned buffer; ownership moves to the caller.
type Codec struct{}

// Compress encodes src with the selected variant.
func (Codec) Compress(v Variant, src []byte) ([]byte, error) {
	return Compress(v, src)
}

// Decompress decodes an LZ10 or LZ11 stream.
func (Codec) Decompress(src []byte) ([]byte, error) {
	return Decompress(src)
}

// Decompress decodes an LZ10 or LZ11 stream, selecting the variant from its marker byte.
func Decompress(src []byte) ([]byte, error) {
	v, err := Detect(src)
	if err != nil {
		return nil, err
	}
	if len(src) < headerSize {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}

	declared := uint64(binary.LittleEndian.Uint32(src) >> 8)
	pos := headerSize
	if declared == 0 && len(src) >= headerSize+4 {
		declared = uint64(binary.LittleEndian.Uint32(src[headerSize:]))
		pos += 4
	}
	if declared > math.MaxInt {
		return nil, fmt.Errorf("%w: decoded size %d", ErrTooLarge, declared)
	}

	// The header size is untrusted; the buffer grows past the hint as output is produced.
	size := int(declared)
	dst := make([]byte, 0, min(size, len(src)*growHint))
	for len(dst) < size {
		if pos >= len(src) {
			return nil, fmt.Errorf("%w: flags at %d", ErrCorrupt, pos)
		}

		flags := src[pos]
		pos++
		for bit := 7; bit >= 0 && len(dst) < size; bit-- {
			if flags&(1<<bit) == 0 {
				if pos >= len(src) {
					return nil, fmt.Errorf("%w: literal at %d", ErrCorrupt, pos)
				}

				dst = append(dst, src[pos])
				pos++
				continue
			}

			length, disp, n, err := readToken(v, src[pos:])
			if err != nil {
				return nil, fmt.Errorf("%w: token at %d", err, pos)
			}
			pos += n

			if disp > len(dst) {
				return nil, fmt.Errorf("%w: distance %d before stream start at %d", ErrCorrupt, disp, len(dst))
			}

			from := len(dst) - disp
			for i := 0; i < length && len(dst) < size; i++ {
				dst = append(dst, dst[from+i])
			}
		}
	}

	return dst, nil
}

// readToken decodes one back-reference and returns length, distance, and consumed bytes.
func readToken(v Variant, src []byte) (int, int, int, error) {
	if len(src) < 2 {
		return 0, 0, 0, ErrCorrupt
	}

	if v == LZ10 {
		length := int(src[0]>>4) + minMatch
		disp := (int(src[0]&0x0F)<<8 | int(src[1])) + 1
		return length, disp, 2, nil
	}

	switch src[0] >> 4 {
	case 0:
		if len(src) < 3 {
			return 0, 0, 0, ErrCorrupt
		}

		length := (int(src[0]&0x0F)<<4 | int(src[1]>>4)) + lz11Mid
		disp := (int(src[1]&0x0F)<<8 | int(src[2])) + 1
		return length, disp, 3, nil
	case 1:
		if len(src) < 4 {
			return 0, 0, 0, ErrCorrupt
		}

		length := (int(src[0]&0x0F)<<12 | int(src[1])<<4 | int(src[2]>>4)) + lz11Long
		disp := (int(src[2]&0x0F)<<8 | int(src[3])) + 1
		return length, disp, 4, nil
	default:
		length := int(src[0]>>4) + 1
		disp := (int(src[0]&0x0F)<<8 | int(src[1])) + 1
		return length, disp, 2, nil
	}
}

// Compress encodes src with a greedy longest-match search over a 4 KiB window.
func Compress(v Variant, src []byte) ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: marker %#02x", ErrUnknownVariant, byte(v))
	}
	if len(src) > MaxInputSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(src))
	}

	maxLen := lz10Max
	if v == LZ11 {
		maxLen = lz11Max
	}

	dst := make([]byte, headerSize, headerSize+len(src)+len(src)/8+1)
	binary.LittleEndian.PutUint32(dst, uint32(len(src))<<8|uint32(v)) //nolint:gosec // bounded by MaxInputSize

	flagsAt := -1
	tokens := 0
	for pos := 0; pos < len(src); tokens++ {
		if tokens%8 == 0 {
			flagsAt = len(dst)
			dst = append(dst, 0)
		}

		length, disp := longestMatch(src, pos, maxLen)
		if length < minMatch {
			dst = append(dst, src[pos])
			pos++
			continue
		}

		dst[flagsAt] |= 1 << (7 - tokens%8)
		dst = appendToken(dst, v, length, disp)
		pos += length
	}

	return dst, nil
}

// longestMatch finds the longest earlier occurrence of src[pos:] within the window.
// Matches may overlap the current position.
func longestMatch(src []byte, pos int, maxLen int) (int, int) {
	limit := min(len(src)-pos, maxLen)
	if limit < minMatch {
		return 0, 0
	}

	start := max(pos-windowSize, 0)
	bestLen, bestDisp := 0, 0
	for cand := start; cand <= pos-minDisp; cand++ {
		if src[cand] != src[pos] {
			continue
		}

		n := 1
		for n < limit && src[cand+n] == src[pos+n] {
			n++
		}

		if n > bestLen {
			bestLen, bestDisp = n, pos-cand
			if n == limit {
				break
			}
		}
	}

	return bestLen, bestDisp
}

// appendToken writes one back-reference in the variant's token form.
func appendToken(dst []byte, v Variant, length int, disp int) []byte {
	d := disp - 1
	if v == LZ10 {
		l := length - minMatch
		return append(dst, byte(l<<4|d>>8), byte(d))
	}

	switch {
	case length >= lz11Long:
		l := length - lz11Long
		return append(dst, byte(0x10|l>>12), byte(l>>4), byte(l<<4|d>>8), byte(d))
	case length >= lz11Mid:
		l := length - lz11Mid
		return append(dst, byte(l>>4), byte(l<<4|d>>8), byte(d))
	default:
		l := length - 1
		return append(dst, byte(l<<4|d>>8), byte(d))
	}
}
