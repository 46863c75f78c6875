// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Segmented archive (P2) binary layout.
const (
	p2BlockSize      = 512        // content and header alignment
	p2FixedHeader    = 16         // magic + count + reserved + header_size
	p2NameLen        = 8          // one name table slot
	p2NamedFlag      = 0x8000     // count field bit: name table present
	p2CountMask      = 0x7FFF     // count field bits: subfile count
	p2CompressedFlag = 0x80000000 // length field bit: stored compressed
	p2LengthMask     = 0x00FFFFFF // length field bits: content length
	p2MaxBlockIndex  = 0xFFFF     // u16 block index limit
)

// SegmentedArchive is a decoded P2 container.
type SegmentedArchive struct {
	// Subfiles are kept in on-disk order; Index matches position.
	Subfiles []Subfile
	// Named reports whether the archive carries a name table.
	Named bool
}

// Subfile is one P2 entry.
type Subfile struct {
	// Name is the NUL-trimmed name table entry (empty when unnamed).
	Name string
	// Content is stored payload (still compressed when Compressed is set).
	Content []byte
	// Index is the 0-based position inside the archive.
	Index int
	// Compressed reports whether Content is stored LZ-compressed.
	Compressed bool
}

// SuggestName returns the subfile name, or its decimal index when unnamed.
func (s *Subfile) SuggestName() string {
	if s.Name != "" {
		return s.Name
	}

	return strconv.Itoa(s.Index)
}

// DecodeSegmentedArchive parses a P2 container.
func DecodeSegmentedArchive(buf []byte) (*SegmentedArchive, error) {
	if len(buf) < p2FixedHeader {
		return nil, malformedf("p2: short header (%d bytes)", len(buf))
	}

	if binary.LittleEndian.Uint16(buf[0:2]) != MagicP2 {
		return nil, malformedf("p2: bad magic %#04x", binary.LittleEndian.Uint16(buf[0:2]))
	}

	countField := binary.LittleEndian.Uint16(buf[2:4])
	named := countField&p2NamedFlag != 0
	count := int(countField & p2CountMask)
	headerSize := uint64(binary.LittleEndian.Uint32(buf[12:16]))

	blocksOff := p2FixedHeader
	lengthsOff := blocksOff + count*2 + (count&1)*2
	namesOff := lengthsOff + count*4
	tableEnd := namesOff
	if named {
		tableEnd += count * p2NameLen
	}
	if tableEnd > len(buf) {
		return nil, malformedf("p2: tables for %d subfiles exceed %d bytes", count, len(buf))
	}

	archive := &SegmentedArchive{
		Named:    named,
		Subfiles: make([]Subfile, count),
	}

	for i := range count {
		block := uint64(binary.LittleEndian.Uint16(buf[blocksOff+i*2:]))
		field := binary.LittleEndian.Uint32(buf[lengthsOff+i*4:])
		start := block*p2BlockSize + headerSize
		end := start + uint64(field&p2LengthMask)
		if end > uint64(len(buf)) {
			return nil, malformedf("p2: subfile %d [%d:%d] exceeds %d bytes", i, start, end, len(buf))
		}

		sf := Subfile{
			Index:      i,
			Content:    bytes.Clone(buf[start:end]),
			Compressed: field&p2CompressedFlag != 0,
		}
		if named {
			raw := buf[namesOff+i*p2NameLen : namesOff+(i+1)*p2NameLen]
			sf.Name = string(bytes.Trim(raw, "\x00"))
		}

		archive.Subfiles[i] = sf
	}

	return archive, nil
}

// EncodeSegmentedArchive serializes a P2 container.
// Every subfile is followed by zero padding up to the next 512-byte block;
// a subfile whose length is already block-aligned gets one extra full block.
func EncodeSegmentedArchive(a *SegmentedArchive) ([]byte, error) {
	count := len(a.Subfiles)
	if count > p2CountMask {
		return nil, fmt.Errorf("%w: %d subfiles", ErrSizeOverflow, count)
	}

	countField := uint16(count) //nolint:gosec // bounded by p2CountMask
	if a.Named {
		countField |= p2NamedFlag
	}

	header := make([]byte, 0, p2BlockSize)
	header = binary.LittleEndian.AppendUint16(header, MagicP2)
	header = binary.LittleEndian.AppendUint16(header, countField)
	header = append(header, make([]byte, 8)...)
	headerSizePos := len(header)
	header = binary.LittleEndian.AppendUint32(header, 0) // backpatched below

	var content []byte
	for i := range a.Subfiles {
		block := len(content) / p2BlockSize
		if block > p2MaxBlockIndex {
			return nil, fmt.Errorf("%w: subfile %d block index %d", ErrSizeOverflow, i, block)
		}

		header = binary.LittleEndian.AppendUint16(header, uint16(block)) //nolint:gosec // checked above
		content = append(content, a.Subfiles[i].Content...)
		content = append(content, make([]byte, p2PadLen(len(a.Subfiles[i].Content)))...)
	}

	if count&1 != 0 {
		header = binary.LittleEndian.AppendUint16(header, 0)
	}

	for i := range a.Subfiles {
		size := len(a.Subfiles[i].Content)
		if size > p2LengthMask {
			return nil, fmt.Errorf("%w: subfile %d length %d", ErrSizeOverflow, i, size)
		}

		field := uint32(size) //nolint:gosec // bounded by p2LengthMask
		if a.Subfiles[i].Compressed {
			field |= p2CompressedFlag
		}

		header = binary.LittleEndian.AppendUint32(header, field)
	}

	if a.Named {
		for i := range a.Subfiles {
			name := a.Subfiles[i].Name
			if len(name) > p2NameLen {
				return nil, fmt.Errorf("%w: subfile %d name %q", ErrNameTooLong, i, name)
			}

			header = append(header, name...)
			header = append(header, make([]byte, p2NameLen-len(name))...)
		}
	}

	if rem := len(header) % p2BlockSize; rem != 0 {
		header = append(header, make([]byte, p2BlockSize-rem)...)
	}
	binary.LittleEndian.PutUint32(header[headerSizePos:], uint32(len(header))) //nolint:gosec // header is bounded by table sizes

	return append(header, content...), nil
}

// p2PadLen returns zero padding written after content of given length.
func p2PadLen(size int) int {
	return p2BlockSize - size%p2BlockSize
}
