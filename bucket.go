// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
)

// Bucket archive binary layout.
const (
	bucketCount       = 8          // fixed number of buckets
	bucketPrefixSize  = 8          // magic + reserved
	bucketTableSize   = 4 * 8      // info offset per bucket
	bucketEmptyMarker = 0xFFFFFFFF // info offset of an absent bucket
)

// BucketArchive is the positional wire form shared by HPAK, PK2D, and PKAC.
// A nil bucket is absent and encodes as the sentinel offset. A non-nil empty
// bucket encodes as an info block with a zero count.
type BucketArchive [bucketCount][][]byte

// EmptyBuckets lists buckets that are present but hold no files.
func (b *BucketArchive) EmptyBuckets() []int {
	var out []int
	for i, files := range b {
		if files != nil && len(files) == 0 {
			out = append(out, i)
		}
	}

	return out
}

// DecodeBucketArchive parses bucket tables of a HPAK/PK2D/PKAC file.
// The leading magic is not checked; callers classify before decoding.
func DecodeBucketArchive(buf []byte) (BucketArchive, error) {
	var out BucketArchive
	if len(buf) < bucketPrefixSize+bucketTableSize {
		return out, malformedf("bucket: short header (%d bytes)", len(buf))
	}

	size := uint64(len(buf))
	for i := range bucketCount {
		infoOff := binary.LittleEndian.Uint32(buf[bucketPrefixSize+i*4:])
		if infoOff == bucketEmptyMarker {
			continue
		}

		info := uint64(infoOff)
		if info+4 > size {
			return out, malformedf("bucket %d: info offset %d exceeds %d bytes", i, info, size)
		}

		count := uint64(binary.LittleEndian.Uint32(buf[info:]))
		offsetsAt := info + 4
		lengthsAt := offsetsAt + count*4
		if lengthsAt+count*4 > size {
			return out, malformedf("bucket %d: %d file records exceed %d bytes", i, count, size)
		}

		files := make([][]byte, 0, count)
		for j := range count {
			start := uint64(binary.LittleEndian.Uint32(buf[offsetsAt+j*4:]))
			end := start + uint64(binary.LittleEndian.Uint32(buf[lengthsAt+j*4:]))
			if end > size {
				return out, malformedf("bucket %d file %d: [%d:%d] exceeds %d bytes", i, j, start, end, size)
			}

			files = append(files, bytes.Clone(buf[start:end]))
		}

		out[i] = files
	}

	return out, nil
}

// EncodeBucketArchive serializes buckets behind the given magic and a zero reserved word.
func EncodeBucketArchive(magic uint32, b BucketArchive) ([]byte, error) {
	out := make([]byte, 0, bucketPrefixSize+b.encodedBodySize())
	out = binary.LittleEndian.AppendUint32(out, magic)
	out = binary.LittleEndian.AppendUint32(out, 0)
	return appendBucketBody(out, b)
}

// appendBucketBody appends the info-offset table, info blocks, and payloads.
// Offsets are absolute and account for the 8-byte prefix already present in dst.
func appendBucketBody(dst []byte, b BucketArchive) ([]byte, error) {
	base := len(dst)
	if uint64(base)+uint64(b.encodedBodySize()) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: bucket archive exceeds 4 GiB", ErrSizeOverflow)
	}

	tableAt := len(dst)
	for range bucketCount {
		dst = binary.LittleEndian.AppendUint32(dst, bucketEmptyMarker)
	}

	var offsetSlots [bucketCount]int
	for i, files := range b {
		if files == nil {
			continue
		}

		binary.LittleEndian.PutUint32(dst[tableAt+i*4:], uint32(len(dst))) //nolint:gosec // bounded above
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(files)))     //nolint:gosec // bounded above
		offsetSlots[i] = len(dst)
		dst = append(dst, make([]byte, 4*len(files))...)
		for _, f := range files {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(len(f))) //nolint:gosec // bounded above
		}
	}

	for i, files := range b {
		for j, f := range files {
			binary.LittleEndian.PutUint32(dst[offsetSlots[i]+j*4:], uint32(len(dst))) //nolint:gosec // bounded above
			dst = append(dst, f...)
		}
	}

	return dst, nil
}

// encodedBodySize returns the size appended by appendBucketBody.
func (b *BucketArchive) encodedBodySize() int {
	size := bucketTableSize
	for _, files := range b {
		if files == nil {
			continue
		}

		size += 4 + 8*len(files)
		for _, f := range files {
			size += len(f)
		}
	}

	return size
}

// BucketKind identifies which container gives meaning to the eight buckets.
type BucketKind string

// Bucket container kinds.
const (
	BucketKindHPAK BucketKind = "hpak"
	BucketKindPK2D BucketKind = "pk2d"
	BucketKindPKAC BucketKind = "pkac"
)

// hpakBucketTypes and pk2dBucketTypes give the asset kind stored in each bucket.
var (
	hpakBucketTypes = [bucketCount]FileType{
		FileTypeNSBCA, FileTypeNSBVA, FileTypeNSBMA, FileTypeNSBTP,
		FileTypeNSBTA, FileTypeUnknown5, FileTypeUnknown6, FileTypeNSBMD,
	}
	pk2dBucketTypes = [bucketCount]FileType{
		FileTypeNCLR, FileTypeNCGR, FileTypeUnknown2, FileTypeNCER,
		FileTypeUnknown4, FileTypeNANR, FileTypeNSCR, FileTypeUnknown7,
	}
)

// BucketKindOf maps a classified file kind to its bucket container kind.
func BucketKindOf(t FileType) (BucketKind, bool) {
	switch t {
	case FileTypeHPAK:
		return BucketKindHPAK, true
	case FileTypePK2D:
		return BucketKindPK2D, true
	case FileTypePKAC:
		return BucketKindPKAC, true
	default:
		return "", false
	}
}

// Magic returns the 4-byte container magic.
func (k BucketKind) Magic() uint32 {
	switch k {
	case BucketKindHPAK:
		return MagicHPAK
	case BucketKindPK2D:
		return MagicPK2D
	case BucketKindPKAC:
		return MagicPKAC
	default:
		return 0
	}
}

// FileType returns the classified kind of the container.
func (k BucketKind) FileType() FileType {
	switch k {
	case BucketKindHPAK:
		return FileTypeHPAK
	case BucketKindPK2D:
		return FileTypePK2D
	case BucketKindPKAC:
		return FileTypePKAC
	default:
		return FileTypeOpaque
	}
}

// Valid reports whether k is a known container kind.
func (k BucketKind) Valid() bool {
	return k == BucketKindHPAK || k == BucketKindPK2D || k == BucketKindPKAC
}

// BucketTypes returns the asset kind of each bucket for HPAK and PK2D.
// PKAC payloads are classified by content instead.
func (k BucketKind) BucketTypes() ([bucketCount]FileType, bool) {
	switch k {
	case BucketKindHPAK:
		return hpakBucketTypes, true
	case BucketKindPK2D:
		return pk2dBucketTypes, true
	default:
		return [bucketCount]FileType{}, false
	}
}

// HPAK is a model/animation bundle.
type HPAK struct {
	ModelAnims    [][]byte
	VertexAnims   [][]byte
	MaterialAnims [][]byte
	TexCoordAnims [][]byte
	TextureAnims  [][]byte
	Reserved5     [][]byte
	Reserved6     [][]byte
	Models        [][]byte
}

// HPAKFromBuckets assigns positional buckets to named HPAK fields.
func HPAKFromBuckets(b BucketArchive) *HPAK {
	return &HPAK{
		ModelAnims:    b[0],
		VertexAnims:   b[1],
		MaterialAnims: b[2],
		TexCoordAnims: b[3],
		TextureAnims:  b[4],
		Reserved5:     b[5],
		Reserved6:     b[6],
		Models:        b[7],
	}
}

// Buckets returns the positional wire form.
func (h *HPAK) Buckets() BucketArchive {
	return BucketArchive{
		h.ModelAnims, h.VertexAnims, h.MaterialAnims, h.TexCoordAnims,
		h.TextureAnims, h.Reserved5, h.Reserved6, h.Models,
	}
}

// PK2D is a 2D graphics bundle.
type PK2D struct {
	Palettes       [][]byte
	Tiles          [][]byte
	Reserved2      [][]byte
	CellAnims      [][]byte
	Reserved4      [][]byte
	MultiCellAnims [][]byte
	ScreenMaps     [][]byte
	Reserved7      [][]byte
}

// PK2DFromBuckets assigns positional buckets to named PK2D fields.
func PK2DFromBuckets(b BucketArchive) *PK2D {
	return &PK2D{
		Palettes:       b[0],
		Tiles:          b[1],
		Reserved2:      b[2],
		CellAnims:      b[3],
		Reserved4:      b[4],
		MultiCellAnims: b[5],
		ScreenMaps:     b[6],
		Reserved7:      b[7],
	}
}

// Buckets returns the positional wire form.
func (p *PK2D) Buckets() BucketArchive {
	return BucketArchive{
		p.Palettes, p.Tiles, p.Reserved2, p.CellAnims,
		p.Reserved4, p.MultiCellAnims, p.ScreenMaps, p.Reserved7,
	}
}

// NamedFile is one PKAC payload with its name table entry.
type NamedFile struct {
	Name    string
	Content []byte
}

// PKAC is a named payload bundle: bucket 0 holds the name table, bucket 1 the payloads.
type PKAC struct {
	// Files pair payloads with the leading name table entries.
	Files []NamedFile
	// SpareNames are name table entries beyond the payload count.
	SpareNames []string
	// NameTable is the stored table when it differs from the sequential
	// layout EncodeNameTable produces. It is nil for canonical tables.
	NameTable []byte
}

// Bucket roles used by PKAC.
const (
	pkacNameBucket    = 0
	pkacPayloadBucket = 1
)

// DecodePKAC parses a whole PKAC file.
func DecodePKAC(buf []byte) (*PKAC, error) {
	b, err := DecodeBucketArchive(buf)
	if err != nil {
		return nil, err
	}

	return PKACFromBuckets(b)
}

// PKACFromBuckets decodes the name table and pairs names with payloads.
func PKACFromBuckets(b BucketArchive) (*PKAC, error) {
	if len(b[pkacNameBucket]) == 0 {
		return nil, malformedf("pkac: name table bucket is empty")
	}
	for i := pkacPayloadBucket + 1; i < bucketCount; i++ {
		if len(b[i]) != 0 {
			return nil, malformedf("pkac: unexpected bucket %d with %d files", i, len(b[i]))
		}
	}

	table := b[pkacNameBucket][0]
	names, err := DecodeNameTable(table)
	if err != nil {
		return nil, err
	}

	payload := b[pkacPayloadBucket]
	if len(names) < len(payload) {
		return nil, malformedf("pkac: name table has %d entries for %d payloads", len(names), len(payload))
	}

	out := &PKAC{Files: make([]NamedFile, len(payload))}
	for i := range payload {
		out.Files[i] = NamedFile{Name: names[i], Content: payload[i]}
	}
	if len(names) > len(payload) {
		out.SpareNames = names[len(payload):]
	}
	if canonical, err := EncodeNameTable(names); err != nil || !bytes.Equal(canonical, table) {
		out.NameTable = bytes.Clone(table)
	}

	return out, nil
}

// Buckets returns the positional wire form with an encoded name table.
func (p *PKAC) Buckets() (BucketArchive, error) {
	names := make([]string, 0, len(p.Files)+len(p.SpareNames))
	payload := make([][]byte, 0, len(p.Files))
	for _, f := range p.Files {
		names = append(names, f.Name)
		payload = append(payload, f.Content)
	}
	names = append(names, p.SpareNames...)

	table, err := p.nameTable(names)
	if err != nil {
		return BucketArchive{}, err
	}

	var b BucketArchive
	b[pkacNameBucket] = [][]byte{table}
	if len(payload) > 0 {
		b[pkacPayloadBucket] = payload
	}

	return b, nil
}

// nameTable returns the stored table while it still decodes to names,
// otherwise a freshly encoded one.
func (p *PKAC) nameTable(names []string) ([]byte, error) {
	if p.NameTable != nil {
		stored, err := DecodeNameTable(p.NameTable)
		if err == nil && slices.Equal(stored, names) {
			return p.NameTable, nil
		}
	}

	return EncodeNameTable(names)
}

// DecodeNameTable parses a PKAC name table: u16 count, count × u16 offsets
// relative to table start, each pointing to a NUL-terminated ASCII name.
func DecodeNameTable(buf []byte) ([]string, error) {
	if len(buf) < 2 {
		return nil, malformedf("pkac: short name table (%d bytes)", len(buf))
	}

	count := int(binary.LittleEndian.Uint16(buf))
	if 2+count*2 > len(buf) {
		return nil, malformedf("pkac: %d name offsets exceed %d bytes", count, len(buf))
	}

	names := make([]string, count)
	for i := range count {
		off := int(binary.LittleEndian.Uint16(buf[2+i*2:]))
		if off >= len(buf) {
			return nil, malformedf("pkac: name %d offset %d exceeds %d bytes", i, off, len(buf))
		}

		end := bytes.IndexByte(buf[off:], 0)
		if end < 0 {
			return nil, malformedf("pkac: name %d at %d is not terminated", i, off)
		}

		names[i] = string(buf[off : off+end])
	}

	return names, nil
}

// EncodeNameTable writes names sequentially after the offset table.
func EncodeNameTable(names []string) ([]byte, error) {
	if len(names) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d names", ErrSizeOverflow, len(names))
	}

	out := make([]byte, 0, 2+2*len(names))
	out = binary.LittleEndian.AppendUint16(out, uint16(len(names))) //nolint:gosec // checked above
	out = append(out, make([]byte, 2*len(names))...)
	for i, name := range names {
		if len(out) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: name %d offset %d", ErrSizeOverflow, i, len(out))
		}

		binary.LittleEndian.PutUint16(out[2+i*2:], uint16(len(out))) //nolint:gosec // checked above
		out = append(out, name...)
		out = append(out, 0)
	}

	return out, nil
}
