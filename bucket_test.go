// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeBucketArchiveLayout(t *testing.T) {
	t.Parallel()

	var b BucketArchive
	b[0] = [][]byte{[]byte("0123456789")}

	out, err := EncodeBucketArchive(MagicHPAK, b)
	if err != nil {
		t.Fatalf("EncodeBucketArchive: %v", err)
	}

	if len(out) != 8+32+12+10 {
		t.Fatalf("len=%d, want 62", len(out))
	}
	if !bytes.Equal(out[:4], []byte("HPAK")) || binary.LittleEndian.Uint32(out[4:]) != 0 {
		t.Fatalf("prefix=% x", out[:8])
	}

	info := binary.LittleEndian.Uint32(out[8:])
	if info != 40 {
		t.Fatalf("bucket 0 info offset=%d, want 40", info)
	}
	for i := 1; i < bucketCount; i++ {
		if got := binary.LittleEndian.Uint32(out[8+i*4:]); got != bucketEmptyMarker {
			t.Fatalf("bucket %d info offset=%#x, want sentinel", i, got)
		}
	}

	count := binary.LittleEndian.Uint32(out[40:])
	offset := binary.LittleEndian.Uint32(out[44:])
	length := binary.LittleEndian.Uint32(out[48:])
	if count != 1 || offset != 52 || length != 10 {
		t.Fatalf("info block count=%d offset=%d length=%d, want 1,52,10", count, offset, length)
	}
	if !bytes.Equal(out[52:], []byte("0123456789")) {
		t.Fatalf("payload=% x", out[52:])
	}
}

func TestBucketArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	var sparse BucketArchive
	sparse[7] = [][]byte{[]byte("BMD0 model")}
	sparse[3] = [][]byte{[]byte("a"), {}, []byte("ccc")}

	var full BucketArchive
	for i := range full {
		full[i] = [][]byte{bytes.Repeat([]byte{byte(i)}, i+1)}
	}

	for name, archive := range map[string]BucketArchive{"empty": {}, "sparse": sparse, "full": full} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			first, err := EncodeBucketArchive(MagicPK2D, archive)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			decoded, err := DecodeBucketArchive(first)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bucketsEqual(decoded, archive) {
				t.Fatalf("decoded buckets differ from input")
			}

			second, err := EncodeBucketArchive(MagicPK2D, decoded)
			if err != nil {
				t.Fatalf("re-encode: %v", err)
			}
			if !bytes.Equal(first, second) {
				t.Fatalf("re-encoded bytes differ")
			}
		})
	}
}

func TestBucketArchivePresentEmptyBucket(t *testing.T) {
	t.Parallel()

	in := make([]byte, 0, 44)
	in = append(in, "HPAK"...)
	in = binary.LittleEndian.AppendUint32(in, 0)
	in = binary.LittleEndian.AppendUint32(in, 40)
	for range bucketCount - 1 {
		in = binary.LittleEndian.AppendUint32(in, bucketEmptyMarker)
	}
	in = binary.LittleEndian.AppendUint32(in, 0)

	decoded, err := DecodeBucketArchive(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[0] == nil || len(decoded[0]) != 0 {
		t.Fatalf("bucket 0=%v, want present and empty", decoded[0])
	}
	if got := decoded.EmptyBuckets(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("EmptyBuckets()=%v, want [0]", got)
	}

	out, err := EncodeBucketArchive(MagicHPAK, decoded)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Fatalf("re-encoded % x, want % x", out, in)
	}
}

func TestDecodeBucketArchiveMalformed(t *testing.T) {
	t.Parallel()

	var b BucketArchive
	b[1] = [][]byte{[]byte("payload")}
	valid, err := EncodeBucketArchive(MagicHPAK, b)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	badInfo := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(badInfo[12:], uint32(len(valid)))

	badCount := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(badCount[40:], 1000)

	badLength := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(badLength[48:], 1000)

	testCases := map[string][]byte{
		"short":  valid[:20],
		"info":   badInfo,
		"count":  badCount,
		"length": badLength,
	}

	for name, buf := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := DecodeBucketArchive(buf); !errors.Is(err, ErrMalformedContainer) {
				t.Fatalf("err=%v, want ErrMalformedContainer", err)
			}
		})
	}
}

func TestNamedBucketRecords(t *testing.T) {
	t.Parallel()

	var b BucketArchive
	for i := range b {
		b[i] = [][]byte{{byte(i)}}
	}

	h := HPAKFromBuckets(b)
	if h.ModelAnims[0][0] != 0 || h.Models[0][0] != 7 || h.TextureAnims[0][0] != 4 {
		t.Fatalf("HPAK fields misassigned: %+v", h)
	}
	if !bucketsEqual(h.Buckets(), b) {
		t.Fatalf("HPAK.Buckets() differs from input")
	}

	p := PK2DFromBuckets(b)
	if p.Palettes[0][0] != 0 || p.Tiles[0][0] != 1 || p.ScreenMaps[0][0] != 6 {
		t.Fatalf("PK2D fields misassigned: %+v", p)
	}
	if !bucketsEqual(p.Buckets(), b) {
		t.Fatalf("PK2D.Buckets() differs from input")
	}

	types, ok := BucketKindHPAK.BucketTypes()
	if !ok || types[7] != FileTypeNSBMD || types[0] != FileTypeNSBCA {
		t.Fatalf("HPAK bucket types=%v", types)
	}
	if _, ok := BucketKindPKAC.BucketTypes(); ok {
		t.Fatalf("PKAC must not have fixed bucket types")
	}
	if BucketKindPK2D.FileType() != FileTypePK2D || BucketKindPKAC.Magic() != MagicPKAC {
		t.Fatalf("bucket kind mapping broken")
	}
}

func bucketsEqual(a, b BucketArchive) bool {
	for i := range a {
		if (a[i] == nil) != (b[i] == nil) || len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if !bytes.Equal(a[i][j], b[i][j]) {
				return false
			}
		}
	}

	return true
}

// pkacBytes builds a PKAC file from a name table and payloads.
func pkacBytes(t *testing.T, names []string, payload [][]byte) []byte {
	t.Helper()

	table, err := EncodeNameTable(names)
	if err != nil {
		t.Fatalf("EncodeNameTable: %v", err)
	}

	var b BucketArchive
	b[0] = [][]byte{table}
	b[1] = payload

	out, err := EncodeBucketArchive(MagicPKAC, b)
	if err != nil {
		t.Fatalf("EncodeBucketArchive: %v", err)
	}

	return out
}

func TestDecodePKAC(t *testing.T) {
	t.Parallel()

	blob0, blob1 := []byte("first"), []byte("second")
	pkac, err := DecodePKAC(pkacBytes(t, []string{"a", "bb"}, [][]byte{blob0, blob1}))
	if err != nil {
		t.Fatalf("DecodePKAC: %v", err)
	}

	if len(pkac.Files) != 2 || pkac.Files[0].Name != "a" || pkac.Files[1].Name != "bb" {
		t.Fatalf("files=%+v", pkac.Files)
	}
	if !bytes.Equal(pkac.Files[0].Content, blob0) || !bytes.Equal(pkac.Files[1].Content, blob1) {
		t.Fatalf("payload mismatch")
	}
	if len(pkac.SpareNames) != 0 {
		t.Fatalf("spare names=%v", pkac.SpareNames)
	}

	_, err = DecodePKAC(pkacBytes(t, []string{"a", "bb"}, [][]byte{blob0, blob1, []byte("third")}))
	if !errors.Is(err, ErrMalformedContainer) {
		t.Fatalf("short name table err=%v, want ErrMalformedContainer", err)
	}
}

func TestPKACSpareNamesRoundTrip(t *testing.T) {
	t.Parallel()

	in := pkacBytes(t, []string{"a", "bb", "spare"}, [][]byte{[]byte("x"), []byte("y")})
	pkac, err := DecodePKAC(in)
	if err != nil {
		t.Fatalf("DecodePKAC: %v", err)
	}
	if len(pkac.SpareNames) != 1 || pkac.SpareNames[0] != "spare" {
		t.Fatalf("spare names=%v", pkac.SpareNames)
	}

	b, err := pkac.Buckets()
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}
	out, err := EncodeBucketArchive(MagicPKAC, b)
	if err != nil {
		t.Fatalf("EncodeBucketArchive: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Fatalf("PKAC round trip differs")
	}
}

func TestPKACFromBucketsMalformed(t *testing.T) {
	t.Parallel()

	table, err := EncodeNameTable([]string{"a"})
	if err != nil {
		t.Fatalf("EncodeNameTable: %v", err)
	}

	var noTable BucketArchive
	noTable[1] = [][]byte{[]byte("x")}

	var extraBucket BucketArchive
	extraBucket[0] = [][]byte{table}
	extraBucket[4] = [][]byte{[]byte("x")}

	var badTable BucketArchive
	badTable[0] = [][]byte{{0x01, 0x00, 0x40, 0x00}}

	var unterminated BucketArchive
	unterminated[0] = [][]byte{{0x01, 0x00, 0x04, 0x00, 'a'}}

	for name, b := range map[string]BucketArchive{
		"no table":     noTable,
		"extra bucket": extraBucket,
		"bad offset":   badTable,
		"unterminated": unterminated,
	} {
		if _, err := PKACFromBuckets(b); !errors.Is(err, ErrMalformedContainer) {
			t.Fatalf("%s: err=%v, want ErrMalformedContainer", name, err)
		}
	}
}

func TestPKACPaddedNameTableRoundTrip(t *testing.T) {
	t.Parallel()

	// Two names at 4-byte aligned offsets, the second shared by a spare entry.
	table := []byte{0x03, 0x00, 0x08, 0x00, 0x0C, 0x00, 0x0C, 0x00, 'a', 0, 0, 0, 'b', 'b', 0, 0}

	var b BucketArchive
	b[0] = [][]byte{table}
	b[1] = [][]byte{[]byte("x"), []byte("y")}
	in, err := EncodeBucketArchive(MagicPKAC, b)
	if err != nil {
		t.Fatalf("EncodeBucketArchive: %v", err)
	}

	pkac, err := DecodePKAC(in)
	if err != nil {
		t.Fatalf("DecodePKAC: %v", err)
	}
	if !bytes.Equal(pkac.NameTable, table) {
		t.Fatalf("NameTable=% x, want stored table", pkac.NameTable)
	}
	if len(pkac.SpareNames) != 1 || pkac.SpareNames[0] != "bb" {
		t.Fatalf("spare names=%v", pkac.SpareNames)
	}

	rebuilt, err := pkac.Buckets()
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}
	out, err := EncodeBucketArchive(MagicPKAC, rebuilt)
	if err != nil {
		t.Fatalf("EncodeBucketArchive: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Fatalf("PKAC round trip differs")
	}

	// A rename no longer matches the stored table, so it is rebuilt.
	pkac.Files[0].Name = "renamed"
	rebuilt, err = pkac.Buckets()
	if err != nil {
		t.Fatalf("Buckets after rename: %v", err)
	}
	names, err := DecodeNameTable(rebuilt[0][0])
	if err != nil {
		t.Fatalf("DecodeNameTable: %v", err)
	}
	if len(names) != 3 || names[0] != "renamed" || names[1] != "bb" || names[2] != "bb" {
		t.Fatalf("names=%v", names)
	}
}

func TestPKACCanonicalNameTableIsNotKept(t *testing.T) {
	t.Parallel()

	pkac, err := DecodePKAC(pkacBytes(t, []string{"a", "bb"}, [][]byte{[]byte("x"), []byte("y")}))
	if err != nil {
		t.Fatalf("DecodePKAC: %v", err)
	}
	if pkac.NameTable != nil {
		t.Fatalf("NameTable=% x, want nil for a sequential table", pkac.NameTable)
	}
}

func TestNameTableLayout(t *testing.T) {
	t.Parallel()

	table, err := EncodeNameTable([]string{"a", "bb"})
	if err != nil {
		t.Fatalf("EncodeNameTable: %v", err)
	}

	want := []byte{0x02, 0x00, 0x06, 0x00, 0x08, 0x00, 'a', 0, 'b', 'b', 0}
	if !bytes.Equal(table, want) {
		t.Fatalf("table=% x, want % x", table, want)
	}

	names, err := DecodeNameTable(table)
	if err != nil {
		t.Fatalf("DecodeNameTable: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "bb" {
		t.Fatalf("names=%v", names)
	}
}
