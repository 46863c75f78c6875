// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import "encoding/binary"

// FileType is a recognized container or asset kind.
type FileType uint8

// Recognized file kinds. FileTypeOpaque is the terminal kind for unrecognized content.
const (
	FileTypeOpaque FileType = iota
	FileTypeP2
	FileTypeLZ
	FileTypeHPAK
	FileTypePK2D
	FileTypePKAC
	FileTypeNSBCA
	FileTypeNSBVA
	FileTypeNSBMA
	FileTypeNSBTP
	FileTypeNSBTA
	FileTypeNSBTX
	FileTypeNSBMD
	FileTypeNCLR
	FileTypeNCGR
	FileTypeNCER
	FileTypeNANR
	FileTypeNSCR
	FileTypeNFTR
	FileTypeSDAT
	FileTypeUnknown2
	FileTypeUnknown4
	FileTypeUnknown5
	FileTypeUnknown6
	FileTypeUnknown7
)

// Container magics as stored little-endian in the first bytes of a file.
var (
	// MagicHPAK marks a model/animation bucket archive.
	MagicHPAK = leMagic("HPAK")
	// MagicPK2D marks a 2D graphics bucket archive.
	MagicPK2D = leMagic("PK2D")
	// MagicPKAC marks a named bucket archive.
	MagicPKAC = leMagic("PKAC")
)

// MagicP2 is the 2-byte segmented archive magic.
const MagicP2 uint16 = 'P' | '2'<<8

// lzMarker10 and lzMarker11 are leading bytes of the two LZ stream variants.
const (
	lzMarker10 = 0x10
	lzMarker11 = 0x11
)

type fileTypeInfo struct {
	name        string
	ext         string
	stillPacked bool
}

var fileTypeTable = [...]fileTypeInfo{
	FileTypeOpaque:   {name: "opaque", ext: "bin"},
	FileTypeP2:       {name: "p2", ext: "p2", stillPacked: true},
	FileTypeLZ:       {name: "lz", ext: "lz", stillPacked: true},
	FileTypeHPAK:     {name: "hpak", ext: "hpak", stillPacked: true},
	FileTypePK2D:     {name: "pk2d", ext: "pk2d", stillPacked: true},
	FileTypePKAC:     {name: "pkac", ext: "pkac", stillPacked: true},
	FileTypeNSBCA:    {name: "nsbca", ext: "nsbca"},
	FileTypeNSBVA:    {name: "nsbva", ext: "nsbva"},
	FileTypeNSBMA:    {name: "nsbma", ext: "nsbma"},
	FileTypeNSBTP:    {name: "nsbtp", ext: "nsbtp"},
	FileTypeNSBTA:    {name: "nsbta", ext: "nsbta"},
	FileTypeNSBTX:    {name: "nsbtx", ext: "nsbtx"},
	FileTypeNSBMD:    {name: "nsbmd", ext: "nsbmd"},
	FileTypeNCLR:     {name: "nclr", ext: "nclr"},
	FileTypeNCGR:     {name: "ncgr", ext: "ncgr"},
	FileTypeNCER:     {name: "ncer", ext: "ncer"},
	FileTypeNANR:     {name: "nanr", ext: "nanr"},
	FileTypeNSCR:     {name: "nscr", ext: "nscr"},
	FileTypeNFTR:     {name: "nftr", ext: "nftr"},
	FileTypeSDAT:     {name: "sdat", ext: "sdat"},
	FileTypeUnknown2: {name: "unknown2", ext: "2.bin"},
	FileTypeUnknown4: {name: "unknown4", ext: "4.bin"},
	FileTypeUnknown5: {name: "unknown5", ext: "5.bin"},
	FileTypeUnknown6: {name: "unknown6", ext: "6.bin"},
	FileTypeUnknown7: {name: "unknown7", ext: "7.bin"},
}

// magicTable maps exact 4-byte magics to kinds.
var magicTable = map[uint32]FileType{
	MagicHPAK:       FileTypeHPAK,
	MagicPK2D:       FileTypePK2D,
	MagicPKAC:       FileTypePKAC,
	leMagic("BMD0"): FileTypeNSBMD,
	leMagic("BTX0"): FileTypeNSBTX,
	leMagic("BCA0"): FileTypeNSBCA,
	leMagic("BTP0"): FileTypeNSBTP,
	leMagic("BTA0"): FileTypeNSBTA,
	leMagic("BMA0"): FileTypeNSBMA,
	leMagic("BVA0"): FileTypeNSBVA,
	leMagic("RGCN"): FileTypeNCGR,
	leMagic("RLCN"): FileTypeNCLR,
	leMagic("RCSN"): FileTypeNSCR,
	leMagic("RNFT"): FileTypeNFTR,
	leMagic("RECN"): FileTypeNCER,
	leMagic("RNAN"): FileTypeNANR,
	leMagic("SDAT"): FileTypeSDAT,
}

// Classify sniffs leading bytes of buf and returns its kind.
// mayBeCompressed allows a leading 0x10/0x11 byte to classify as an LZ stream.
// The result depends only on the first four bytes.
func Classify(buf []byte, mayBeCompressed bool) FileType {
	if len(buf) < 4 {
		return FileTypeOpaque
	}

	magic := binary.LittleEndian.Uint32(buf)
	if ft, ok := magicTable[magic]; ok {
		return ft
	}

	if uint16(magic) == MagicP2 {
		return FileTypeP2
	}

	if mayBeCompressed && (buf[0] == lzMarker10 || buf[0] == lzMarker11) {
		return FileTypeLZ
	}

	return FileTypeOpaque
}

// Extension returns the canonical file extension (without dot).
func (t FileType) Extension() string {
	if int(t) >= len(fileTypeTable) {
		return fileTypeTable[FileTypeOpaque].ext
	}

	return fileTypeTable[t].ext
}

// StillPacked reports whether the pipeline must recurse into this kind.
func (t FileType) StillPacked() bool {
	if int(t) >= len(fileTypeTable) {
		return false
	}

	return fileTypeTable[t].stillPacked
}

// String implements fmt.Stringer.
func (t FileType) String() string {
	if int(t) >= len(fileTypeTable) {
		return "invalid"
	}

	return fileTypeTable[t].name
}

// leMagic converts a 4-character tag to its little-endian word.
func leMagic(tag string) uint32 {
	return binary.LittleEndian.Uint32([]byte(tag))
}

// MarshalText implements encoding.TextMarshaler.
func (t FileType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
