// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"fmt"
	"os"
	"strconv"
)

// MemberInfo describes one direct container member without unpacking it.
type MemberInfo struct {
	// Name is the recorded or suggested member name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Type is the classified kind of stored bytes.
	Type FileType `json:"type" yaml:"type"`
	// Bucket is the bucket index for HPAK/PK2D/PKAC members.
	Bucket int `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	// Index is the position inside the archive or bucket.
	Index int `json:"index" yaml:"index"`
	// Size is stored size in bytes.
	Size int `json:"size" yaml:"size"`
	// Compressed reports a P2 subfile stored LZ-compressed.
	Compressed bool `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// ContainerInfo is the top-level listing of one file.
type ContainerInfo struct {
	// Variant is set for LZ streams.
	Variant LZVariant `json:"variant,omitempty" yaml:"variant,omitempty"`
	// Type is the classified kind of the file.
	Type FileType `json:"type" yaml:"type"`
	// Members are direct members after filtering.
	Members []MemberInfo `json:"members,omitempty" yaml:"members,omitempty"`
	// Size is file size in bytes.
	Size int `json:"size" yaml:"size"`
	// Unpacked is decompressed size of an LZ stream.
	Unpacked int `json:"unpacked,omitempty" yaml:"unpacked,omitempty"`
	// Named reports a P2 archive with a name table.
	Named bool `json:"named,omitempty" yaml:"named,omitempty"`
}

// ListOptions filters listed members.
type ListOptions struct {
	// Prefix keeps members whose name starts with it (case-insensitive).
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// MinSize drops members smaller than this many stored bytes.
	MinSize int `json:"min_size,omitempty" yaml:"min_size,omitempty"`
	// SkipEmpty drops zero-length members.
	SkipEmpty bool `json:"skip_empty,omitempty" yaml:"skip_empty,omitempty"`
	// ASCIIOnly drops members whose name contains non-ASCII bytes.
	ASCIIOnly bool `json:"ascii_only,omitempty" yaml:"ascii_only,omitempty"`
}

// ListMembers reads a file and returns its member listing without payload decoding.
func ListMembers(path string, opts ListOptions) (*ContainerInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIOFailure, path, err)
	}

	return ListMembersFromBytes(data, opts)
}

// ListMembersFromBytes classifies data and lists direct container members.
// Non-container files yield a listing with no members.
func ListMembersFromBytes(data []byte, opts ListOptions) (*ContainerInfo, error) {
	info := &ContainerInfo{Type: Classify(data, true), Size: len(data)}

	switch info.Type {
	case FileTypeP2:
		archive, err := DecodeSegmentedArchive(data)
		if err != nil {
			return nil, err
		}

		info.Named = archive.Named
		for _, sf := range archive.Subfiles {
			info.Members = append(info.Members, MemberInfo{
				Name:       sf.SuggestName(),
				Type:       Classify(sf.Content, sf.Compressed),
				Index:      sf.Index,
				Size:       len(sf.Content),
				Compressed: sf.Compressed,
			})
		}
	case FileTypeLZ:
		variant, err := lzVariantOf(data)
		if err != nil {
			return nil, err
		}

		plain, err := Codec{}.Decompress(data)
		if err != nil {
			return nil, err
		}

		info.Variant = variant
		info.Unpacked = len(plain)
		info.Members = []MemberInfo{{Type: Classify(plain, false), Size: len(plain)}}
	case FileTypePKAC:
		pkac, err := DecodePKAC(data)
		if err != nil {
			return nil, err
		}

		for i, f := range pkac.Files {
			info.Members = append(info.Members, MemberInfo{
				Name:   f.Name,
				Type:   Classify(f.Content, true),
				Bucket: pkacPayloadBucket,
				Index:  i,
				Size:   len(f.Content),
			})
		}
	case FileTypeHPAK, FileTypePK2D:
		buckets, err := DecodeBucketArchive(data)
		if err != nil {
			return nil, err
		}

		kind, _ := BucketKindOf(info.Type)
		types, _ := kind.BucketTypes()
		for i, files := range buckets {
			for j, f := range files {
				info.Members = append(info.Members, MemberInfo{
					Name:   strconv.Itoa(j) + "." + types[i].Extension(),
					Type:   types[i],
					Bucket: i,
					Index:  j,
					Size:   len(f),
				})
			}
		}
	}

	info.Members = applyListFilters(info.Members, opts)
	return info, nil
}

// applyListFilters runs every configured member filter.
func applyListFilters(members []MemberInfo, opts ListOptions) []MemberInfo {
	if opts.SkipEmpty {
		members = filterEmptyMembers(members)
	}

	members = filterMembersBySize(members, opts.MinSize)
	if opts.ASCIIOnly {
		members = filterMembersByASCIIOnly(members)
	}

	return filterMembersByPrefix(members, opts.Prefix)
}
