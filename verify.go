// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

// FileDigest identifies file content by size and XXH3-64 hash.
type FileDigest struct {
	Size int64  `json:"size" yaml:"size"`
	Sum  uint64 `json:"sum" yaml:"sum"`
}

// digestOf hashes data.
func digestOf(data []byte) FileDigest {
	return FileDigest{Size: int64(len(data)), Sum: xxh3.Hash(data)}
}

// VerifyMismatch is one rebuilt file whose content differs from the original.
type VerifyMismatch struct {
	Path string     `json:"path" yaml:"path"`
	Want FileDigest `json:"want" yaml:"want"`
	Got  FileDigest `json:"got" yaml:"got"`
}

// VerifyResult reports how a rebuilt tree compares with the original.
type VerifyResult struct {
	// Mismatches lists files with different content.
	Mismatches []VerifyMismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
	// Missing lists original files the metadata does not rebuild.
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	// Extra lists rebuilt files absent from the original tree.
	Extra []string `json:"extra,omitempty" yaml:"extra,omitempty"`
	// Matched is number of byte-identical files.
	Matched int `json:"matched" yaml:"matched"`
	// Bytes is total rebuilt size.
	Bytes int64 `json:"bytes" yaml:"bytes"`
	// Duration is end-to-end verification duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// OK reports whether the rebuilt tree equals the original.
func (r *VerifyResult) OK() bool {
	return len(r.Mismatches) == 0 && len(r.Missing) == 0 && len(r.Extra) == 0
}

// digestSink is a Sink that keeps only content digests.
type digestSink struct {
	files map[string]FileDigest
	mu    sync.Mutex
}

// WriteFile implements Sink.
func (s *digestSink) WriteFile(p RelPath, data []byte) error {
	d := digestOf(data)

	s.mu.Lock()
	s.files[p.String()] = d
	s.mu.Unlock()

	return nil
}

// CreateDir implements Sink.
func (*digestSink) CreateDir(RelPath) error { return nil }

// Verify repacks root in memory and compares every rebuilt file with original.
func Verify(ctx context.Context, original, unpacked Source, root *Node, opts PackOptions) (*VerifyResult, error) {
	start := time.Now()
	sink := &digestSink{files: make(map[string]FileDigest)}
	packRes, err := Pack(ctx, unpacked, sink, root, opts)
	if err != nil {
		return nil, err
	}

	originals, err := listFiles(original, RelPath{})
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{Bytes: packRes.Bytes}
	seen := make(map[string]struct{}, len(originals))
	for _, p := range originals {
		key := p.String()
		seen[key] = struct{}{}

		got, ok := sink.files[key]
		if !ok {
			res.Missing = append(res.Missing, key)
			continue
		}

		data, err := original.ReadFile(p)
		if err != nil {
			return nil, err
		}

		want := digestOf(data)
		if want != got {
			res.Mismatches = append(res.Mismatches, VerifyMismatch{Path: key, Want: want, Got: got})
			continue
		}

		res.Matched++
	}

	for _, key := range slices.Sorted(maps.Keys(sink.files)) {
		if _, ok := seen[key]; !ok {
			res.Extra = append(res.Extra, key)
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

// VerifyDir reads the metadata document and verifies unpackedRoot against inRoot.
func VerifyDir(ctx context.Context, inRoot, unpackedRoot, metaPath string, opts PackOptions) (*VerifyResult, error) {
	root, err := ReadMetadataFile(metaPath)
	if err != nil {
		return nil, err
	}

	return Verify(ctx, DirFS{In: inRoot}, DirFS{In: unpackedRoot}, root, opts)
}

// listFiles returns every file below dir in sorted walk order.
func listFiles(src Source, dir RelPath) ([]RelPath, error) {
	names, err := src.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []RelPath
	for _, name := range names {
		child := dir.Join(name)
		isDir, err := src.IsDir(child)
		if err != nil {
			return nil, err
		}

		if !isDir {
			out = append(out, child)
			continue
		}

		nested, err := listFiles(src, child)
		if err != nil {
			return nil, err
		}

		out = append(out, nested...)
	}

	return out, nil
}
