// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"bytes"
	"context"
	"fmt"
	"testing"
)

const (
	benchSubfiles    = 128
	benchPayloadSize = 4096
)

var (
	// benchSizeSink prevents compiler elimination in codec benchmark loops.
	benchSizeSink int
)

func BenchmarkEncodeSegmentedArchive(b *testing.B) {
	archive := createBenchArchive(benchSubfiles)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out, err := EncodeSegmentedArchive(archive)
		if err != nil {
			b.Fatal(err)
		}
		benchSizeSink = len(out)
	}
}

func BenchmarkDecodeSegmentedArchive(b *testing.B) {
	buf, err := EncodeSegmentedArchive(createBenchArchive(benchSubfiles))
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(int64(len(buf)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		archive, err := DecodeSegmentedArchive(buf)
		if err != nil {
			b.Fatal(err)
		}
		benchSizeSink = len(archive.Subfiles)
	}
}

func BenchmarkCodecCompress(b *testing.B) {
	for _, variant := range []LZVariant{LZ10, LZ11} {
		b.Run(string(variant), func(b *testing.B) {
			src := benchPayload(0, benchPayloadSize*4)

			b.ReportAllocs()
			b.SetBytes(int64(len(src)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				out, err := Codec{}.Compress(variant, src)
				if err != nil {
					b.Fatal(err)
				}
				benchSizeSink = len(out)
			}
		})
	}
}

func BenchmarkCodecDecompress(b *testing.B) {
	src := benchPayload(0, benchPayloadSize*4)
	packed, err := Codec{}.Compress(LZ11, src)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(int64(len(src)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out, err := Codec{}.Decompress(packed)
		if err != nil {
			b.Fatal(err)
		}
		benchSizeSink = len(out)
	}
}

func BenchmarkExtract(b *testing.B) {
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			files := fixtureFiles(b)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := Extract(context.Background(), newMemFS(files), newMemFS(nil), ExtractOptions{MaxWorkers: workers})
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPack(b *testing.B) {
	src := newMemFS(fixtureFiles(b))
	unpacked := newMemFS(nil)
	res, err := Extract(context.Background(), src, unpacked, ExtractOptions{})
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Pack(context.Background(), unpacked, newMemFS(nil), res.Root, PackOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

// createBenchArchive builds a named P2 archive with deterministic payloads.
func createBenchArchive(count int) *SegmentedArchive {
	archive := &SegmentedArchive{Named: true, Subfiles: make([]Subfile, count)}
	for i := range count {
		archive.Subfiles[i] = Subfile{
			Index:   i,
			Name:    fmt.Sprintf("f%04d", i),
			Content: benchPayload(i, benchPayloadSize),
		}
	}

	return archive
}

// benchPayload returns semi-repetitive content that compresses like real assets.
func benchPayload(seed, size int) []byte {
	var buf bytes.Buffer
	buf.Grow(size)
	for i := 0; buf.Len() < size; i++ {
		fmt.Fprintf(&buf, "BMD0 vertex %d/%d ", seed, i%17)
	}

	return buf.Bytes()[:size]
}
