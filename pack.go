// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// packJob is one top-level file collected from a directory node.
type packJob struct {
	node   *Node
	parent RelPath
	name   string
}

// Pack rebuilds the source tree described by root. Container content is read
// from src (the unpacked tree) and every rebuilt file is written to dst.
// Directories are created in tree order; files are encoded concurrently.
func Pack(ctx context.Context, src Source, dst Sink, root *Node, opts PackOptions) (*PackResult, error) {
	start := time.Now()
	opts.applyDefaults()

	if _, ok := root.Meta().(*DirectoryMeta); !ok {
		return nil, fmt.Errorf("%w: root is %s, want directory", ErrEncodingInconsistency, kindOf(root))
	}

	res := &PackResult{}
	var jobs []packJob
	if err := collectPackJobs(dst, RelPath{}, root, &jobs, res); err != nil {
		return res, err
	}

	var (
		files   atomic.Int64
		written atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxWorkers)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			path := job.parent.Join(job.name)
			data, err := EncodeNode(src, opts.Compressor, job.parent, job.node)
			if err != nil {
				return fmt.Errorf("encode %s: %w", path, err)
			}

			if err := dst.WriteFile(path, data); err != nil {
				return err
			}

			files.Add(1)
			written.Add(int64(len(data)))
			opts.Logger.Debug().Str("path", path.String()).Str("kind", kindOf(job.node)).Int("size", len(data)).Msg("file packed")
			if opts.OnFileDone != nil {
				opts.OnFileDone(PackFileProgress{
					Path: path.String(),
					Kind: kindOf(job.node),
					Size: int64(len(data)),
				})
			}

			return nil
		})
	}

	err := g.Wait()
	res.Files = files.Load()
	res.Bytes = written.Load()
	res.Duration = time.Since(start)

	return res, err
}

// collectPackJobs creates directories and gathers file jobs in discovery order.
func collectPackJobs(dst Sink, dir RelPath, node *Node, jobs *[]packJob, res *PackResult) error {
	meta, ok := node.Meta().(*DirectoryMeta)
	if !ok {
		return fmt.Errorf("%w: %s at %q, want directory", ErrEncodingInconsistency, kindOf(node), dir.String())
	}

	if err := dst.CreateDir(dir); err != nil {
		return err
	}
	res.Directories++

	for _, entry := range meta.Entries {
		if err := checkEntryName(entry.Name); err != nil {
			return fmt.Errorf("directory %q: %w", dir.String(), err)
		}

		if _, isDir := entry.Node.Meta().(*DirectoryMeta); isDir {
			if err := collectPackJobs(dst, dir.Join(entry.Name), entry.Node, jobs, res); err != nil {
				return err
			}

			continue
		}

		*jobs = append(*jobs, packJob{node: entry.Node, parent: dir, name: entry.Name})
	}

	return nil
}

// EncodeNode rebuilds the bytes of one non-directory node. parent is the
// unpacked directory the node lives in. A nil comp uses Codec.
func EncodeNode(src Source, comp Compressor, parent RelPath, node *Node) ([]byte, error) {
	if comp == nil {
		comp = Codec{}
	}

	switch meta := node.Meta().(type) {
	case nil:
		return nil, fmt.Errorf("%w: unresolved node in %q", ErrEncodingInconsistency, parent.String())
	case *EmptyMeta:
		return []byte{}, nil
	case *OpaqueMeta:
		if err := checkEntryName(meta.Name); err != nil {
			return nil, err
		}

		return src.ReadFile(parent.Join(meta.Name))
	case *CompressedMeta:
		plain, err := EncodeNode(src, comp, parent, meta.Node)
		if err != nil {
			return nil, err
		}

		return comp.Compress(meta.Variant.orDefault(), plain)
	case *SegmentedMeta:
		return encodeSegmented(src, comp, parent, meta)
	case *BucketMeta:
		return encodeBuckets(src, comp, parent, meta)
	case *DirectoryMeta:
		return nil, fmt.Errorf("%w: directory %q inside a container", ErrEncodingInconsistency, meta.Name)
	default:
		return nil, fmt.Errorf("%w: unknown metadata %T", ErrEncodingInconsistency, meta)
	}
}

// encodeSegmented rebuilds a P2 archive from recorded subfile facts.
func encodeSegmented(src Source, comp Compressor, parent RelPath, meta *SegmentedMeta) ([]byte, error) {
	if err := checkEntryName(meta.Name); err != nil {
		return nil, err
	}

	dir := parent.Join(meta.Name)
	archive := &SegmentedArchive{
		Named:    meta.Named,
		Subfiles: make([]Subfile, len(meta.Subfiles)),
	}

	for i, sf := range meta.Subfiles {
		content, err := EncodeNode(src, comp, dir, sf.Node)
		if err != nil {
			return nil, fmt.Errorf("subfile %d: %w", i, err)
		}

		if sf.Compressed && (len(content) != 0 || sf.Variant != "") {
			content, err = comp.Compress(sf.Variant.orDefault(), content)
			if err != nil {
				return nil, fmt.Errorf("subfile %d: %w", i, err)
			}
		}

		archive.Subfiles[i] = Subfile{
			Index:      i,
			Name:       sf.Name,
			Content:    content,
			Compressed: sf.Compressed,
		}
	}

	return EncodeSegmentedArchive(archive)
}

// encodeBuckets rebuilds a HPAK, PK2D, or PKAC archive.
func encodeBuckets(src Source, comp Compressor, parent RelPath, meta *BucketMeta) ([]byte, error) {
	if err := checkEntryName(meta.Name); err != nil {
		return nil, err
	}
	if !meta.Container.Valid() {
		return nil, fmt.Errorf("%w: bucket container %q", ErrEncodingInconsistency, meta.Container)
	}

	dir := parent.Join(meta.Name)
	var buckets BucketArchive
	for i, nodes := range meta.Buckets {
		for j, child := range nodes {
			content, err := EncodeNode(src, comp, dir, child)
			if err != nil {
				return nil, fmt.Errorf("bucket %d file %d: %w", i, j, err)
			}

			buckets[i] = append(buckets[i], content)
		}
	}

	if meta.Container == BucketKindPKAC {
		var err error
		buckets, err = pkacBuckets(meta, buckets)
		if err != nil {
			return nil, err
		}
	}

	for _, i := range meta.EmptyBuckets {
		if i < 0 || i >= bucketCount {
			return nil, fmt.Errorf("%w: empty bucket index %d", ErrEncodingInconsistency, i)
		}
		if len(buckets[i]) != 0 {
			return nil, fmt.Errorf("%w: bucket %d is marked empty but has %d files", ErrEncodingInconsistency, i, len(buckets[i]))
		}

		buckets[i] = [][]byte{}
	}

	return EncodeBucketArchive(meta.Container.Magic(), buckets)
}

// pkacBuckets pairs encoded payloads with recorded names and rebuilds the name table.
func pkacBuckets(meta *BucketMeta, encoded BucketArchive) (BucketArchive, error) {
	for i, files := range encoded {
		if i != pkacPayloadBucket && len(files) != 0 {
			return BucketArchive{}, fmt.Errorf("%w: pkac bucket %d has %d children", ErrEncodingInconsistency, i, len(files))
		}
	}

	payload := encoded[pkacPayloadBucket]
	if len(meta.Names) != len(payload) {
		return BucketArchive{}, fmt.Errorf("%w: pkac has %d names for %d payloads", ErrEncodingInconsistency, len(meta.Names), len(payload))
	}

	pkac := &PKAC{Files: make([]NamedFile, len(payload)), SpareNames: meta.SpareNames, NameTable: meta.NameTable}
	for i := range payload {
		pkac.Files[i] = NamedFile{Name: meta.Names[i], Content: payload[i]}
	}

	return pkac.Buckets()
}

// PackDir reads the metadata document at metaPath and rebuilds the source tree
// from unpackedRoot into outRoot.
func PackDir(ctx context.Context, metaPath, unpackedRoot, outRoot string, opts PackOptions) (*PackResult, error) {
	root, err := ReadMetadataFile(metaPath)
	if err != nil {
		return nil, err
	}

	fsys := DirFS{In: unpackedRoot, Out: outRoot}
	return Pack(ctx, fsys, fsys, root, opts)
}

// kindOf returns the variant name of node, or "unresolved".
func kindOf(node *Node) string {
	meta := node.Meta()
	if meta == nil {
		return "unresolved"
	}

	return meta.Kind()
}
