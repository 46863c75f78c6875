// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// unpackTask is one still-packed file owned by a worker together with its slot.
type unpackTask struct {
	slot   *Capability
	data   []byte
	parent RelPath // unpacked directory holding the node
	name   string  // unpacked name inside parent
	source string  // top-level source path, for diagnostics
	kind   FileType
}

// path returns the unpacked-tree path of the task node.
func (t *unpackTask) path() RelPath {
	return t.parent.Join(t.name)
}

// extractor holds per-run extraction state.
type extractor struct {
	src       Source
	dst       Sink
	log       *zerolog.Logger
	unpack    *unpackMatcher
	pool      *workerPool[*unpackTask]
	opts      ExtractOptions
	files     atomic.Int64
	bytes     atomic.Int64
	packed    atomic.Int64
	fallbacks atomic.Int64
}

// Extract walks src, unpacks every recognized container into dst, and returns
// the metadata tree. Directory discovery runs on the calling goroutine; containers
// are unpacked by MaxWorkers workers. A failed task is recorded in
// ExtractResult.Failures and leaves its slot unresolved; the returned error joins
// all task failures.
func Extract(ctx context.Context, src Source, dst Sink, opts ExtractOptions) (*ExtractResult, error) {
	start := time.Now()
	opts.applyDefaults()

	matcher, err := newUnpackMatcher(opts.Unpack, opts.UnpackMatcherOptions)
	if err != nil {
		return nil, err
	}

	e := &extractor{
		src:    src,
		dst:    dst,
		opts:   opts,
		log:    opts.Logger,
		unpack: matcher,
	}
	e.pool = newWorkerPool(ctx, opts.MaxWorkers, opts.PollInterval, e.handle)

	root, slot := NewTree()
	walkErr := e.walk(ctx, RelPath{}, slot)
	failures := e.pool.Wait()

	res := &ExtractResult{
		Root:       root,
		Failures:   failures,
		Files:      e.files.Load(),
		Containers: e.packed.Load(),
		Fallbacks:  e.fallbacks.Load(),
		Bytes:      e.bytes.Load(),
		Duration:   time.Since(start),
	}

	if walkErr != nil {
		return res, walkErr
	}

	if len(failures) > 0 {
		errs := make([]error, len(failures))
		for i, f := range failures {
			errs[i] = f
		}

		return res, errors.Join(errs...)
	}

	return res, nil
}

// walk mirrors one source directory. The directory slot is written before any
// child is dispatched.
func (e *extractor) walk(ctx context.Context, dir RelPath, slot *Capability) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	names, err := e.src.ReadDir(dir)
	if err != nil {
		return err
	}

	meta := &DirectoryMeta{Name: dir.Base(), Entries: make([]DirEntry, len(names))}
	for i, name := range names {
		meta.Entries[i].Name = name
	}

	children, err := slot.Write(meta)
	if err != nil {
		return fmt.Errorf("directory %s: %w", dir, err)
	}

	if err := e.dst.CreateDir(dir); err != nil {
		return err
	}

	e.log.Debug().Str("dir", dir.String()).Int("entries", len(names)).Msg("directory discovered")

	for i, name := range names {
		childSlot, err := children.Take(i)
		if err != nil {
			return err
		}

		child := dir.Join(name)
		isDir, err := e.src.IsDir(child)
		if err != nil {
			return err
		}

		if isDir {
			if err := e.walk(ctx, child, childSlot); err != nil {
				return err
			}

			continue
		}

		data, err := e.src.ReadFile(child)
		if err != nil {
			return err
		}

		task := &unpackTask{
			slot:   childSlot,
			data:   data,
			parent: dir,
			name:   name,
			source: child.String(),
			kind:   Classify(data, true),
		}
		if err := e.dispatch(task, true); err != nil {
			return fmt.Errorf("%s: %w", child, err)
		}
	}

	return nil
}

// dispatch queues still-packed content and stores everything else right away.
// topLevel submissions go through Submit; handlers use Spawn.
func (e *extractor) dispatch(task *unpackTask, topLevel bool) error {
	if len(task.data) == 0 {
		_, err := task.slot.Write(&EmptyMeta{})
		return err
	}

	path := task.path()
	if task.kind.StillPacked() && e.unpack.Match(path.String()) {
		e.log.Debug().Str("path", path.String()).Stringer("type", task.kind).Msg("queued container")
		if topLevel {
			return e.pool.Submit(path.String(), task)
		}

		e.pool.Spawn(path.String(), task)
		return nil
	}

	return e.storeOpaque(task)
}

// storeOpaque writes content verbatim and records an opaque leaf.
func (e *extractor) storeOpaque(task *unpackTask) error {
	path := task.path()
	if err := e.dst.WriteFile(path, task.data); err != nil {
		return err
	}

	if _, err := task.slot.Write(&OpaqueMeta{Name: task.name}); err != nil {
		return err
	}

	e.files.Add(1)
	e.bytes.Add(int64(len(task.data)))
	if e.opts.OnEntryDone != nil {
		e.opts.OnEntryDone(ExtractEntry{
			Path:   path.String(),
			Source: task.source,
			Type:   task.kind,
			Size:   int64(len(task.data)),
		})
	}

	return nil
}

// handle is the worker entry point for one still-packed file.
func (e *extractor) handle(_ context.Context, task *unpackTask) error {
	var err error
	switch task.kind {
	case FileTypeP2:
		err = e.unpackSegmented(task)
	case FileTypeLZ:
		err = e.unpackCompressed(task)
	case FileTypeHPAK, FileTypePK2D:
		err = e.unpackBuckets(task)
	case FileTypePKAC:
		err = e.unpackNamed(task)
	default:
		return e.storeOpaque(task)
	}

	if err == nil {
		e.packed.Add(1)
		return nil
	}

	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		if e.opts.FallbackOpaque {
			e.log.Warn().Err(decodeErr.err).Str("path", task.path().String()).Stringer("type", task.kind).Msg("stored undecodable container as opaque file")
			e.fallbacks.Add(1)
			return e.storeOpaque(task)
		}

		err = decodeErr.err
	}

	e.log.Warn().Err(err).Str("path", task.path().String()).Stringer("type", task.kind).Msg("unpack failed")
	return err
}

// decodeError marks failures that happened before the task slot was written.
type decodeError struct {
	err error
}

func (d *decodeError) Error() string { return d.err.Error() }
func (d *decodeError) Unwrap() error { return d.err }

// childMember is one decoded container member ready for dispatch.
type childMember struct {
	data []byte
	name string
	kind FileType
}

// unpackSegmented decodes a P2 archive. Compressed subfiles are decompressed
// inline and classified without the LZ hint.
func (e *extractor) unpackSegmented(task *unpackTask) error {
	archive, err := DecodeSegmentedArchive(task.data)
	if err != nil {
		return &decodeError{err: err}
	}

	meta := &SegmentedMeta{
		Name:     task.name,
		Named:    archive.Named,
		Subfiles: make([]SubfileMeta, len(archive.Subfiles)),
	}
	members := make([]childMember, len(archive.Subfiles))
	names := newNameSet(len(archive.Subfiles))

	for i := range archive.Subfiles {
		sf := &archive.Subfiles[i]
		content := sf.Content
		meta.Subfiles[i].Name = sf.Name
		meta.Subfiles[i].Compressed = sf.Compressed
		// Empty compressed subfiles carry no stream and keep no variant.
		if sf.Compressed && len(content) != 0 {
			variant, err := lzVariantOf(content)
			if err != nil {
				return &decodeError{err: fmt.Errorf("subfile %d: %w", i, err)}
			}

			content, err = e.opts.Decompressor.Decompress(content)
			if err != nil {
				return &decodeError{err: fmt.Errorf("subfile %d: %w", i, err)}
			}

			meta.Subfiles[i].Variant = variant
		}

		kind := Classify(content, false)
		name, err := names.Claim(sf.SuggestName() + "." + kind.Extension())
		if err != nil {
			return &decodeError{err: err}
		}

		members[i] = childMember{data: content, name: name, kind: kind}
	}

	return e.writeContainer(task, meta, members)
}

// unpackCompressed decodes an LZ stream. The child lives at the same path.
func (e *extractor) unpackCompressed(task *unpackTask) error {
	variant, err := lzVariantOf(task.data)
	if err != nil {
		return &decodeError{err: err}
	}

	plain, err := e.opts.Decompressor.Decompress(task.data)
	if err != nil {
		return &decodeError{err: err}
	}

	children, err := task.slot.Write(&CompressedMeta{Variant: variant})
	if err != nil {
		return err
	}

	inner, err := children.Take(0)
	if err != nil {
		return err
	}

	return e.dispatch(&unpackTask{
		slot:   inner,
		data:   plain,
		parent: task.parent,
		name:   task.name,
		source: task.source,
		kind:   Classify(plain, false),
	}, false)
}

// unpackBuckets decodes HPAK or PK2D. Children are typed by bucket, not sniffed.
func (e *extractor) unpackBuckets(task *unpackTask) error {
	kind, _ := BucketKindOf(task.kind)
	types, _ := kind.BucketTypes()

	buckets, err := DecodeBucketArchive(task.data)
	if err != nil {
		return &decodeError{err: err}
	}

	meta := &BucketMeta{Name: task.name, Container: kind, EmptyBuckets: buckets.EmptyBuckets()}
	var members []childMember
	for i, files := range buckets {
		if len(files) == 0 {
			continue
		}

		meta.Buckets[i] = make([]*Node, len(files))
		for j, f := range files {
			members = append(members, childMember{
				data: f,
				name: strconv.Itoa(j) + "." + types[i].Extension(),
				kind: types[i],
			})
		}
	}

	return e.writeContainer(task, meta, members)
}

// unpackNamed decodes PKAC. Children are named from the name table and sniffed.
func (e *extractor) unpackNamed(task *unpackTask) error {
	buckets, err := DecodeBucketArchive(task.data)
	if err != nil {
		return &decodeError{err: err}
	}
	pkac, err := PKACFromBuckets(buckets)
	if err != nil {
		return &decodeError{err: err}
	}

	meta := &BucketMeta{
		Name:         task.name,
		Container:    BucketKindPKAC,
		Names:        make([]string, len(pkac.Files)),
		SpareNames:   pkac.SpareNames,
		NameTable:    pkac.NameTable,
		EmptyBuckets: buckets.EmptyBuckets(),
	}
	if len(pkac.Files) > 0 {
		meta.Buckets[pkacPayloadBucket] = make([]*Node, len(pkac.Files))
	}

	members := make([]childMember, len(pkac.Files))
	names := newNameSet(len(pkac.Files))
	for i, f := range pkac.Files {
		meta.Names[i] = f.Name
		kind := Classify(f.Content, true)
		name, err := names.Claim(f.Name + "." + kind.Extension())
		if err != nil {
			return &decodeError{err: err}
		}

		members[i] = childMember{data: f.Content, name: name, kind: kind}
	}

	return e.writeContainer(task, meta, members)
}

// writeContainer resolves the container slot, creates its directory, and
// dispatches every child in slot order.
func (e *extractor) writeContainer(task *unpackTask, meta FileMeta, members []childMember) error {
	children, err := task.slot.Write(meta)
	if err != nil {
		return err
	}
	if children.Len() != len(members) {
		return fmt.Errorf("%w: %d child slots for %d members", ErrEncodingInconsistency, children.Len(), len(members))
	}

	dir := task.path()
	if err := e.dst.CreateDir(dir); err != nil {
		return err
	}

	for i, m := range members {
		slot, err := children.Take(i)
		if err != nil {
			return err
		}

		child := &unpackTask{
			slot:   slot,
			data:   m.data,
			parent: dir,
			name:   m.name,
			source: task.source,
			kind:   m.kind,
		}
		if err := e.dispatch(child, false); err != nil {
			return fmt.Errorf("%s: %w", child.path(), err)
		}
	}

	return nil
}

// ExtractDir unpacks the tree at inRoot into outRoot and writes the metadata
// document to metaPath. The document is not written when extraction fails.
func ExtractDir(ctx context.Context, inRoot, outRoot, metaPath string, opts ExtractOptions) (*ExtractResult, error) {
	fsys := DirFS{In: inRoot, Out: outRoot}
	res, err := Extract(ctx, fsys, fsys, opts)
	if err != nil {
		return res, err
	}

	if err := WriteMetadataFile(metaPath, res.Root); err != nil {
		return res, err
	}

	return res, nil
}
