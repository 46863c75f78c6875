// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/woozymasta/pathrules"
)

// Default pipeline tuning values.
const (
	DefaultMaxWorkers   = 4
	DefaultPollInterval = 50 * time.Millisecond
)

// ExtractEntry describes one file written to the unpacked tree.
type ExtractEntry struct {
	// Path is the unpacked-tree relative path.
	Path string `json:"path" yaml:"path"`
	// Source is the source-tree relative path of the top-level file it came from.
	Source string `json:"source" yaml:"source"`
	// Type is the classified kind of the written content.
	Type FileType `json:"type" yaml:"type"`
	// Size is written size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// Logger receives pipeline diagnostics; nil disables logging.
	Logger *zerolog.Logger `json:"-" yaml:"-"`
	// Decompressor decodes LZ streams; nil uses Codec.
	Decompressor Decompressor `json:"-" yaml:"-"`
	// OnEntryDone is called after one file is written. It may be called concurrently.
	OnEntryDone func(entry ExtractEntry) `json:"-" yaml:"-"`
	// Unpack defines ordered path rules selecting which containers are unpacked.
	// Empty rule set unpacks everything. Paths are unpacked-tree relative.
	Unpack []pathrules.Rule `json:"unpack,omitempty" yaml:"unpack,omitempty"`
	// UnpackMatcherOptions control unpack path rule matching.
	UnpackMatcherOptions pathrules.MatcherOptions `json:"unpack_matcher_options,omitzero" yaml:"unpack_matcher_options,omitzero"`
	// MaxWorkers is number of container workers. Default is 4.
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// PollInterval bounds how long an idle worker waits before re-checking the queue.
	// Default is 50ms.
	PollInterval time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	// FallbackOpaque stores containers that fail to decode as opaque files instead of failing.
	FallbackOpaque bool `json:"fallback_opaque,omitempty" yaml:"fallback_opaque,omitempty"`
}

// ExtractResult contains extraction output.
type ExtractResult struct {
	// Root is the metadata tree. It is complete only when Failures is empty.
	Root *Node `json:"-" yaml:"-"`
	// Failures lists failed tasks sorted by path.
	Failures []*TaskError `json:"failures,omitempty" yaml:"failures,omitempty"`
	// Files is number of files written to the unpacked tree.
	Files int64 `json:"files" yaml:"files"`
	// Containers is number of unpacked containers.
	Containers int64 `json:"containers" yaml:"containers"`
	// Fallbacks is number of containers stored opaque after a decode failure.
	Fallbacks int64 `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
	// Bytes is total bytes written.
	Bytes int64 `json:"bytes" yaml:"bytes"`
	// Duration is end-to-end extraction duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// PackFileProgress describes one repacked top-level file.
type PackFileProgress struct {
	// Path is output-tree relative path.
	Path string `json:"path" yaml:"path"`
	// Kind is the metadata variant of the file.
	Kind string `json:"kind" yaml:"kind"`
	// Size is written size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// PackOptions configures Pack behavior.
type PackOptions struct {
	// Logger receives diagnostics; nil disables logging.
	Logger *zerolog.Logger `json:"-" yaml:"-"`
	// Compressor encodes LZ streams; nil uses Codec.
	Compressor Compressor `json:"-" yaml:"-"`
	// OnFileDone is called after one file is written. It may be called concurrently.
	OnFileDone func(file PackFileProgress) `json:"-" yaml:"-"`
	// MaxWorkers bounds concurrently encoded files. Default is 4.
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
}

// PackResult contains pack output statistics.
type PackResult struct {
	// Files is number of files written.
	Files int64 `json:"files" yaml:"files"`
	// Directories is number of directories created.
	Directories int64 `json:"directories" yaml:"directories"`
	// Bytes is total bytes written.
	Bytes int64 `json:"bytes" yaml:"bytes"`
	// Duration is end-to-end pack duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	if opts.Decompressor == nil {
		opts.Decompressor = Codec{}
	}

	if opts.UnpackMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.UnpackMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionInclude,
		}
	}

	if opts.UnpackMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.UnpackMatcherOptions.DefaultAction = pathrules.ActionInclude
	}

	opts.Logger = loggerOrNop(opts.Logger)
}

// applyDefaults fills zero-valued pack options with defaults.
func (opts *PackOptions) applyDefaults() {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}

	if opts.Compressor == nil {
		opts.Compressor = Codec{}
	}

	opts.Logger = loggerOrNop(opts.Logger)
}
