// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"fmt"

	"github.com/woozymasta/ndspack/internal/lz"
	"github.com/woozymasta/pathrules"
)

// LZVariant names the LZ stream variant recorded for compressed content.
type LZVariant string

// Supported LZ stream variants.
const (
	// LZ10 is the plain LZ77 variant (marker 0x10).
	LZ10 LZVariant = "lz10"
	// LZ11 is the extended-length variant (marker 0x11).
	LZ11 LZVariant = "lz11"
)

// DefaultLZVariant is written when metadata does not record a variant.
const DefaultLZVariant = LZ11

// Valid reports whether v is a known variant.
func (v LZVariant) Valid() bool {
	return v == LZ10 || v == LZ11
}

// orDefault returns v, or DefaultLZVariant when v is empty.
func (v LZVariant) orDefault() LZVariant {
	if v == "" {
		return DefaultLZVariant
	}

	return v
}

// marker returns the stream marker byte.
func (v LZVariant) marker() (lz.Variant, error) {
	switch v.orDefault() {
	case LZ10:
		return lz.LZ10, nil
	case LZ11:
		return lz.LZ11, nil
	default:
		return 0, fmt.Errorf("%w: unknown lz variant %q", ErrCompressionFailure, v)
	}
}

// lzVariantOf returns the variant of a classified LZ stream.
func lzVariantOf(buf []byte) (LZVariant, error) {
	v, err := lz.Detect(buf)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompressionFailure, err)
	}

	if v == lz.LZ10 {
		return LZ10, nil
	}

	return LZ11, nil
}

// Compressor encodes content into an LZ stream. The returned slice is freshly
// allocated and owned by the caller.
type Compressor interface {
	Compress(variant LZVariant, src []byte) ([]byte, error)
}

// Decompressor decodes an LZ stream, selecting the variant from its marker byte.
// The returned slice is freshly allocated and owned by the caller.
type Decompressor interface {
	Decompress(src []byte) ([]byte, error)
}

// Codec is the default compression collaborator backed by internal/lz.
type Codec struct{}

// Compress implements Compressor.
func (Codec) Compress(variant LZVariant, src []byte) ([]byte, error) {
	marker, err := variant.marker()
	if err != nil {
		return nil, err
	}

	out, err := lz.Compress(marker, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompressionFailure, err)
	}

	return out, nil
}

// Decompress implements Decompressor.
func (Codec) Decompress(src []byte) ([]byte, error) {
	out, err := lz.Decompress(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompressionFailure, err)
	}

	return out, nil
}

// unpackMatcher holds compiled rules selecting which source paths are recursively unpacked.
type unpackMatcher struct {
	matcher *pathrules.Matcher
}

// newUnpackMatcher compiles unpack path rules. Empty rule set yields nil: unpack everything.
func newUnpackMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*unpackMatcher, error) {
	rules = normalizeUnpackRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidUnpackRules, err)
	}

	return &unpackMatcher{matcher: matcher}, nil
}

// normalizeUnpackRules normalizes rule patterns and drops empty patterns.
func normalizeUnpackRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether a source-relative path may be unpacked.
func (m *unpackMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return true
	}

	return m.matcher.Included(candidate, false)
}
