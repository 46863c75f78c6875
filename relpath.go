// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"path/filepath"
	"strings"
)

// RelPath is an ordered sequence of path segments relative to a tree root.
// Source and unpacked trees use identical relative addressing.
type RelPath struct {
	segments []string
}

// NewRelPath builds a path from segments; empty segments are skipped.
func NewRelPath(segments ...string) RelPath {
	var p RelPath
	for _, s := range segments {
		p.Push(s)
	}

	return p
}

// ParseRelPath splits a slash-separated relative path.
func ParseRelPath(raw string) RelPath {
	return NewRelPath(strings.Split(NormalizePath(raw), "/")...)
}

// Push appends one segment. Empty segments are ignored.
func (p *RelPath) Push(segment string) {
	if segment == "" {
		return
	}

	p.segments = append(p.segments, segment)
}

// Pop removes and returns the last segment.
func (p *RelPath) Pop() (string, bool) {
	if len(p.segments) == 0 {
		return "", false
	}

	last := p.segments[len(p.segments)-1]
	p.segments = p.segments[:len(p.segments)-1]
	return last, true
}

// Join returns a copy of p with segment appended. p is not modified.
func (p RelPath) Join(segment string) RelPath {
	out := p.Clone()
	out.Push(segment)
	return out
}

// Clone returns an independent copy.
func (p RelPath) Clone() RelPath {
	if len(p.segments) == 0 {
		return RelPath{}
	}

	return RelPath{segments: append([]string(nil), p.segments...)}
}

// Parent returns a copy without the last segment.
func (p RelPath) Parent() RelPath {
	out := p.Clone()
	out.Pop()
	return out
}

// Base returns the last segment or "" for the root.
func (p RelPath) Base() string {
	if len(p.segments) == 0 {
		return ""
	}

	return p.segments[len(p.segments)-1]
}

// IsRoot reports whether p addresses the tree root.
func (p RelPath) IsRoot() bool {
	return len(p.segments) == 0
}

// Segments returns a copy of path segments.
func (p RelPath) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Resolve joins p onto a filesystem root.
func (p RelPath) Resolve(root string) string {
	parts := make([]string, 0, len(p.segments)+1)
	parts = append(parts, root)
	parts = append(parts, p.segments...)
	return filepath.Join(parts...)
}

// String returns the slash-separated form.
func (p RelPath) String() string {
	return strings.Join(p.segments, "/")
}
