// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"fmt"
	"hash/fnv"
	"path"
	"strconv"
	"strings"
	"unicode"
)

const (
	// maxSanitizedSegmentLen limits one path segment to common filesystem-safe length.
	maxSanitizedSegmentLen = 240
	// maxUniqueSuffix bounds the "~N" collision search.
	maxUniqueSuffix = 1000000
)

// reservedDOSNames contains case-insensitive reserved Windows device names.
var reservedDOSNames = map[string]struct{}{
	"aux": {}, "clock$": {}, "con": {}, "nul": {}, "prn": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// nameSet hands out filesystem-safe, case-insensitively unique names inside one output directory.
// Not safe for concurrent use; every container handler owns its own set.
type nameSet struct {
	used       map[string]struct{}
	nextSuffix map[string]int
}

// newNameSet returns an empty set sized for n names.
func newNameSet(n int) *nameSet {
	return &nameSet{
		used:       make(map[string]struct{}, n),
		nextSuffix: make(map[string]int, n),
	}
}

// Claim sanitizes raw and resolves collisions with earlier claims.
func (s *nameSet) Claim(raw string) (string, error) {
	name := sanitizePathSegment(raw)
	unique, err := s.unique(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, raw)
	}

	return unique, nil
}

// unique resolves collisions by adding deterministic numeric suffix.
func (s *nameSet) unique(name string) (string, error) {
	key := strings.ToLower(name)
	if _, exists := s.used[key]; !exists {
		s.used[key] = struct{}{}
		return name, nil
	}

	startIdx := max(s.nextSuffix[key], 2)
	for idx := startIdx; idx < maxUniqueSuffix; idx++ {
		candidate := withNumericSuffix(name, idx)
		candidateKey := strings.ToLower(candidate)
		if _, exists := s.used[candidateKey]; exists {
			continue
		}

		s.used[candidateKey] = struct{}{}
		s.nextSuffix[key] = idx + 1
		return candidate, nil
	}

	return "", ErrInvalidName
}

// sanitizePathSegment rewrites one name for broad filesystem compatibility.
func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" || segment == "." || segment == ".." {
		return "_"
	}

	rawReserved := isReservedDeviceName(segment)

	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		if isUnsafeRune(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			b.WriteRune('_')
			continue
		}

		b.WriteRune(r)
	}

	sanitized := strings.TrimRight(b.String(), ". ")
	if sanitized == "" {
		sanitized = "_"
	}

	if rawReserved || isReservedDeviceName(sanitized) {
		sanitized = "_" + sanitized
	}

	if len(sanitized) > maxSanitizedSegmentLen {
		sanitized = shortenSegmentDeterministic(sanitized, maxSanitizedSegmentLen)
	}

	return sanitized
}

// isUnsafeRune reports whether rune is unsafe in file names.
func isUnsafeRune(r rune) bool {
	if unicode.IsControl(r) || unicode.In(r, unicode.Cf) {
		return true
	}

	// U+FFFD appears when name table bytes are not valid UTF-8.
	return r == '\uFFFD'
}

// isReservedDeviceName reports whether name matches reserved Windows device identifier.
func isReservedDeviceName(name string) bool {
	candidate := strings.ToLower(strings.TrimRight(strings.TrimSpace(name), ". :"))
	if dot := strings.IndexByte(candidate, '.'); dot >= 0 {
		candidate = candidate[:dot]
	}
	if candidate == "" {
		return false
	}

	_, ok := reservedDOSNames[candidate]
	return ok
}

// withNumericSuffix appends "~N" before extension and preserves max segment length.
func withNumericSuffix(name string, n int) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	suffix := "~" + strconv.Itoa(n)
	allowedBaseLen := max(maxSanitizedSegmentLen-len(ext)-len(suffix), 1)
	if len(base) > allowedBaseLen {
		base = shortenSegmentDeterministic(base, allowedBaseLen)
	}

	return base + suffix + ext
}

// shortenSegmentDeterministic shortens long segment while preserving deterministic identity suffix.
func shortenSegmentDeterministic(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	if maxLen <= 10 {
		return value[:maxLen]
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	hashPart := fmt.Sprintf("~%08x", h.Sum32())
	prefixLen := max(maxLen-len(hashPart), 1)

	return value[:prefixLen] + hashPart
}
