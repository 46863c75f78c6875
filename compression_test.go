// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/woozymasta/pathrules"
)

// excludeRules builds exclude rules from raw patterns for concise test setup.
func excludeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionExclude,
			Pattern: pattern,
		})
	}

	return rules
}

func TestUnpackMatcherMatch(t *testing.T) {
	t.Parallel()

	matcher, err := newUnpackMatcher(excludeRules(
		"*.sdat",
		"sound/",
		"   ",
	), pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionInclude,
	})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	cases := []struct {
		name string
		path string
		want bool
	}{
		{name: "extension rule", path: `data\SOUND.SDAT`, want: false},
		{name: "dir-only rule", path: "data/sound/a.p2", want: false},
		{name: "default include", path: "data/fld/a.p2", want: true},
		{name: "root", path: "", want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := matcher.Match(tc.path)
			if got != tc.want {
				t.Fatalf("Match(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestUnpackMatcherEmptyRules(t *testing.T) {
	t.Parallel()

	matcher, err := newUnpackMatcher(excludeRules(" ", ""), pathrules.MatcherOptions{})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	if matcher != nil {
		t.Fatalf("empty rule set must compile to nil matcher")
	}
	if !matcher.Match("any/path.p2") {
		t.Fatalf("nil matcher must unpack everything")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	src := bytes.Repeat([]byte("PKAC name table payload "), 64)
	for _, variant := range []LZVariant{LZ10, LZ11, ""} {
		packed, err := Codec{}.Compress(variant, src)
		if err != nil {
			t.Fatalf("Compress(%q): %v", variant, err)
		}

		if Classify(packed, true) != FileTypeLZ {
			t.Fatalf("Compress(%q) output does not classify as lz", variant)
		}

		got, err := lzVariantOf(packed)
		if err != nil {
			t.Fatalf("lzVariantOf: %v", err)
		}
		if got != variant.orDefault() {
			t.Fatalf("variant=%q, want %q", got, variant.orDefault())
		}

		plain, err := Codec{}.Decompress(packed)
		if err != nil {
			t.Fatalf("Decompress(%q): %v", variant, err)
		}
		if !bytes.Equal(plain, src) {
			t.Fatalf("round trip mismatch for %q", variant)
		}
	}
}

func TestCodecErrors(t *testing.T) {
	t.Parallel()

	if _, err := (Codec{}).Compress("lz77", []byte("x")); !errors.Is(err, ErrCompressionFailure) {
		t.Fatalf("unknown variant err=%v, want ErrCompressionFailure", err)
	}

	if _, err := (Codec{}).Decompress([]byte{0x11, 0x10, 0x00, 0x00, 0x00}); !errors.Is(err, ErrCompressionFailure) {
		t.Fatalf("truncated stream err=%v, want ErrCompressionFailure", err)
	}
}
