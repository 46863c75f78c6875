// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"strings"
	"testing"
)

func TestSanitizePathSegment(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("a", 400)
	gotLong := sanitizePathSegment(longName)
	if len(gotLong) > maxSanitizedSegmentLen {
		t.Fatalf("len(long)=%d, want <= %d", len(gotLong), maxSanitizedSegmentLen)
	}
	if gotLong == longName {
		t.Fatal("long segment was not shortened")
	}

	testCases := []struct {
		in   string
		want string
	}{
		{in: "CON.nclr", want: "_CON.nclr"},
		{in: "  COM8.bin  ", want: "_COM8.bin"},
		{in: "a:b?.pkac", want: "a_b_.pkac"},
		{in: "name. ", want: "name"},
		{in: "AUX:", want: "_AUX_"},
		{in: "CLOCK$.bin", want: "_CLOCK$.bin"},
		{in: "..", want: "_"},
		{in: "", want: "_"},
		{in: "a/b", want: "a_b"},
		{in: "a\x1b[31m.bin", want: "a_[31m.bin"},
		{in: "a\x7fb.bin", want: "a_b.bin"},
		{in: "a\u200fb.bin", want: "a_b.bin"},
	}

	for _, tc := range testCases {
		got := sanitizePathSegment(tc.in)
		if got != tc.want {
			t.Fatalf("sanitizePathSegment(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsReservedDeviceName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want bool
	}{
		{name: "con", want: true},
		{name: "con.bin", want: true},
		{name: "AUX:", want: true},
		{name: "CLOCK$", want: true},
		{name: "normal.bin", want: false},
		{name: "_con.bin", want: false},
	}

	for _, tc := range testCases {
		got := isReservedDeviceName(tc.name)
		if got != tc.want {
			t.Fatalf("isReservedDeviceName(%q)=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNameSetClaim(t *testing.T) {
	t.Parallel()

	names := newNameSet(4)
	want := []struct {
		in   string
		want string
	}{
		{in: "a:b.bin", want: "a_b.bin"},
		{in: "a?b.bin", want: "a_b~2.bin"},
		{in: "A_B.bin", want: "A_B~3.bin"},
		{in: "other", want: "other"},
	}

	for _, tc := range want {
		got, err := names.Claim(tc.in)
		if err != nil {
			t.Fatalf("Claim(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Claim(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}
