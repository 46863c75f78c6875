// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFilterMembersBySize(t *testing.T) {
	t.Parallel()

	members := []MemberInfo{
		{Name: "a", Size: 4},
		{Name: "b", Size: 12},
		{Name: "c", Size: 13},
	}

	filtered := filterMembersBySize(members, 12)
	if len(filtered) != 2 {
		t.Fatalf("len(filtered)=%d, want 2", len(filtered))
	}
	if filtered[0].Name != "b" || filtered[1].Name != "c" {
		t.Fatalf("filtered=%+v", filtered)
	}

	if got := filterMembersBySize(members, 0); len(got) != 3 {
		t.Fatalf("zero threshold dropped members: %+v", got)
	}
}

func TestFilterMembersByPrefixAndASCII(t *testing.T) {
	t.Parallel()

	members := []MemberInfo{
		{Name: "Model", Size: 1},
		{Name: "mod\xe9le", Size: 1},
		{Name: "pal", Size: 0},
	}

	byPrefix := filterMembersByPrefix(members, " MOD ")
	if len(byPrefix) != 2 {
		t.Fatalf("prefix filtered=%+v", byPrefix)
	}

	ascii := filterMembersByASCIIOnly(members)
	if len(ascii) != 2 || ascii[1].Name != "pal" {
		t.Fatalf("ascii filtered=%+v", ascii)
	}

	nonEmpty := filterEmptyMembers(members)
	if len(nonEmpty) != 2 || nonEmpty[1].Name != "mod\xe9le" {
		t.Fatalf("non-empty filtered=%+v", nonEmpty)
	}
}

func TestListMembersFromBytes(t *testing.T) {
	t.Parallel()

	files := fixtureFiles(t)

	p2, err := ListMembersFromBytes(files["root.p2"], ListOptions{})
	if err != nil {
		t.Fatalf("list p2: %v", err)
	}
	if p2.Type != FileTypeP2 || !p2.Named || len(p2.Members) != 4 {
		t.Fatalf("p2 listing=%+v", p2)
	}
	if m := p2.Members[0]; m.Name != "pk" || m.Type != FileTypeLZ || !m.Compressed {
		t.Fatalf("member 0=%+v", m)
	}

	filtered, err := ListMembersFromBytes(files["root.p2"], ListOptions{SkipEmpty: true, Prefix: "RA"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered.Members) != 2 || filtered.Members[1].Index != 2 {
		t.Fatalf("filtered listing=%+v", filtered.Members)
	}

	lz, err := ListMembersFromBytes(files["dir/data.lz"], ListOptions{})
	if err != nil {
		t.Fatalf("list lz: %v", err)
	}
	if lz.Variant != LZ10 || len(lz.Members) != 1 || lz.Members[0].Type != FileTypeHPAK || lz.Unpacked != lz.Members[0].Size {
		t.Fatalf("lz listing=%+v", lz)
	}

	plain, err := ListMembersFromBytes(files["dir/notes.txt"], ListOptions{})
	if err != nil || plain.Type != FileTypeOpaque || len(plain.Members) != 0 {
		t.Fatalf("opaque listing=%+v err=%v", plain, err)
	}

	var hpak BucketArchive
	hpak[7] = [][]byte{[]byte("BMD0"), []byte("BMD0 longer")}
	buf, err := EncodeBucketArchive(MagicHPAK, hpak)
	if err != nil {
		t.Fatalf("encode hpak: %v", err)
	}
	buckets, err := ListMembersFromBytes(buf, ListOptions{MinSize: 5})
	if err != nil {
		t.Fatalf("list hpak: %v", err)
	}
	if len(buckets.Members) != 1 || buckets.Members[0].Name != "1.nsbmd" || buckets.Members[0].Bucket != 7 {
		t.Fatalf("hpak listing=%+v", buckets.Members)
	}
}

func TestListMembers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.p2")
	if err := os.WriteFile(path, []byte{'P', '2', 0x05, 0x00}, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := ListMembers(path, ListOptions{}); !errors.Is(err, ErrMalformedContainer) {
		t.Fatalf("err=%v, want ErrMalformedContainer", err)
	}
	if _, err := ListMembers(filepath.Join(dir, "missing"), ListOptions{}); !errors.Is(err, ErrIOFailure) {
		t.Fatalf("err=%v, want ErrIOFailure", err)
	}
}
