// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// FileMeta is one resolved metadata node value. Implementations are
// *DirectoryMeta, *SegmentedMeta, *BucketMeta, *CompressedMeta, *OpaqueMeta and *EmptyMeta.
type FileMeta interface {
	// Kind returns the variant name used in logs and metadata documents.
	Kind() string
	// childSlots returns pointers to every child node field in order.
	childSlots() []**Node
}

// DirectoryMeta mirrors one source directory.
type DirectoryMeta struct {
	// Name is the directory name; empty for the tree root.
	Name string
	// Entries are kept in discovery order.
	Entries []DirEntry
}

// DirEntry is one named directory member.
type DirEntry struct {
	Name string
	Node *Node
}

// SegmentedMeta records facts needed to rebuild a P2 archive.
type SegmentedMeta struct {
	// Name is the unpacked directory name.
	Name string
	// Named reports whether the archive carries a name table.
	Named bool
	// Subfiles are kept in archive order.
	Subfiles []SubfileMeta
}

// SubfileMeta is one P2 subfile slot.
type SubfileMeta struct {
	// Name is the raw name table entry (empty for unnamed archives).
	Name string
	// Variant is the LZ variant used when Compressed is set. It stays empty
	// for a compressed subfile with no content, which is stored without a stream.
	Variant LZVariant
	// Node describes decompressed content.
	Node *Node
	// Compressed reports whether the subfile is stored LZ-compressed.
	Compressed bool
}

// BucketMeta records facts needed to rebuild a HPAK, PK2D, or PKAC archive.
type BucketMeta struct {
	// Name is the unpacked directory name.
	Name string
	// Container selects bucket semantics and magic.
	Container BucketKind
	// Buckets hold child nodes per bucket. PKAC keeps payloads in bucket 1
	// and rebuilds bucket 0 from Names and SpareNames.
	Buckets [bucketCount][]*Node
	// Names are PKAC name table entries paired with bucket 1 payloads.
	Names []string
	// SpareNames are PKAC name table entries beyond the payload count.
	SpareNames []string
	// NameTable is the stored PKAC name table when its layout is not the
	// sequential one. It is reused while it decodes to Names and SpareNames.
	NameTable []byte
	// EmptyBuckets are buckets stored with a zero-count info block rather
	// than the absent sentinel.
	EmptyBuckets []int
}

// CompressedMeta wraps an LZ stream. The child lives at the wrapper's path.
type CompressedMeta struct {
	Node    *Node
	Variant LZVariant
}

// OpaqueMeta is a file stored verbatim in the unpacked tree.
type OpaqueMeta struct {
	Name string
}

// EmptyMeta is zero-length content. Nothing is written for it.
type EmptyMeta struct{}

// Kind implements FileMeta.
func (*DirectoryMeta) Kind() string { return "directory" }

// Kind implements FileMeta.
func (*SegmentedMeta) Kind() string { return "p2" }

// Kind implements FileMeta.
func (*BucketMeta) Kind() string { return "bucket" }

// Kind implements FileMeta.
func (*CompressedMeta) Kind() string { return "lz" }

// Kind implements FileMeta.
func (*OpaqueMeta) Kind() string { return "file" }

// Kind implements FileMeta.
func (*EmptyMeta) Kind() string { return "empty" }

func (m *DirectoryMeta) childSlots() []**Node {
	slots := make([]**Node, len(m.Entries))
	for i := range m.Entries {
		slots[i] = &m.Entries[i].Node
	}

	return slots
}

func (m *SegmentedMeta) childSlots() []**Node {
	slots := make([]**Node, len(m.Subfiles))
	for i := range m.Subfiles {
		slots[i] = &m.Subfiles[i].Node
	}

	return slots
}

func (m *BucketMeta) childSlots() []**Node {
	var slots []**Node
	for i := range m.Buckets {
		for j := range m.Buckets[i] {
			slots = append(slots, &m.Buckets[i][j])
		}
	}

	return slots
}

func (m *CompressedMeta) childSlots() []**Node {
	return []**Node{&m.Node}
}

func (*OpaqueMeta) childSlots() []**Node { return nil }

func (*EmptyMeta) childSlots() []**Node { return nil }

// Node is one metadata tree slot. It starts unresolved and accepts exactly one value.
type Node struct {
	value atomic.Pointer[nodeValue]
}

type nodeValue struct {
	meta FileMeta
}

// NewNode returns a node holding meta, or an unresolved node when meta is nil.
// Child slots of meta are used as given.
func NewNode(meta FileMeta) *Node {
	n := &Node{}
	if meta != nil {
		n.value.Store(&nodeValue{meta: meta})
	}

	return n
}

// Meta returns the node value, or nil while unresolved.
func (n *Node) Meta() FileMeta {
	if n == nil {
		return nil
	}

	v := n.value.Load()
	if v == nil {
		return nil
	}

	return v.meta
}

// Resolved reports whether a value was written.
func (n *Node) Resolved() bool {
	return n.Meta() != nil
}

// set stores meta once.
func (n *Node) set(meta FileMeta) error {
	if !n.value.CompareAndSwap(nil, &nodeValue{meta: meta}) {
		return ErrSlotAlreadyWritten
	}

	return nil
}

// Unresolved lists paths of every unresolved node below n. Directory entries
// contribute their names; container slots contribute their index.
func (n *Node) Unresolved() []RelPath {
	var out []RelPath
	collectUnresolved(n, RelPath{}, &out)
	return out
}

// Validate fails with ErrIncompleteTree when any node is unresolved.
func (n *Node) Validate() error {
	missing := n.Unresolved()
	if len(missing) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %d unresolved node(s), first at %q", ErrIncompleteTree, len(missing), missing[0].String())
}

func collectUnresolved(n *Node, at RelPath, out *[]RelPath) {
	switch m := n.Meta().(type) {
	case nil:
		*out = append(*out, at)
	case *DirectoryMeta:
		for _, e := range m.Entries {
			collectUnresolved(e.Node, at.Join(e.Name), out)
		}
	case *SegmentedMeta:
		for i, sf := range m.Subfiles {
			collectUnresolved(sf.Node, at.Join(strconv.Itoa(i)), out)
		}
	case *BucketMeta:
		for i, bucket := range m.Buckets {
			for j, child := range bucket {
				collectUnresolved(child, at.Join(fmt.Sprintf("%d.%d", i, j)), out)
			}
		}
	case *CompressedMeta:
		collectUnresolved(m.Node, at, out)
	}
}

// noCopy trips go vet copylocks when a Capability is copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Capability grants single-use write access to one node slot.
// It must be passed by pointer.
type Capability struct {
	_    noCopy
	node *Node
	used atomic.Bool
}

// NewTree creates an unresolved root slot and its capability.
func NewTree() (*Node, *Capability) {
	root := &Node{}
	return root, &Capability{node: root}
}

// Write resolves the bound node with meta. Every child slot of meta is replaced
// with a fresh unresolved node; the returned collection holds one capability per
// child slot in order.
func (c *Capability) Write(meta FileMeta) (*Children, error) {
	if c == nil || c.node == nil {
		return nil, fmt.Errorf("%w: nil capability", ErrCapabilityUsed)
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: nil metadata value", ErrEncodingInconsistency)
	}
	if !c.used.CompareAndSwap(false, true) {
		return nil, ErrCapabilityUsed
	}

	slots := meta.childSlots()
	caps := make([]*Capability, len(slots))
	for i, slot := range slots {
		child := &Node{}
		*slot = child
		caps[i] = &Capability{node: child}
	}

	if err := c.node.set(meta); err != nil {
		return nil, err
	}

	return &Children{caps: caps}, nil
}

// Children is an ordered collection of child capabilities. Owned by one goroutine.
type Children struct {
	caps []*Capability
}

// Len returns the number of child slots.
func (c *Children) Len() int {
	if c == nil {
		return 0
	}

	return len(c.caps)
}

// Take hands out capability i. Each index can be taken once.
func (c *Children) Take(i int) (*Capability, error) {
	if i < 0 || i >= c.Len() {
		return nil, fmt.Errorf("%w: child %d of %d", ErrEncodingInconsistency, i, c.Len())
	}

	cp := c.caps[i]
	if cp == nil {
		return nil, fmt.Errorf("%w: child %d", ErrCapabilityUsed, i)
	}

	c.caps[i] = nil
	return cp, nil
}
