// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MetadataVersion is the document version written by this package.
const MetadataVersion = 1

// MetadataFormat selects the document encoding.
type MetadataFormat string

// Supported metadata encodings.
const (
	MetadataYAML MetadataFormat = "yaml"
	MetadataJSON MetadataFormat = "json"
)

// MetadataFormatForPath returns JSON for ".json" paths and YAML otherwise.
func MetadataFormatForPath(path string) MetadataFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return MetadataJSON
	}

	return MetadataYAML
}

// metaDocument is the persisted metadata tree.
type metaDocument struct {
	Root    *docNode `json:"root" yaml:"root"`
	Version int      `json:"version" yaml:"version"`
}

// docNode holds exactly one variant key.
type docNode struct {
	Directory  *docDirectory  `json:"directory,omitempty" yaml:"directory,omitempty"`
	P2         *docSegmented  `json:"p2,omitempty" yaml:"p2,omitempty"`
	Bucket     *docBucket     `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	LZ         *docCompressed `json:"lz,omitempty" yaml:"lz,omitempty"`
	File       *docFile       `json:"file,omitempty" yaml:"file,omitempty"`
	Empty      *docMarker     `json:"empty,omitempty" yaml:"empty,omitempty"`
	Unresolved *docMarker     `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

type docMarker struct{}

type docDirectory struct {
	Name    string     `json:"name,omitempty" yaml:"name,omitempty"`
	Entries []docEntry `json:"entries" yaml:"entries"`
}

type docEntry struct {
	Node *docNode `json:"node" yaml:"node"`
	Name string   `json:"name" yaml:"name"`
}

type docSegmented struct {
	Name     string       `json:"name" yaml:"name"`
	Subfiles []docSubfile `json:"subfiles" yaml:"subfiles"`
	Named    bool         `json:"named,omitempty" yaml:"named,omitempty"`
}

type docSubfile struct {
	Node       *docNode  `json:"node" yaml:"node"`
	Name       string    `json:"name,omitempty" yaml:"name,omitempty"`
	Variant    LZVariant `json:"variant,omitempty" yaml:"variant,omitempty"`
	Compressed bool      `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

type docBucket struct {
	Name         string       `json:"name" yaml:"name"`
	Container    BucketKind   `json:"container" yaml:"container"`
	Buckets      [][]*docNode `json:"buckets" yaml:"buckets"`
	Names        []string     `json:"names,omitempty" yaml:"names,omitempty"`
	SpareNames   []string     `json:"spare_names,omitempty" yaml:"spare_names,omitempty"`
	NameTable    string       `json:"name_table,omitempty" yaml:"name_table,omitempty"`
	EmptyBuckets []int        `json:"empty_buckets,omitempty" yaml:"empty_buckets,omitempty,flow"`
}

type docCompressed struct {
	Node    *docNode  `json:"node" yaml:"node"`
	Variant LZVariant `json:"variant" yaml:"variant"`
}

type docFile struct {
	Name string `json:"name" yaml:"name"`
}

// MarshalMetadata encodes a complete tree. Incomplete trees fail with ErrIncompleteTree.
func MarshalMetadata(root *Node, format MetadataFormat) ([]byte, error) {
	if err := root.Validate(); err != nil {
		return nil, err
	}

	doc := metaDocument{Version: MetadataVersion, Root: toDocNode(root)}
	switch format {
	case MetadataJSON:
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode metadata json: %w", err)
		}

		return append(out, '\n'), nil
	case MetadataYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode metadata yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode metadata yaml: %w", err)
		}

		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: format %q", ErrUnsupportedMetadata, format)
	}
}

// UnmarshalMetadata decodes a document into a tree. Unresolved nodes are kept
// unresolved so packing reports them.
func UnmarshalMetadata(data []byte, format MetadataFormat) (*Node, error) {
	var doc metaDocument
	switch format {
	case MetadataJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedMetadata, err)
		}
	case MetadataYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedMetadata, err)
		}
	default:
		return nil, fmt.Errorf("%w: format %q", ErrUnsupportedMetadata, format)
	}

	if doc.Version != MetadataVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedMetadata, doc.Version)
	}

	return fromDocNode(doc.Root, "root")
}

// WriteMetadataFile encodes root in the format chosen by path extension.
func WriteMetadataFile(path string, root *Node) error {
	data, err := MarshalMetadata(root, MetadataFormatForPath(path))
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%w: create metadata directory: %w", ErrIOFailure, err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: write metadata: %w", ErrIOFailure, err)
	}

	return nil
}

// ReadMetadataFile decodes the document at path.
func ReadMetadataFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read metadata: %w", ErrIOFailure, err)
	}

	return UnmarshalMetadata(data, MetadataFormatForPath(path))
}

// toDocNode converts a tree node into its document form.
func toDocNode(n *Node) *docNode {
	switch m := n.Meta().(type) {
	case *DirectoryMeta:
		d := &docDirectory{Name: m.Name, Entries: make([]docEntry, len(m.Entries))}
		for i, e := range m.Entries {
			d.Entries[i] = docEntry{Name: e.Name, Node: toDocNode(e.Node)}
		}

		return &docNode{Directory: d}
	case *SegmentedMeta:
		d := &docSegmented{Name: m.Name, Named: m.Named, Subfiles: make([]docSubfile, len(m.Subfiles))}
		for i, sf := range m.Subfiles {
			d.Subfiles[i] = docSubfile{
				Name:       sf.Name,
				Compressed: sf.Compressed,
				Node:       toDocNode(sf.Node),
			}
			if sf.Compressed {
				d.Subfiles[i].Variant = sf.Variant
			}
		}

		return &docNode{P2: d}
	case *BucketMeta:
		d := &docBucket{
			Name:       m.Name,
			Container:  m.Container,
			Buckets:    make([][]*docNode, bucketCount),
			Names:        m.Names,
			SpareNames:   m.SpareNames,
			NameTable:    hex.EncodeToString(m.NameTable),
			EmptyBuckets: m.EmptyBuckets,
		}
		for i, nodes := range m.Buckets {
			d.Buckets[i] = make([]*docNode, len(nodes))
			for j, child := range nodes {
				d.Buckets[i][j] = toDocNode(child)
			}
		}

		return &docNode{Bucket: d}
	case *CompressedMeta:
		return &docNode{LZ: &docCompressed{Variant: m.Variant.orDefault(), Node: toDocNode(m.Node)}}
	case *OpaqueMeta:
		return &docNode{File: &docFile{Name: m.Name}}
	case *EmptyMeta:
		return &docNode{Empty: &docMarker{}}
	default:
		return &docNode{Unresolved: &docMarker{}}
	}
}

// fromDocNode converts a document node into a tree node. at names the node in errors.
func fromDocNode(d *docNode, at string) (*Node, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: %s: missing node", ErrUnsupportedMetadata, at)
	}
	if n := d.variantCount(); n != 1 {
		return nil, fmt.Errorf("%w: %s: node has %d variant keys, want 1", ErrUnsupportedMetadata, at, n)
	}

	switch {
	case d.Directory != nil:
		m := &DirectoryMeta{Name: d.Directory.Name, Entries: make([]DirEntry, len(d.Directory.Entries))}
		for i, e := range d.Directory.Entries {
			if err := checkEntryName(e.Name); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedMetadata, at, err)
			}

			child, err := fromDocNode(e.Node, at+"/"+e.Name)
			if err != nil {
				return nil, err
			}

			m.Entries[i] = DirEntry{Name: e.Name, Node: child}
		}

		return NewNode(m), nil
	case d.P2 != nil:
		if err := checkEntryName(d.P2.Name); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedMetadata, at, err)
		}

		m := &SegmentedMeta{Name: d.P2.Name, Named: d.P2.Named, Subfiles: make([]SubfileMeta, len(d.P2.Subfiles))}
		for i, sf := range d.P2.Subfiles {
			if sf.Variant != "" && !sf.Variant.Valid() {
				return nil, fmt.Errorf("%w: %s: subfile %d variant %q", ErrUnsupportedMetadata, at, i, sf.Variant)
			}

			child, err := fromDocNode(sf.Node, fmt.Sprintf("%s/%d", at, i))
			if err != nil {
				return nil, err
			}

			m.Subfiles[i] = SubfileMeta{Name: sf.Name, Compressed: sf.Compressed, Variant: sf.Variant, Node: child}
		}

		return NewNode(m), nil
	case d.Bucket != nil:
		if err := checkEntryName(d.Bucket.Name); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedMetadata, at, err)
		}
		if !d.Bucket.Container.Valid() {
			return nil, fmt.Errorf("%w: %s: bucket container %q", ErrUnsupportedMetadata, at, d.Bucket.Container)
		}
		if len(d.Bucket.Buckets) > bucketCount {
			return nil, fmt.Errorf("%w: %s: %d buckets", ErrUnsupportedMetadata, at, len(d.Bucket.Buckets))
		}

		for _, i := range d.Bucket.EmptyBuckets {
			if i < 0 || i >= bucketCount || (i < len(d.Bucket.Buckets) && len(d.Bucket.Buckets[i]) != 0) {
				return nil, fmt.Errorf("%w: %s: empty bucket %d", ErrUnsupportedMetadata, at, i)
			}
		}

		m := &BucketMeta{
			Name:         d.Bucket.Name,
			Container:    d.Bucket.Container,
			Names:        d.Bucket.Names,
			SpareNames:   d.Bucket.SpareNames,
			EmptyBuckets: d.Bucket.EmptyBuckets,
		}
		if d.Bucket.NameTable != "" {
			table, err := hex.DecodeString(d.Bucket.NameTable)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: name table: %w", ErrUnsupportedMetadata, at, err)
			}

			m.NameTable = table
		}
		for i, nodes := range d.Bucket.Buckets {
			if len(nodes) == 0 {
				continue
			}

			m.Buckets[i] = make([]*Node, len(nodes))
			for j, cd := range nodes {
				child, err := fromDocNode(cd, fmt.Sprintf("%s/%d.%d", at, i, j))
				if err != nil {
					return nil, err
				}

				m.Buckets[i][j] = child
			}
		}

		return NewNode(m), nil
	case d.LZ != nil:
		if d.LZ.Variant != "" && !d.LZ.Variant.Valid() {
			return nil, fmt.Errorf("%w: %s: lz variant %q", ErrUnsupportedMetadata, at, d.LZ.Variant)
		}

		child, err := fromDocNode(d.LZ.Node, at)
		if err != nil {
			return nil, err
		}

		return NewNode(&CompressedMeta{Variant: d.LZ.Variant, Node: child}), nil
	case d.File != nil:
		if err := checkEntryName(d.File.Name); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedMetadata, at, err)
		}

		return NewNode(&OpaqueMeta{Name: d.File.Name}), nil
	case d.Empty != nil:
		return NewNode(&EmptyMeta{}), nil
	default:
		return NewNode(nil), nil
	}
}

// variantCount returns how many variant keys are set.
func (d *docNode) variantCount() int {
	n := 0
	for _, set := range []bool{
		d.Directory != nil, d.P2 != nil, d.Bucket != nil, d.LZ != nil,
		d.File != nil, d.Empty != nil, d.Unresolved != nil,
	} {
		if set {
			n++
		}
	}

	return n
}
