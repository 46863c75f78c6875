// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"errors"
	"fmt"
	"os"
	"slices"
)

// Source reads a tree addressed by relative paths.
type Source interface {
	// ReadFile returns whole file content.
	ReadFile(p RelPath) ([]byte, error)
	// ReadDir returns member names of a directory in sorted order.
	ReadDir(p RelPath) ([]string, error)
	// IsDir reports whether p is a directory.
	IsDir(p RelPath) (bool, error)
}

// Sink writes a tree addressed by relative paths. Implementations must be safe
// for concurrent use on distinct paths; CreateDir must be idempotent.
type Sink interface {
	// WriteFile writes whole file content, creating parent directories.
	WriteFile(p RelPath, data []byte) error
	// CreateDir creates a directory and its parents.
	CreateDir(p RelPath) error
}

// DirFS reads from one root and writes to another, both fixed for a run.
type DirFS struct {
	// In is the root resolved by Source methods.
	In string `json:"in" yaml:"in"`
	// Out is the root resolved by Sink methods.
	Out string `json:"out" yaml:"out"`
}

// ReadFile implements Source.
func (d DirFS) ReadFile(p RelPath) ([]byte, error) {
	data, err := os.ReadFile(p.Resolve(d.In))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIOFailure, p, err)
	}

	return data, nil
}

// ReadDir implements Source.
func (d DirFS) ReadDir(p RelPath) ([]string, error) {
	entries, err := os.ReadDir(p.Resolve(d.In))
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrIOFailure, p, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)

	return names, nil
}

// IsDir implements Source.
func (d DirFS) IsDir(p RelPath) (bool, error) {
	info, err := os.Stat(p.Resolve(d.In))
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %w", ErrIOFailure, p, err)
	}

	return info.IsDir(), nil
}

// WriteFile implements Sink.
func (d DirFS) WriteFile(p RelPath, data []byte) error {
	if err := d.CreateDir(p.Parent()); err != nil {
		return err
	}

	if err := os.WriteFile(p.Resolve(d.Out), data, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIOFailure, p, err)
	}

	return nil
}

// CreateDir implements Sink.
func (d DirFS) CreateDir(p RelPath) error {
	if err := os.MkdirAll(p.Resolve(d.Out), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: create directory %s: %w", ErrIOFailure, p, err)
	}

	return nil
}
