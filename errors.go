// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"errors"
	"fmt"
)

// Sentinel errors for unpack and repack operations. Use errors.Is in callers.
var (
	// ErrMalformedContainer means a container buffer is truncated or its offset/length tables are inconsistent.
	ErrMalformedContainer = errors.New("malformed container")
	// ErrCompressionFailure means the compression collaborator rejected its input.
	ErrCompressionFailure = errors.New("compression failure")
	// ErrIOFailure means the filesystem collaborator failed.
	ErrIOFailure = errors.New("filesystem failure")
	// ErrEncodingInconsistency means metadata cannot be encoded back to bytes (for example an unresolved node).
	ErrEncodingInconsistency = errors.New("encoding inconsistency")
	// ErrIncompleteTree means the metadata tree still contains unresolved nodes.
	ErrIncompleteTree = errors.New("metadata tree is incomplete")
	// ErrSlotAlreadyWritten means a metadata slot was resolved more than once.
	ErrSlotAlreadyWritten = errors.New("metadata slot already written")
	// ErrCapabilityUsed means a write capability was used or handed out twice.
	ErrCapabilityUsed = errors.New("write capability already used")
	// ErrNameTooLong means a subfile name does not fit the 8-byte name table slot.
	ErrNameTooLong = errors.New("subfile name exceeds 8 bytes")
	// ErrSizeOverflow means a length, count, or offset does not fit its on-disk field.
	ErrSizeOverflow = errors.New("size exceeds container field limit")
	// ErrUnsupportedMetadata means the metadata document has an unknown version or node kind.
	ErrUnsupportedMetadata = errors.New("unsupported metadata document")
	// ErrPoolClosed means a task was submitted after the pool stopped accepting work.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrInvalidUnpackRules means one or more unpack path rules are invalid.
	ErrInvalidUnpackRules = errors.New("invalid unpack rules")
	// ErrInvalidName means a recorded entry name is empty, absolute, or escapes its directory.
	ErrInvalidName = errors.New("invalid entry name")
)

// TaskError reports one failed extraction task. The rest of the run continues.
type TaskError struct {
	// Path is the source-relative path of the file owned by the task.
	Path string `json:"path" yaml:"path"`
	// Err is the task failure.
	Err error `json:"-" yaml:"-"`
}

// Error implements error.
func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the task failure.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// malformedf wraps ErrMalformedContainer with a formatted detail.
func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedContainer, fmt.Sprintf(format, args...))
}
