// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates a console logger with the given level and output.
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("lib", "ndspack").
		Logger()
}

// DefaultLogger returns a warn-level logger writing to stderr.
func DefaultLogger() zerolog.Logger {
	return NewLogger(os.Stderr, zerolog.WarnLevel)
}

// ParseLogLevel parses a case-insensitive level name.
func ParseLogLevel(level string) (zerolog.Level, error) {
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
}

// loggerOrNop returns l, or a disabled logger when l is nil.
func loggerOrNop(l *zerolog.Logger) *zerolog.Logger {
	if l != nil {
		return l
	}

	nop := zerolog.Nop()
	return &nop
}
