// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger used across ragchat.
//
// The TUI owns the terminal, so records go to a file as JSON. With
// Options.Console set (the -v flag on plain subcommands) a human-readable
// copy is also written there.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures Open.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string
	// File receives JSON records. Empty disables the file sink.
	File string
	// Console, when non-nil, receives a ConsoleWriter copy.
	Console io.Writer
}

// Open builds a logger from opts. The returned close function releases the
// log file and is safe to call when no file was opened.
func Open(opts Options) (zerolog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return Nop(), noClose, err
	}

	var writers []io.Writer
	closeFn := noClose

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return Nop(), noClose, fmt.Errorf("create log directory: %w", err)
		}
		// SECURITY: logs contain user ids and thread ids; owner-only
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return Nop(), noClose, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.Kitchen})
	}

	if len(writers) == 0 {
		return Nop(), closeFn, nil
	}

	var out io.Writer = writers[0]
	if len(writers) > 1 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()
	return logger, closeFn, nil
}

// ParseLevel accepts zerolog level names, case-insensitively.
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Nop returns a logger that discards everything. Components default to it
// so tests need no setup.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func noClose() error { return nil }
