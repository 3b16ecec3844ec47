// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates a structured logger for CLI command
// operations. When stderr is a terminal it uses slog.TextHandler for
// human-readable output; when stderr is piped or redirected it uses
// slog.JSONHandler so scripts and log collectors can parse it.
//
// Callers scope the logger with command-specific context via With():
//
//	logger := cli.NewCommandLogger(false).With("command", "certify")
func NewCommandLogger(verbose bool) *slog.Logger {
	return NewLogger(os.Stderr, verbose, term.IsTerminal(int(os.Stderr.Fd())))
}

// NewLogger builds the logger NewCommandLogger would build for w. When
// text is false the output is JSON. verbose lowers the level to debug.
func NewLogger(w io.Writer, verbose, text bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	if text {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
