// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"cloudeng.io/logging/ctxlog"
)

// LoggingFlags is embedded in every command's flags.
type LoggingFlags struct {
	Verbosity int `subcmd:"verbosity,0,'log verbosity, 0 for warnings only, 1 for progress, 2 for debugging'"`
}

// logLevel maps the verbosity flag to a log level, with the
// ACMECLI_LOG environment variable taking precedence when set.
func logLevel(verbosity int) slog.Level {
	switch strings.ToLower(os.Getenv("ACMECLI_LOG")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	switch {
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// withLogger returns a context carrying a logger writing to stderr at
// the level implied by the verbosity flag.
func (lf LoggingFlags) withLogger(ctx context.Context) context.Context {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(lf.Verbosity),
	}))
	return ctxlog.WithLogger(ctx, logger)
}
