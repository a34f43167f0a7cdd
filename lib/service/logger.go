// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NewLogger creates the service logger. format is "json" (the default
// for daemons) or "text"; level is one of debug, info, warn, error. The
// logger also becomes the slog default so that library code using
// slog.Info gets the same handler.
func NewLogger(output io.Writer, level, format string) (*slog.Logger, error) {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	options := &slog.HandlerOptions{Level: slogLevel}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "json":
		handler = slog.NewJSONHandler(output, options)
	case "text":
		handler = slog.NewTextHandler(output, options)
	default:
		return nil, fmt.Errorf("unknown log format %q (want json or text)", format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
