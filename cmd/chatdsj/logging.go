// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/chatdsj/chatdsj/lib/config"
)

// newLogger builds the process logger from the logging section.
func newLogger(cfg config.LoggingConfig, output io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, options)
	case "text", "":
		handler = slog.NewTextHandler(output, options)
	default:
		return nil, fmt.Errorf("logging.format must be text or json, got %q", cfg.Format)
	}

	return slog.New(handler).With("service", "chatdsj"), nil
}
