// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/chatdsj/chatdsj/lib/config"
)

func TestNewLoggerJSON(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer
	logger, err := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &output)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept", "channel", "C1")

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want only the warning: %q", len(lines), output.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decoding %q: %v", lines[0], err)
	}
	if record["msg"] != "kept" || record["service"] != "chatdsj" || record["channel"] != "C1" {
		t.Errorf("record = %v", record)
	}
}

func TestNewLoggerText(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer
	logger, err := newLogger(config.LoggingConfig{Level: "DEBUG", Format: "text"}, &output)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("trace")
	if !strings.Contains(output.String(), "msg=trace") || !strings.Contains(output.String(), "service=chatdsj") {
		t.Errorf("output = %q", output.String())
	}
}

func TestNewLoggerErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		config config.LoggingConfig
	}{
		{name: "unknown level", config: config.LoggingConfig{Level: "verbose", Format: "text"}},
		{name: "unknown format", config: config.LoggingConfig{Level: "info", Format: "xml"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if _, err := newLogger(test.config, &bytes.Buffer{}); err == nil {
				t.Error("newLogger accepted an invalid config")
			}
		})
	}
}
