// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds small HTTP helpers shared by the Slack and
// model-provider clients.
//
// Response helpers bound every body read at [MaxResponseSize] so a
// misbehaving server cannot exhaust memory. [RetryAfter] interprets
// the Retry-After header that rate-limited APIs send with HTTP 429.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxResponseSize bounds JSON API response reads: 32 MiB. A page of
// channel history is well under a megabyte.
const MaxResponseSize int64 = 32 << 20

// maxErrorBody bounds how much of an error body is quoted in an error
// message.
const maxErrorBody = 512

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a response body (up to MaxResponseSize bytes)
// and JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an error response body for use in a diagnostic
// message, trimmed and truncated to 512 bytes. Read errors are
// ignored.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody+1))
	text := strings.TrimSpace(string(data))
	if len(data) > maxErrorBody {
		text = strings.TrimSpace(string(data[:maxErrorBody])) + "..."
	}
	return text
}

// RetryAfter interprets a Retry-After header value, either delay
// seconds or an HTTP date relative to now. Returns zero when the
// header is absent, malformed, or in the past.
func RetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if date, err := http.ParseTime(value); err == nil {
		if delay := date.Sub(now); delay > 0 {
			return delay
		}
	}
	return 0
}
