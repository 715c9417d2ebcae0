// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a user-supplied link: the scheme defaults
// to https, scheme and host are lowercased, and the fragment is
// dropped. Only http and https links are accepted.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	// Slack wraps links as <https://x> or <https://x|label>.
	raw = strings.TrimPrefix(raw, "<")
	raw = strings.TrimSuffix(raw, ">")
	if index := strings.IndexByte(raw, '|'); index >= 0 {
		raw = raw[:index]
	}
	if raw == "" {
		return "", fmt.Errorf("content: empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("content: parsing URL %q: %w", raw, err)
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("content: unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("content: URL %q has no host", raw)
	}
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.String(), nil
}
