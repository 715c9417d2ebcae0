// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package content

import "testing"

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/a", "https://example.com/a"},
		{"example.com/article", "https://example.com/article"},
		{"HTTPS://Example.COM/Path#section", "https://example.com/Path"},
		{"http://example.com", "http://example.com/"},
		{"<https://example.com/a|example.com/a>", "https://example.com/a"},
		{"  https://example.com/q?x=1  ", "https://example.com/q?x=1"},
	}
	for _, test := range tests {
		got, err := NormalizeURL(test.raw)
		if err != nil {
			t.Errorf("NormalizeURL(%q) error: %v", test.raw, err)
			continue
		}
		if got != test.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", test.raw, got, test.want)
		}
	}
}

func TestNormalizeURL_Rejects(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "ftp://example.com/file", "https://"} {
		if got, err := NormalizeURL(raw); err == nil {
			t.Errorf("NormalizeURL(%q) = %q, want error", raw, got)
		}
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	first := CacheKey("https://example.com/a")
	if first != CacheKey("https://example.com/a") {
		t.Error("CacheKey is not deterministic")
	}
	if first == CacheKey("https://example.com/b") {
		t.Error("different URLs produced the same key")
	}

	parsed, err := ParseKey(first.String())
	if err != nil {
		t.Fatalf("ParseKey() error: %v", err)
	}
	if parsed != first {
		t.Errorf("ParseKey(String()) = %s, want %s", parsed, first)
	}
	if _, err := ParseKey("abcd"); err == nil {
		t.Error("ParseKey(short) should return error")
	}
}
