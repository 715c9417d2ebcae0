// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultMaxBytes bounds how much of a page is read. Longer pages
	// are truncated, which only affects the tail of the extraction.
	DefaultMaxBytes = 2 << 20

	defaultFetchTimeout = 20 * time.Second

	defaultUserAgent = "ChatDSJ/1.0 (+link summarizer)"
)

// Page is a fetched document.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
	Truncated   bool
}

// Fetcher retrieves pages over HTTP. The zero value is usable.
type Fetcher struct {
	// HTTPClient issues requests. Nil uses a client with a 20 second
	// timeout.
	HTTPClient *http.Client

	// MaxBytes bounds the body read. Zero uses DefaultMaxBytes.
	MaxBytes int64

	// UserAgent is sent with every request.
	UserAgent string
}

// Fetch downloads pageURL. Non-2xx responses and non-text content
// types are errors.
func (fetcher *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	client := fetcher.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	maxBytes := fetcher.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	userAgent := fetcher.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("content: creating request: %w", err)
	}
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("content: fetching %s: %w", pageURL, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return nil, fmt.Errorf("content: fetching %s: HTTP %d", pageURL, response.StatusCode)
	}

	contentType := response.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil && !isTextual(mediaType) {
			return nil, fmt.Errorf("content: %s is %s, not a text document", pageURL, mediaType)
		}
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("content: reading %s: %w", pageURL, err)
	}
	page := &Page{URL: pageURL, ContentType: contentType, Body: body}
	if int64(len(body)) > maxBytes {
		page.Body = body[:maxBytes]
		page.Truncated = true
	}
	return page, nil
}

func isTextual(mediaType string) bool {
	return strings.HasPrefix(mediaType, "text/") ||
		mediaType == "application/xhtml+xml" ||
		mediaType == "application/xml"
}
