// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/chatdsj/chatdsj/lib/clock"
	"github.com/chatdsj/chatdsj/lib/completion"
	"github.com/chatdsj/chatdsj/lib/metrics"
)

const (
	// fallbackSummaryChars is the length of the extract used as the
	// summary when the model produces none.
	fallbackSummaryChars = 500

	// defaultMaxInputChars bounds how much page text is sent to the
	// model.
	defaultMaxInputChars = 12000

	wordsPerMinute = 200
)

// ErrNoContent is returned when a page has no extractable text.
var ErrNoContent = errors.New("content: page has no readable text")

// Completer produces model completions. *completion.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, request completion.Request) (*completion.Result, error)
}

// Entry is a cached summary as stored.
type Entry struct {
	Key   Key
	URL   string
	Title string

	// Body is the summary text encoded with Codec. Size is its
	// uncompressed length.
	Body  []byte
	Codec Codec
	Size  int

	WordCount int
	CreatedAt time.Time
}

// Cache persists summaries between requests.
type Cache interface {
	// CachedSummary returns the entry for key. found is false on a
	// miss.
	CachedSummary(ctx context.Context, key Key) (entry Entry, found bool, err error)
	StoreSummary(ctx context.Context, entry Entry) error
}

// Summary is the result of summarizing a page.
type Summary struct {
	URL            string
	Title          string
	Text           string
	WordCount      int
	ReadingMinutes int

	// Cached is true when the summary came from the cache.
	Cached bool
}

// ReadingMinutes estimates reading time at 200 words per minute,
// never less than one minute.
func ReadingMinutes(words int) int {
	return max(1, words/wordsPerMinute)
}

// SummarizerConfig configures a Summarizer.
type SummarizerConfig struct {
	// Fetcher retrieves pages. Nil uses a zero Fetcher.
	Fetcher *Fetcher

	// Completer writes summaries. Nil always uses the plain-text
	// fallback.
	Completer Completer

	// Cache stores summaries. Nil disables caching.
	Cache Cache

	// MaxInputChars bounds the page text sent to the model. Zero uses
	// 12000.
	MaxInputChars int

	Metrics *metrics.Registry
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Summarizer produces cached page summaries.
type Summarizer struct {
	fetcher       *Fetcher
	completer     Completer
	cache         Cache
	maxInputChars int
	metrics       *metrics.Registry
	clock         clock.Clock
	logger        *slog.Logger
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(config SummarizerConfig) *Summarizer {
	if config.Fetcher == nil {
		config.Fetcher = &Fetcher{}
	}
	if config.MaxInputChars <= 0 {
		config.MaxInputChars = defaultMaxInputChars
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Summarizer{
		fetcher:       config.Fetcher,
		completer:     config.Completer,
		cache:         config.Cache,
		maxInputChars: config.MaxInputChars,
		metrics:       config.Metrics,
		clock:         config.Clock,
		logger:        config.Logger,
	}
}

// Summarize returns a summary of the page at rawURL, serving it from
// the cache when present. Cache failures are logged and otherwise
// ignored; fetch and extraction failures are returned.
func (summarizer *Summarizer) Summarize(ctx context.Context, rawURL string) (*Summary, error) {
	defer summarizer.metrics.Track("url_summary")()

	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	key := CacheKey(normalized)

	if summary := summarizer.fromCache(ctx, key); summary != nil {
		return summary, nil
	}

	summarizer.metrics.CountAPICall("web")
	page, err := summarizer.fetcher.Fetch(ctx, normalized)
	if err != nil {
		summarizer.metrics.CountError("url_fetch")
		return nil, err
	}
	document, err := Extract(page.Body)
	if err != nil {
		return nil, err
	}
	if document.Text == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, normalized)
	}

	text, fromModel := summarizer.summaryText(ctx, document)
	summary := &Summary{
		URL:            normalized,
		Title:          document.Title,
		Text:           text,
		WordCount:      document.WordCount(),
		ReadingMinutes: ReadingMinutes(document.WordCount()),
	}
	// An extract standing in for a failed model call is not cached, so
	// the next request for the page asks the model again.
	if fromModel || summarizer.completer == nil {
		summarizer.store(ctx, key, summary)
	}
	return summary, nil
}

func (summarizer *Summarizer) fromCache(ctx context.Context, key Key) *Summary {
	if summarizer.cache == nil {
		return nil
	}
	entry, found, err := summarizer.cache.CachedSummary(ctx, key)
	if err != nil {
		summarizer.logger.Warn("summary cache lookup failed", "key", key.String(), "error", err)
		return nil
	}
	if !found {
		return nil
	}
	text, err := Decompress(entry.Body, entry.Codec, entry.Size)
	if err != nil {
		summarizer.logger.Warn("cached summary unreadable", "key", key.String(), "error", err)
		return nil
	}
	return &Summary{
		URL:            entry.URL,
		Title:          entry.Title,
		Text:           string(text),
		WordCount:      entry.WordCount,
		ReadingMinutes: ReadingMinutes(entry.WordCount),
		Cached:         true,
	}
}

func (summarizer *Summarizer) store(ctx context.Context, key Key, summary *Summary) {
	if summarizer.cache == nil {
		return
	}
	raw := []byte(summary.Text)
	body, codec := Compress(raw)
	entry := Entry{
		Key:       key,
		URL:       summary.URL,
		Title:     summary.Title,
		Body:      body,
		Codec:     codec,
		Size:      len(raw),
		WordCount: summary.WordCount,
		CreatedAt: summarizer.clock.Now(),
	}
	if err := summarizer.cache.StoreSummary(ctx, entry); err != nil {
		summarizer.logger.Warn("storing summary failed", "url", summary.URL, "error", err)
	}
}

// summaryText asks the model for a summary and falls back to the head
// of the extracted text. fromModel reports whether the model answered.
func (summarizer *Summarizer) summaryText(ctx context.Context, document Document) (text string, fromModel bool) {
	if summarizer.completer != nil {
		prompt := "Summarize the web page below in three to five sentences."
		if document.Title != "" {
			prompt = fmt.Sprintf("Summarize the web page titled %q in three to five sentences.", document.Title)
		}
		result, err := summarizer.completer.Complete(ctx, completion.Request{
			Prompt:        prompt,
			LinkedContext: truncateRunes(document.Text, summarizer.maxInputChars),
		})
		if err != nil {
			summarizer.logger.Warn("model summary failed, using extract", "error", err)
		} else if result.Text != "" {
			return result.Text, true
		}
	}
	return FallbackSummary(document.Text), false
}

// FallbackSummary returns the first 500 characters of text, with an
// ellipsis when anything was cut.
func FallbackSummary(text string) string {
	if utf8.RuneCountInString(text) <= fallbackSummaryChars {
		return text
	}
	return truncateRunes(text, fallbackSummaryChars) + "..."
}

func truncateRunes(text string, limit int) string {
	count := 0
	for index := range text {
		if count == limit {
			return text[:index]
		}
		count++
	}
	return text
}
