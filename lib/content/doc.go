// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package content fetches web pages and produces short summaries of
// them for the "summarize <url>" command.
//
// The pipeline is: [NormalizeURL], cache lookup by [CacheKey], [Fetcher.Fetch],
// [Extract] (title and paragraph text only), a model-written summary
// with a plain-text fallback, and finally a compressed cache entry.
// The cache itself is an interface; the memory store implements it on
// SQLite.
//
// Cache keys are keyed BLAKE3 hashes of the normalized URL. Cached
// bodies are zstd compressed when large and LZ4 compressed otherwise,
// falling back to raw bytes when compression does not help.
package content
