// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory is the bot's per-user memory: nicknames, free-form
// notes, todo lists, and the cache of link summaries.
//
// Everything lives in one SQLite database opened through
// [sqlitepool.Pool]. The schema is versioned with PRAGMA user_version
// and migrated forward on [Open]. Timestamps are stored as Unix
// nanoseconds.
package memory
