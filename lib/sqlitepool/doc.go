// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool behind the
// user memory store.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool with fixed pragmas
// and a small migration runner. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back. Connections are not safe for
// concurrent use.
//
// # Pragmas
//
//   - journal_mode=WAL: readers never block the writer.
//   - synchronous=NORMAL: transactions survive process crashes.
//   - busy_timeout=5000: wait up to 5 seconds for the write lock.
//   - foreign_keys=ON: todos reference users.
//   - temp_store=MEMORY.
//
// # Migrations
//
// [Pool.Migrate] takes an ordered list of SQL scripts and applies the
// ones past the database's PRAGMA user_version, each in its own
// immediate transaction. Scripts are append-only: never edit a
// migration that has shipped.
package sqlitepool
