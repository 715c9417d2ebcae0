// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/chatdsj/chatdsj/lib/content"
)

// CachedSummary returns the cached summary for key.
func (store *Store) CachedSummary(ctx context.Context, key content.Key) (content.Entry, bool, error) {
	var (
		entry content.Entry
		found bool
	)
	err := store.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT url, title, body, codec, size, word_count, created_at
			 FROM summaries WHERE key = ?`,
			&sqlitex.ExecOptions{
				Args: []any{key[:]},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					body := make([]byte, stmt.ColumnLen(2))
					stmt.ColumnBytes(2, body)
					entry = content.Entry{
						Key:       key,
						URL:       stmt.ColumnText(0),
						Title:     stmt.ColumnText(1),
						Body:      body,
						Codec:     content.Codec(stmt.ColumnInt(3)),
						Size:      stmt.ColumnInt(4),
						WordCount: stmt.ColumnInt(5),
						CreatedAt: time.Unix(0, stmt.ColumnInt64(6)),
					}
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return content.Entry{}, false, fmt.Errorf("memory: reading summary %s: %w", key, err)
	}
	return entry, found, nil
}

// StoreSummary inserts or replaces a cached summary.
func (store *Store) StoreSummary(ctx context.Context, entry content.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = store.clock.Now()
	}
	err := store.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT OR REPLACE INTO summaries (key, url, title, body, codec, size, word_count, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{
					entry.Key[:],
					entry.URL,
					entry.Title,
					entry.Body,
					int(entry.Codec),
					entry.Size,
					entry.WordCount,
					createdAt.UnixNano(),
				},
			})
	})
	if err != nil {
		return fmt.Errorf("memory: storing summary for %s: %w", entry.URL, err)
	}
	return nil
}
