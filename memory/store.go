// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/chatdsj/chatdsj/lib/clock"
	"github.com/chatdsj/chatdsj/lib/sqlitepool"
)

// ErrNotFound is returned when a user, todo, or value does not exist.
var ErrNotFound = errors.New("memory: not found")

// migrations[i] moves the schema from version i to i+1. Append only.
var migrations = []string{
	`CREATE TABLE users (
		user_id    TEXT PRIMARY KEY,
		nickname   TEXT,
		notes      TEXT,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE todos (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		text         TEXT NOT NULL,
		priority     TEXT NOT NULL DEFAULT 'medium',
		due_date     INTEGER,
		completed    INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX todos_by_user ON todos (user_id, completed, created_at);
	CREATE TABLE summaries (
		key        BLOB PRIMARY KEY,
		url        TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       BLOB NOT NULL,
		codec      INTEGER NOT NULL,
		size       INTEGER NOT NULL,
		word_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);`,
}

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// PoolSize is the number of connections. Zero uses 4.
	PoolSize int

	// Clock stamps updated_at and created_at. Nil uses clock.Real().
	Clock clock.Clock

	// Logger receives operational messages. Nil uses slog.Default().
	Logger *slog.Logger
}

// Store is the user memory database. It is safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Open opens or creates the database at config.Path and migrates it to
// the current schema.
func Open(ctx context.Context, config Config) (*Store, error) {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     config.Path,
		PoolSize: config.PoolSize,
		Logger:   config.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	if err := pool.Migrate(ctx, migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("memory: %w", err)
	}

	return &Store{pool: pool, clock: config.Clock, logger: config.Logger}, nil
}

// Close closes the underlying pool.
func (store *Store) Close() error {
	return store.pool.Close()
}

// Ping checks that the database answers queries.
func (store *Store) Ping(ctx context.Context) error {
	return store.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteTransient(conn, "SELECT 1", nil)
	})
}

func (store *Store) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := store.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	defer store.pool.Put(conn)
	return fn(conn)
}

// Nickname returns the nickname stored for userID, or ErrNotFound.
func (store *Store) Nickname(ctx context.Context, userID string) (string, error) {
	return store.userField(ctx, userID, "nickname")
}

// SetNickname stores the nickname for userID, creating the user row
// if needed.
func (store *Store) SetNickname(ctx context.Context, userID, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return fmt.Errorf("memory: nickname is empty")
	}
	return store.setUserField(ctx, userID, "nickname", nickname)
}

// Notes returns the free-form notes stored for userID, or ErrNotFound.
func (store *Store) Notes(ctx context.Context, userID string) (string, error) {
	return store.userField(ctx, userID, "notes")
}

// SetNotes replaces the notes for userID. Empty notes clear them.
func (store *Store) SetNotes(ctx context.Context, userID, notes string) error {
	var value any
	if notes = strings.TrimSpace(notes); notes != "" {
		value = notes
	}
	return store.setUserField(ctx, userID, "notes", value)
}

// userField and setUserField take column names from this file only.
func (store *Store) userField(ctx context.Context, userID, column string) (string, error) {
	var (
		value string
		found bool
	)
	err := store.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT "+column+" FROM users WHERE user_id = ? AND "+column+" IS NOT NULL",
			&sqlitex.ExecOptions{
				Args: []any{userID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					value = stmt.ColumnText(0)
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return "", fmt.Errorf("memory: reading %s for %s: %w", column, userID, err)
	}
	if !found {
		return "", ErrNotFound
	}
	return value, nil
}

func (store *Store) setUserField(ctx context.Context, userID, column string, value any) error {
	if userID == "" {
		return fmt.Errorf("memory: user ID is empty")
	}
	err := store.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"INSERT INTO users (user_id, "+column+", updated_at) VALUES (?, ?, ?) "+
				"ON CONFLICT (user_id) DO UPDATE SET "+column+" = excluded."+column+", updated_at = excluded.updated_at",
			&sqlitex.ExecOptions{
				Args: []any{userID, value, store.clock.Now().UnixNano()},
			})
	})
	if err != nil {
		return fmt.Errorf("memory: writing %s for %s: %w", column, userID, err)
	}
	store.logger.Debug("user memory updated", "user", userID, "field", column)
	return nil
}
