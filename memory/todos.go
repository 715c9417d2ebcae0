// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Priority ranks a todo.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Todo is one item on a user's list.
type Todo struct {
	ID       string
	UserID   string
	Text     string
	Priority Priority

	// DueDate is the zero time when the todo has no due date.
	DueDate time.Time

	Completed   bool
	CreatedAt   time.Time
	CompletedAt time.Time
}

// AddTodo appends a todo to userID's list. An empty priority is stored
// as medium; a zero due time means no due date.
func (store *Store) AddTodo(ctx context.Context, userID, text string, priority Priority, due time.Time) (Todo, error) {
	text = strings.TrimSpace(text)
	if userID == "" || text == "" {
		return Todo{}, fmt.Errorf("memory: todo needs a user and text")
	}
	switch priority {
	case "":
		priority = PriorityMedium
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return Todo{}, fmt.Errorf("memory: unknown todo priority %q", priority)
	}

	todo := Todo{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		Priority:  priority,
		DueDate:   due,
		CreatedAt: store.clock.Now(),
	}
	var dueValue any
	if !due.IsZero() {
		dueValue = due.UnixNano()
	}

	err := store.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT INTO todos (id, user_id, text, priority, due_date, completed, created_at)
			 VALUES (?, ?, ?, ?, ?, 0, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{todo.ID, userID, text, string(priority), dueValue, todo.CreatedAt.UnixNano()},
			})
	})
	if err != nil {
		return Todo{}, fmt.Errorf("memory: adding todo for %s: %w", userID, err)
	}
	store.logger.Info("todo added", "user", userID, "todo", todo.ID)
	return todo, nil
}

// Todos returns userID's todos, oldest first. A nil completed returns
// every todo; otherwise only those whose completion matches.
func (store *Store) Todos(ctx context.Context, userID string, completed *bool) ([]Todo, error) {
	query := `SELECT id, user_id, text, priority, due_date, completed, created_at, completed_at
		FROM todos WHERE user_id = ?`
	args := []any{userID}
	if completed != nil {
		query += " AND completed = ?"
		flag := 0
		if *completed {
			flag = 1
		}
		args = append(args, flag)
	}
	query += " ORDER BY created_at, rowid"

	var todos []Todo
	err := store.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				todos = append(todos, scanTodo(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("memory: listing todos for %s: %w", userID, err)
	}
	return todos, nil
}

// CompleteTodo marks one of userID's todos as done. Returns
// ErrNotFound when the todo does not exist or belongs to someone else.
func (store *Store) CompleteTodo(ctx context.Context, userID, todoID string) error {
	err := store.changeTodo(ctx,
		"UPDATE todos SET completed = 1, completed_at = ? WHERE id = ? AND user_id = ?",
		store.clock.Now().UnixNano(), todoID, userID)
	if err != nil {
		return err
	}
	store.logger.Info("todo completed", "user", userID, "todo", todoID)
	return nil
}

// DeleteTodo removes one of userID's todos. Returns ErrNotFound when
// the todo does not exist or belongs to someone else.
func (store *Store) DeleteTodo(ctx context.Context, userID, todoID string) error {
	return store.changeTodo(ctx, "DELETE FROM todos WHERE id = ? AND user_id = ?", todoID, userID)
}

func (store *Store) changeTodo(ctx context.Context, query string, args ...any) error {
	var changed int
	err := store.withConn(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
			return err
		}
		changed = conn.Changes()
		return nil
	})
	if err != nil {
		return fmt.Errorf("memory: updating todo: %w", err)
	}
	if changed == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTodo(stmt *sqlite.Stmt) Todo {
	// Columns: id(0), user_id(1), text(2), priority(3), due_date(4),
	// completed(5), created_at(6), completed_at(7)
	todo := Todo{
		ID:        stmt.ColumnText(0),
		UserID:    stmt.ColumnText(1),
		Text:      stmt.ColumnText(2),
		Priority:  Priority(stmt.ColumnText(3)),
		Completed: stmt.ColumnBool(5),
		CreatedAt: time.Unix(0, stmt.ColumnInt64(6)),
	}
	if !stmt.ColumnIsNull(4) {
		todo.DueDate = time.Unix(0, stmt.ColumnInt64(4)).UTC()
	}
	if !stmt.ColumnIsNull(7) {
		todo.CompletedAt = time.Unix(0, stmt.ColumnInt64(7))
	}
	return todo
}
