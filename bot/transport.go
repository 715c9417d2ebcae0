// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"time"

	"github.com/chatdsj/chatdsj/lib/completion"
	"github.com/chatdsj/chatdsj/lib/content"
	"github.com/chatdsj/chatdsj/lib/conversation"
	"github.com/chatdsj/chatdsj/memory"
	"github.com/chatdsj/chatdsj/slack"
)

// ChatTransport reads conversation history. Implemented by
// *slack.Client.
type ChatTransport interface {
	ChannelHistory(ctx context.Context, channel string, limit int) ([]conversation.Message, error)
	ThreadHistory(ctx context.Context, channel, threadID string, limit int) ([]conversation.Message, error)
}

// Poster delivers messages to the chat platform. Implemented by
// *slack.Client.
type Poster interface {
	PostMessage(ctx context.Context, message slack.OutgoingMessage) (string, error)
	PostEphemeral(ctx context.Context, message slack.OutgoingMessage) error
}

// NameResolver maps user IDs to display names. Implemented by
// *identity.Resolver.
type NameResolver interface {
	Resolve(ctx context.Context, userID string) string
	ResolveAll(ctx context.Context, userIDs []string) map[string]string
}

// Completer produces a reply for a prepared request. Implemented by
// *completion.Client.
type Completer interface {
	Complete(ctx context.Context, request completion.Request) (*completion.Result, error)
}

// UserMemory stores what the bot knows about each user. Implemented
// by *memory.Store. Lookups of unknown users return memory.ErrNotFound.
type UserMemory interface {
	Nickname(ctx context.Context, userID string) (string, error)
	SetNickname(ctx context.Context, userID, nickname string) error
	Notes(ctx context.Context, userID string) (string, error)
	SetNotes(ctx context.Context, userID, notes string) error
}

// TodoList stores per-user todo items. Implemented by *memory.Store.
type TodoList interface {
	AddTodo(ctx context.Context, userID, text string, priority memory.Priority, due time.Time) (memory.Todo, error)
	Todos(ctx context.Context, userID string, completed *bool) ([]memory.Todo, error)
	CompleteTodo(ctx context.Context, userID, todoID string) error
	DeleteTodo(ctx context.Context, userID, todoID string) error
}

// Summarizer summarizes a linked page. Implemented by
// *content.Summarizer.
type Summarizer interface {
	Summarize(ctx context.Context, rawURL string) (*content.Summary, error)
}

// Reply is a message the bot intends to post.
type Reply struct {
	Channel string

	// ThreadID is the thread to reply in, or empty to post at the top
	// level of the channel.
	ThreadID string

	Text string
}
