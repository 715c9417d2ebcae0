// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chatdsj/chatdsj/lib/completion"
	"github.com/chatdsj/chatdsj/lib/content"
	"github.com/chatdsj/chatdsj/lib/conversation"
	"github.com/chatdsj/chatdsj/memory"
	"github.com/chatdsj/chatdsj/slack"
)

var quietLogger = slog.New(slog.DiscardHandler)

const botUserID = "UBOT"

type historyCall struct {
	method string
	limit  int
}

// fakeTransport serves fixed channel and thread history and records
// the limits it was asked for.
type fakeTransport struct {
	mu         sync.Mutex
	channel    []conversation.Message
	thread     []conversation.Message
	channelErr error
	threadErr  error
	calls      []historyCall
}

func (transport *fakeTransport) ChannelHistory(ctx context.Context, channel string, limit int) ([]conversation.Message, error) {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	transport.calls = append(transport.calls, historyCall{method: "channel", limit: limit})
	return transport.channel, transport.channelErr
}

func (transport *fakeTransport) ThreadHistory(ctx context.Context, channel, threadID string, limit int) ([]conversation.Message, error) {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	transport.calls = append(transport.calls, historyCall{method: "thread", limit: limit})
	return transport.thread, transport.threadErr
}

func (transport *fakeTransport) recorded() []historyCall {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	return append([]historyCall(nil), transport.calls...)
}

// fakeNames resolves from a fixed map, falling back to "User <id>".
type fakeNames map[string]string

func (names fakeNames) Resolve(ctx context.Context, userID string) string {
	if name, ok := names[userID]; ok {
		return name
	}
	return "User " + userID
}

func (names fakeNames) ResolveAll(ctx context.Context, userIDs []string) map[string]string {
	resolved := make(map[string]string, len(userIDs))
	for _, userID := range userIDs {
		resolved[userID] = names.Resolve(ctx, userID)
	}
	return resolved
}

// fakeCompleter returns a fixed result and records requests.
type fakeCompleter struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []completion.Request
}

func (completer *fakeCompleter) Complete(ctx context.Context, request completion.Request) (*completion.Result, error) {
	completer.mu.Lock()
	defer completer.mu.Unlock()
	completer.requests = append(completer.requests, request)
	if completer.err != nil {
		return nil, completer.err
	}
	return &completion.Result{Text: completer.text, Model: "gpt-4o", Attempts: 1}, nil
}

func (completer *fakeCompleter) lastRequest() completion.Request {
	completer.mu.Lock()
	defer completer.mu.Unlock()
	if len(completer.requests) == 0 {
		return completion.Request{}
	}
	return completer.requests[len(completer.requests)-1]
}

// fakeMemory is an in-memory UserMemory.
type fakeMemory struct {
	mu        sync.Mutex
	nicknames map[string]string
	notes     map[string]string
	err       error
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{nicknames: make(map[string]string), notes: make(map[string]string)}
}

func (fake *fakeMemory) Nickname(ctx context.Context, userID string) (string, error) {
	return fake.get(fake.nicknames, userID)
}

func (fake *fakeMemory) Notes(ctx context.Context, userID string) (string, error) {
	return fake.get(fake.notes, userID)
}

func (fake *fakeMemory) get(values map[string]string, userID string) (string, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.err != nil {
		return "", fake.err
	}
	value, ok := values[userID]
	if !ok {
		return "", memory.ErrNotFound
	}
	return value, nil
}

func (fake *fakeMemory) SetNickname(ctx context.Context, userID, nickname string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.err != nil {
		return fake.err
	}
	fake.nicknames[userID] = nickname
	return nil
}

func (fake *fakeMemory) SetNotes(ctx context.Context, userID, notes string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.err != nil {
		return fake.err
	}
	if notes == "" {
		delete(fake.notes, userID)
	} else {
		fake.notes[userID] = notes
	}
	return nil
}

// fakePoster records every message posted.
type fakePoster struct {
	mu        sync.Mutex
	messages  []slack.OutgoingMessage
	ephemeral []slack.OutgoingMessage
	postErr   error
}

func (poster *fakePoster) PostMessage(ctx context.Context, message slack.OutgoingMessage) (string, error) {
	poster.mu.Lock()
	defer poster.mu.Unlock()
	if poster.postErr != nil {
		return "", poster.postErr
	}
	poster.messages = append(poster.messages, message)
	return "1700000100.000100", nil
}

func (poster *fakePoster) PostEphemeral(ctx context.Context, message slack.OutgoingMessage) error {
	poster.mu.Lock()
	defer poster.mu.Unlock()
	poster.ephemeral = append(poster.ephemeral, message)
	return nil
}

func (poster *fakePoster) posted() []slack.OutgoingMessage {
	poster.mu.Lock()
	defer poster.mu.Unlock()
	return append([]slack.OutgoingMessage(nil), poster.messages...)
}

// fakeSummarizer returns a fixed summary or error.
type fakeSummarizer struct {
	summary *content.Summary
	err     error
}

func (summarizer *fakeSummarizer) Summarize(ctx context.Context, rawURL string) (*content.Summary, error) {
	return summarizer.summary, summarizer.err
}
