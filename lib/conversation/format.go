// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"strings"

	"github.com/chatdsj/chatdsj/lib/llm"
)

// Format converts chronologically ordered messages into role-tagged
// prompt entries.
//
// Messages authored by botUserID become assistant entries with their
// text unchanged. Everything else becomes a user entry, prefixed with
// "<display name>: " when names has an entry for the author. Messages
// with no author or with blank text are skipped. Input order is
// preserved.
func Format(messages []Message, names map[string]string, botUserID string) []llm.Message {
	entries, _ := FormatCounted(messages, names, botUserID)
	return entries
}

// FormatCounted is Format that also reports how many messages were
// skipped, so callers can log a summary instead of one line per
// malformed message.
func FormatCounted(messages []Message, names map[string]string, botUserID string) ([]llm.Message, int) {
	entries := make([]llm.Message, 0, len(messages))
	skipped := 0

	for _, message := range messages {
		if message.User == "" || strings.TrimSpace(message.Text) == "" {
			skipped++
			continue
		}

		if message.User == botUserID {
			entries = append(entries, llm.AssistantMessage(message.Text))
			continue
		}

		content := message.Text
		if name, ok := names[message.User]; ok && name != "" {
			content = name + ": " + content
		}
		entries = append(entries, llm.UserMessage(content))
	}

	return entries, skipped
}
