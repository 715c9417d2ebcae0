// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package slack

import (
	"regexp"
	"strings"
)

var userMention = regexp.MustCompile(`<@[A-Z0-9]+(?:\|[^>]*)?>`)

// CleanPromptText removes the bot's own mention and then any other
// user mentions from text and trims the result.
func CleanPromptText(text, botUserID string) string {
	if botUserID != "" {
		text = strings.ReplaceAll(text, "<@"+botUserID+">", "")
	}
	text = userMention.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
