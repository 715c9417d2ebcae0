// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package slack

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/chatdsj/chatdsj/lib/conversation"
)

// pageSize is the number of messages requested per history page.
const pageSize = 100

// wireMessage is a message as returned by conversations.history and
// conversations.replies.
type wireMessage struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype"`
	User     string `json:"user"`
	BotID    string `json:"bot_id"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

func (message wireMessage) toMessage() conversation.Message {
	result := conversation.Message{
		ID:   message.TS,
		User: message.User,
		Text: message.Text,
	}
	// A thread parent carries thread_ts equal to its own ts.
	if message.ThreadTS != "" && message.ThreadTS != message.TS {
		result.ThreadID = message.ThreadTS
	}
	return result
}

type historyPage struct {
	Messages []wireMessage `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

// ChannelHistory returns up to limit of the most recent top-level
// messages in channel, in the order Slack returns them (newest first).
func (client *Client) ChannelHistory(ctx context.Context, channel string, limit int) ([]conversation.Message, error) {
	arguments := url.Values{"channel": {channel}}
	messages, err := client.paginate(ctx, "conversations.history", arguments, limit)
	if err != nil {
		return nil, fmt.Errorf("slack: fetching history of %s: %w", channel, err)
	}
	return messages, nil
}

// ThreadHistory returns up to limit messages of the thread rooted at
// threadID, parent first.
func (client *Client) ThreadHistory(ctx context.Context, channel, threadID string, limit int) ([]conversation.Message, error) {
	arguments := url.Values{"channel": {channel}, "ts": {threadID}}
	messages, err := client.paginate(ctx, "conversations.replies", arguments, limit)
	if err != nil {
		return nil, fmt.Errorf("slack: fetching thread %s in %s: %w", threadID, channel, err)
	}
	return messages, nil
}

// paginate follows next_cursor until limit messages have been
// collected or Slack reports no further pages.
func (client *Client) paginate(ctx context.Context, method string, arguments url.Values, limit int) ([]conversation.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	var (
		messages []conversation.Message
		cursor   string
	)
	for len(messages) < limit {
		arguments.Set("limit", strconv.Itoa(min(pageSize, limit-len(messages))))
		if cursor != "" {
			arguments.Set("cursor", cursor)
		} else {
			arguments.Del("cursor")
		}

		var page historyPage
		header, err := client.callForm(ctx, method, arguments, &page)
		if err != nil {
			return nil, err
		}
		for _, message := range page.Messages {
			if len(messages) == limit {
				break
			}
			messages = append(messages, message.toMessage())
		}

		cursor = header.ResponseMetadata.NextCursor
		if cursor == "" || len(page.Messages) == 0 {
			break
		}
	}
	client.logger.Debug("slack history fetched",
		"method", method,
		"channel", arguments.Get("channel"),
		"messages", len(messages),
	)
	return messages, nil
}
