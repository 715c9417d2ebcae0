// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package slack

import (
	"context"
	"fmt"
)

// OutgoingMessage is a message to post.
type OutgoingMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`

	// ThreadTS posts the message as a reply in that thread.
	ThreadTS string `json:"thread_ts,omitempty"`

	// User is required for ephemeral messages and ignored otherwise.
	User string `json:"user,omitempty"`

	Mrkdwn bool `json:"mrkdwn"`
}

// PostMessage posts a message and returns its timestamp.
func (client *Client) PostMessage(ctx context.Context, message OutgoingMessage) (string, error) {
	message.User = ""
	message.Mrkdwn = true
	var response struct {
		TS string `json:"ts"`
	}
	if _, err := client.callJSON(ctx, "chat.postMessage", message, &response); err != nil {
		return "", fmt.Errorf("slack: posting to %s: %w", message.Channel, err)
	}
	return response.TS, nil
}

// PostEphemeral posts a message only message.User can see.
func (client *Client) PostEphemeral(ctx context.Context, message OutgoingMessage) error {
	if message.User == "" {
		return fmt.Errorf("slack: ephemeral message to %s has no user", message.Channel)
	}
	message.Mrkdwn = true
	if _, err := client.callJSON(ctx, "chat.postEphemeral", message, nil); err != nil {
		return fmt.Errorf("slack: posting ephemeral to %s: %w", message.Channel, err)
	}
	return nil
}
