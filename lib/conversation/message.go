// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import "strconv"

// Message is one chat event as delivered by the chat transport.
// Messages are treated as immutable values.
type Message struct {
	// ID is the platform timestamp identifying the message
	// ("1712345678.000200"). IDs increase monotonically but must be
	// compared numerically: string order is only correct when every
	// ID has the same fractional width.
	ID string

	// User is the author's opaque identifier. Empty for
	// system-generated events (joins, topic changes, integrations).
	User string

	// Text is the raw message body.
	Text string

	// ThreadID is the ID of the thread's parent message, or empty for
	// top-level channel messages.
	ThreadID string
}

// Timestamp returns the message ID parsed as a number of seconds.
// Unparseable IDs return 0 so they sort first rather than failing.
func (message Message) Timestamp() float64 {
	value, err := strconv.ParseFloat(message.ID, 64)
	if err != nil {
		return 0
	}
	return value
}
