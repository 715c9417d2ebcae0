// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"time"

	"github.com/chatdsj/chatdsj/bot"
	"github.com/chatdsj/chatdsj/lib/completion"
	"github.com/chatdsj/chatdsj/lib/metrics"
)

// Admin socket actions.
const (
	// ActionStatus returns a StatusResponse.
	ActionStatus = "status"

	// ActionUsage returns a completion.LedgerSnapshot.
	ActionUsage = "usage"

	// ActionResetUsage zeroes the ledger and returns a
	// ResetUsageResponse holding the totals before the reset.
	ActionResetUsage = "reset-usage"

	// ActionMetrics returns a MetricsResponse. With Reset set the
	// registry is cleared after the summary is taken.
	ActionMetrics = "metrics"

	// ActionChannels returns a ChannelsResponse.
	ActionChannels = "channels"
)

// StatusResponse describes the running service.
type StatusResponse struct {
	// Build holds version.Fields().
	Build map[string]string `cbor:"build"`

	Environment string `cbor:"environment"`
	BotUserID   string `cbor:"bot_user_id"`
	Model       string `cbor:"model"`

	StartedAt time.Time `cbor:"started_at"`

	// Services reports availability of each dependency: "slack",
	// "llm", and "memory".
	Services map[string]bool `cbor:"services"`

	// QueuedEvents is the number of mentions waiting for a worker.
	QueuedEvents int `cbor:"queued_events"`

	// Channels is the number of channels with recorded activity.
	Channels int `cbor:"channels"`
}

// ResetUsageResponse is the reply to ActionResetUsage.
type ResetUsageResponse struct {
	Previous completion.LedgerSnapshot `cbor:"previous"`
}

// MetricsRequest carries the optional fields of ActionMetrics.
type MetricsRequest struct {
	Reset bool `cbor:"reset,omitempty"`
}

// MetricsResponse is the reply to ActionMetrics.
type MetricsResponse struct {
	Summary metrics.Summary `cbor:"summary"`
	Reset   bool            `cbor:"reset"`
}

// ChannelsRequest carries the optional fields of ActionChannels.
type ChannelsRequest struct {
	// Limit caps the number of channels returned, most recently
	// active first. Zero returns all.
	Limit int `cbor:"limit,omitempty"`
}

// ChannelsResponse is the reply to ActionChannels.
type ChannelsResponse struct {
	Channels []bot.ChannelActivity `cbor:"channels"`

	// Total is the number of channels before Limit was applied.
	Total int `cbor:"total"`
}
