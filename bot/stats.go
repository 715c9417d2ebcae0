// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"maps"
	"sort"
	"sync"
	"time"
)

// ChannelActivity is a snapshot of one channel's counters.
type ChannelActivity struct {
	Channel string `json:"channel" cbor:"channel"`

	// MessageCount is the number of mentions the bot answered.
	MessageCount int `json:"message_count" cbor:"message_count"`

	// UserCount is the number of distinct users who mentioned the bot.
	UserCount int `json:"user_count" cbor:"user_count"`

	UserMessageCounts map[string]int `json:"user_message_counts" cbor:"user_message_counts"`

	// Reactions counts reactions to the bot's messages by emoji name.
	Reactions map[string]int `json:"reactions,omitempty" cbor:"reactions,omitempty"`

	LastActivity time.Time `json:"last_activity" cbor:"last_activity"`
}

// ChannelStats accumulates per-channel activity in memory. Counters
// reset on restart. All methods are safe for concurrent use, and a nil
// *ChannelStats ignores updates.
type ChannelStats struct {
	mu       sync.Mutex
	channels map[string]*ChannelActivity
}

// NewChannelStats creates an empty registry.
func NewChannelStats() *ChannelStats {
	return &ChannelStats{channels: make(map[string]*ChannelActivity)}
}

// Record counts one answered mention by user in channel.
func (stats *ChannelStats) Record(channel, user string, at time.Time) {
	if stats == nil || channel == "" {
		return
	}
	stats.mu.Lock()
	defer stats.mu.Unlock()

	activity := stats.channelLocked(channel)
	activity.MessageCount++
	if user != "" {
		activity.UserMessageCounts[user]++
		activity.UserCount = len(activity.UserMessageCounts)
	}
	if at.After(activity.LastActivity) {
		activity.LastActivity = at
	}
}

// RecordReaction counts one reaction to a bot message in channel.
func (stats *ChannelStats) RecordReaction(channel, reaction string, at time.Time) {
	if stats == nil || channel == "" || reaction == "" {
		return
	}
	stats.mu.Lock()
	defer stats.mu.Unlock()

	activity := stats.channelLocked(channel)
	activity.Reactions[reaction]++
	if at.After(activity.LastActivity) {
		activity.LastActivity = at
	}
}

func (stats *ChannelStats) channelLocked(channel string) *ChannelActivity {
	activity, ok := stats.channels[channel]
	if !ok {
		activity = &ChannelActivity{
			Channel:           channel,
			UserMessageCounts: make(map[string]int),
			Reactions:         make(map[string]int),
		}
		stats.channels[channel] = activity
	}
	return activity
}

// Channel returns a copy of one channel's counters.
func (stats *ChannelStats) Channel(channel string) (ChannelActivity, bool) {
	if stats == nil {
		return ChannelActivity{}, false
	}
	stats.mu.Lock()
	defer stats.mu.Unlock()

	activity, ok := stats.channels[channel]
	if !ok {
		return ChannelActivity{}, false
	}
	return copyActivity(activity), true
}

// Snapshot returns copies of every channel's counters, most recently
// active first.
func (stats *ChannelStats) Snapshot() []ChannelActivity {
	if stats == nil {
		return nil
	}
	stats.mu.Lock()
	snapshot := make([]ChannelActivity, 0, len(stats.channels))
	for _, activity := range stats.channels {
		snapshot = append(snapshot, copyActivity(activity))
	}
	stats.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if !snapshot[i].LastActivity.Equal(snapshot[j].LastActivity) {
			return snapshot[i].LastActivity.After(snapshot[j].LastActivity)
		}
		return snapshot[i].Channel < snapshot[j].Channel
	})
	return snapshot
}

func copyActivity(activity *ChannelActivity) ChannelActivity {
	copied := *activity
	copied.UserMessageCounts = maps.Clone(activity.UserMessageCounts)
	copied.Reactions = maps.Clone(activity.Reactions)
	return copied
}
