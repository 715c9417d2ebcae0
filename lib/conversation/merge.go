// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import "sort"

// Merge combines channel and thread history into a single sequence
// with no duplicate IDs, sorted ascending by numeric timestamp.
//
// Channel messages are scanned before thread messages and the first
// occurrence of each ID wins. Messages without an ID cannot be
// deduplicated or ordered and are dropped. The sort is stable, so
// messages with equal timestamps keep their scan order.
func Merge(channel, thread []Message) []Message {
	merged := make([]Message, 0, len(channel)+len(thread))
	seen := make(map[string]struct{}, len(channel)+len(thread))

	for _, source := range [][]Message{channel, thread} {
		for _, message := range source {
			if message.ID == "" {
				continue
			}
			if _, duplicate := seen[message.ID]; duplicate {
				continue
			}
			seen[message.ID] = struct{}{}
			merged = append(merged, message)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp() < merged[j].Timestamp()
	})
	return merged
}

// Authors returns the distinct non-empty author IDs in messages, in
// order of first appearance.
func Authors(messages []Message) []string {
	var authors []string
	seen := make(map[string]struct{})
	for _, message := range messages {
		if message.User == "" {
			continue
		}
		if _, ok := seen[message.User]; ok {
			continue
		}
		seen[message.User] = struct{}{}
		authors = append(authors, message.User)
	}
	return authors
}
