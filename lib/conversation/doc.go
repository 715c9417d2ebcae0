// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversation turns raw chat history into the role-tagged
// entries of a completion prompt.
//
// [Merge] combines channel and thread history into one deduplicated,
// chronologically ordered sequence. [Format] converts that sequence
// into [llm.Message] values, attributing the bot's own messages to the
// assistant role and prefixing everyone else's with their display
// name. Malformed messages are dropped, never reported as errors.
package conversation
