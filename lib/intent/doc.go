// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package intent recognizes the auxiliary commands a mention can carry
// before it reaches the completion pipeline: nickname changes, todo
// management, and URL summarization.
//
// Recognition is purely lexical. [Classify] returns [None] for anything
// that is not a command, and the caller answers it with the language
// model.
package intent
