// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package context bounds a role-tagged prompt to a model's token
// budget.
//
// [Trimmer.Fit] keeps every system entry and as many of the most
// recent conversation entries as fit under a token ceiling, dropping
// the oldest first. [Budget] derives that ceiling from the model's
// context window (see [ContextWindowForModel]) minus the tokens
// reserved for the reply.
//
// Token costs come from a [Counter], normally a
// [github.com/chatdsj/chatdsj/lib/llm/tokens.Accountant].
package context
