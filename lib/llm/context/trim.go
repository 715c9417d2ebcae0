// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package context

import (
	"log/slog"

	"github.com/chatdsj/chatdsj/lib/llm"
)

const (
	// SafetyBufferTokens is held back below the ceiling passed to Fit,
	// so history gets ceiling - system - SafetyBufferTokens: a 200-token
	// ceiling with a 20-token system prompt leaves 80 tokens.
	SafetyBufferTokens = 100

	// MessageOverheadTokens is the per-message cost charged on top of
	// a conversation entry's content while trimming: the fixed framing
	// plus the role token.
	MessageOverheadTokens = 4
)

// Counter counts tokens for a model.
type Counter interface {
	CountTokens(text, model string) int
	CountMessages(messages []llm.Message, model string) int
}

// Trimmer fits role-tagged prompts into a token ceiling. It is safe
// for concurrent use if its Counter is.
type Trimmer struct {
	counter Counter
	logger  *slog.Logger
}

// NewTrimmer creates a Trimmer. A nil logger uses slog.Default().
func NewTrimmer(counter Counter, logger *slog.Logger) *Trimmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trimmer{counter: counter, logger: logger}
}

// Fit returns the longest suffix of the conversation that fits under
// ceiling, preceded by every system entry in its original order.
//
// System entries are always kept. The remaining entries are walked
// newest-first, each costing its content tokens plus
// MessageOverheadTokens. The running total starts at the cost of the
// system entries and the walk compares it against
// ceiling - SafetyBufferTokens, not the bare ceiling. The first entry
// that does not fit ends the walk; everything older is dropped.
//
// If the system entries alone leave no room, only the first system
// entry is returned (or nothing, when there are none). Fitting an
// already-fitted prompt returns it unchanged.
func (trimmer *Trimmer) Fit(entries []llm.Message, model string, ceiling int) []llm.Message {
	var system, rest []llm.Message
	for _, entry := range entries {
		if entry.Role == llm.RoleSystem {
			system = append(system, entry)
		} else {
			rest = append(rest, entry)
		}
	}

	systemTokens := trimmer.counter.CountMessages(system, model)
	available := ceiling - systemTokens - SafetyBufferTokens
	if available <= 0 {
		trimmer.logger.Warn("system messages alone exceed the token budget",
			"model", model,
			"system_tokens", systemTokens,
			"ceiling", ceiling,
		)
		if len(system) == 0 {
			return []llm.Message{}
		}
		return []llm.Message{system[0]}
	}

	limit := ceiling - SafetyBufferTokens
	running := systemTokens
	kept := 0
	for index := len(rest) - 1; index >= 0; index-- {
		cost := trimmer.counter.CountTokens(rest[index].Content, model) + MessageOverheadTokens
		if running+cost > limit {
			break
		}
		running += cost
		kept++
	}

	result := make([]llm.Message, 0, len(system)+kept)
	result = append(result, system...)
	result = append(result, rest[len(rest)-kept:]...)

	if len(result) < len(entries) {
		trimmer.logger.Info("trimmed conversation to fit token budget",
			"model", model,
			"before", len(entries),
			"after", len(result),
			"tokens", running,
			"ceiling", ceiling,
		)
	}
	return result
}
