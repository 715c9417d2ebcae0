// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package context

import "strings"

// modelRegistry maps model identifiers to their context window sizes
// in tokens. Dated snapshots ("claude-3-haiku-20240307",
// "gpt-4o-2024-08-06") resolve through the longest registered prefix.
var modelRegistry = map[string]int{
	// OpenAI.
	"gpt-4o":            128_000,
	"gpt-4o-mini":       128_000,
	"gpt-4-turbo":       128_000,
	"gpt-4":             8_192,
	"gpt-4-32k":         32_768,
	"gpt-3.5-turbo":     16_385,
	"gpt-3.5-turbo-16k": 16_385,
	"o1":                200_000,
	"o3-mini":           200_000,

	// Anthropic Claude.
	"claude-3-opus":     200_000,
	"claude-3-sonnet":   200_000,
	"claude-3-haiku":    200_000,
	"claude-3-5-sonnet": 200_000,
	"claude-3-5-haiku":  200_000,
}

// defaultContextWindow is used when a model is not in the registry.
// The configuration can always set an explicit window instead.
const defaultContextWindow = 128_000

// ContextWindowForModel returns the context window size in tokens for
// model, matching exact names first and then the longest registered
// prefix. Returns 128k for unknown models.
func ContextWindowForModel(model string) int {
	if window, found := modelRegistry[model]; found {
		return window
	}
	bestLength, bestWindow := 0, defaultContextWindow
	for name, window := range modelRegistry {
		if strings.HasPrefix(model, name) && len(name) > bestLength {
			bestLength, bestWindow = len(name), window
		}
	}
	return bestWindow
}

// Budget configures the token limits of a completion request.
type Budget struct {
	// ContextWindow is the model's total context window in tokens.
	// Zero means look the model up with ContextWindowForModel.
	ContextWindow int

	// ReservedOutputTokens is the reply length cap, subtracted from
	// the context window to leave room for the completion.
	ReservedOutputTokens int
}

// PromptCeiling returns the token ceiling for the prompt of a request
// to model. Never negative.
func (budget Budget) PromptCeiling(model string) int {
	window := budget.ContextWindow
	if window <= 0 {
		window = ContextWindowForModel(model)
	}
	ceiling := window - budget.ReservedOutputTokens
	if ceiling < 0 {
		return 0
	}
	return ceiling
}
