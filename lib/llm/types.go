// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package llm

// Role identifies the author of a message in a completion request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry in a completion request. Messages
// are values: nothing in the bot mutates a Message after building it.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Name optionally identifies the participant for multi-user
	// conversations. Providers that have no such field drop it.
	Name string `json:"name,omitempty"`
}

// SystemMessage returns a system-role message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage returns a user-role message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage returns an assistant-role message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// Request is a single completion request.
type Request struct {
	// Model is the provider model identifier (e.g., "gpt-4o").
	Model string

	// Messages is the full prompt, system entries first.
	Messages []Message

	// MaxTokens caps the length of the generated reply.
	MaxTokens int

	// Temperature is the sampling temperature. Nil leaves the
	// provider default in place.
	Temperature *float64

	// StopSequences are optional strings that end generation.
	StopSequences []string
}

// Response is the result of a completed request.
type Response struct {
	// Model is the model that actually served the request, as
	// reported by the provider.
	Model string

	// Text is the concatenated text of the reply.
	Text string

	// StopReason reports why generation ended.
	StopReason StopReason

	// Usage holds the token counts reported by the provider.
	Usage Usage
}

// Usage holds token counts for one request.
type Usage struct {
	InputTokens  int64
	OutputTokens int64

	// TotalTokens is the provider's own total, zero when the provider
	// reports none. OpenAI's total can exceed input plus output.
	TotalTokens int64
}

// Total returns the provider-reported total when there is one, and
// otherwise the sum of input and output tokens.
func (usage Usage) Total() int64 {
	if usage.TotalTokens > 0 {
		return usage.TotalTokens
	}
	return usage.InputTokens + usage.OutputTokens
}

// StopReason is the provider-normalized reason a reply ended.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
)

// Temperature returns a pointer to t, for use in [Request].
func Temperature(t float64) *float64 {
	return &t
}
