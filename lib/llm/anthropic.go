// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"net/http"
	"strings"
)

const (
	// DefaultAnthropicBaseURL is the public Anthropic API root.
	DefaultAnthropicBaseURL = "https://api.anthropic.com"

	// anthropicVersion is the Messages API version header value.
	anthropicVersion = "2023-06-01"

	// anthropicDefaultMaxTokens is used when a request carries no cap,
	// since the Messages API requires max_tokens.
	anthropicDefaultMaxTokens = 1024
)

// Anthropic implements [Provider] for the Anthropic Messages API.
type Anthropic struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewAnthropic creates an Anthropic provider. An empty baseURL selects
// [DefaultAnthropicBaseURL].
func NewAnthropic(httpClient *http.Client, baseURL, apiKey string) *Anthropic {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultAnthropicBaseURL
	}
	return &Anthropic{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Complete sends a request and returns the full response.
func (provider *Anthropic) Complete(ctx context.Context, request Request) (*Response, error) {
	headers := map[string]string{"anthropic-version": anthropicVersion}
	if provider.apiKey != "" {
		headers["x-api-key"] = provider.apiKey
	}

	httpResponse, err := doProviderRequest(ctx, provider.httpClient,
		provider.endpoint(), provider.buildRequest(request), "llm/anthropic", headers)
	if err != nil {
		return nil, err
	}

	return decodeResponse[anthropicResponse](httpResponse, "llm/anthropic")
}

func (provider *Anthropic) endpoint() string {
	return provider.baseURL + "/v1/messages"
}

// buildRequest converts our types to the Anthropic wire format. The
// Messages API takes the system prompt as a top-level field and
// requires the conversation to alternate user/assistant starting with
// a user turn, so system entries are hoisted and consecutive
// same-role entries are joined.
func (provider *Anthropic) buildRequest(request Request) anthropicRequest {
	wireRequest := anthropicRequest{
		Model:         request.Model,
		MaxTokens:     request.MaxTokens,
		Temperature:   request.Temperature,
		StopSequences: request.StopSequences,
	}
	if wireRequest.MaxTokens <= 0 {
		wireRequest.MaxTokens = anthropicDefaultMaxTokens
	}

	var system []string
	for _, message := range request.Messages {
		if message.Role == RoleSystem {
			system = append(system, message.Content)
			continue
		}

		role := string(message.Role)
		count := len(wireRequest.Messages)
		if count > 0 && wireRequest.Messages[count-1].Role == role {
			wireRequest.Messages[count-1].Content[0].Text += "\n\n" + message.Content
			continue
		}
		if count == 0 && message.Role == RoleAssistant {
			wireRequest.Messages = append(wireRequest.Messages, anthropicMessage{
				Role:    string(RoleUser),
				Content: []anthropicContentBlock{{Type: "text", Text: "(conversation continues)"}},
			})
		}
		wireRequest.Messages = append(wireRequest.Messages, anthropicMessage{
			Role:    role,
			Content: []anthropicContentBlock{{Type: "text", Text: message.Content}},
		})
	}
	wireRequest.System = strings.Join(system, "\n\n")

	return wireRequest
}

type anthropicRequest struct {
	Model         string             `json:"model"`
	MaxTokens     int                `json:"max_tokens"`
	System        string             `json:"system,omitempty"`
	Messages      []anthropicMessage `json:"messages"`
	Temperature   *float64           `json:"temperature,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      anthropicUsage          `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func (wireResponse *anthropicResponse) toResponse() *Response {
	response := &Response{
		StopReason: mapAnthropicStopReason(wireResponse.StopReason),
		Model:      wireResponse.Model,
		Usage: Usage{
			InputTokens:  wireResponse.Usage.InputTokens,
			OutputTokens: wireResponse.Usage.OutputTokens,
		},
	}
	var text strings.Builder
	for _, block := range wireResponse.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	response.Text = text.String()
	return response
}

func mapAnthropicStopReason(reason string) StopReason {
	switch reason {
	case "end_turn":
		return StopReasonEndTurn
	case "max_tokens":
		return StopReasonMaxTokens
	case "stop_sequence":
		return StopReasonStopSequence
	default:
		return StopReason(reason)
	}
}
