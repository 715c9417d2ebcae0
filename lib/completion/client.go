// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package completion turns a prompt and its conversation history into
// a reply from a remote completion API.
//
// [Client.Complete] builds the system prompt, fits the request into
// the model's token budget, and calls the provider with bounded
// retries and exponential backoff. Usage and estimated cost of every
// request accumulate in an injected [Ledger].
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatdsj/chatdsj/lib/clock"
	"github.com/chatdsj/chatdsj/lib/llm"
	llmcontext "github.com/chatdsj/chatdsj/lib/llm/context"
	"github.com/chatdsj/chatdsj/lib/metrics"
)

const (
	// DefaultMaxRetries is the number of remote attempts per request.
	DefaultMaxRetries = 3

	// DefaultInitialDelay is the backoff before the second attempt.
	// Each later backoff doubles.
	DefaultInitialDelay = time.Second

	// DefaultAttemptTimeout bounds each remote call.
	DefaultAttemptTimeout = 30 * time.Second

	// DefaultMaxResponseTokens caps the reply length.
	DefaultMaxResponseTokens = 1500

	// DefaultTemperature is the sampling temperature.
	DefaultTemperature = 0.7
)

// ErrUnavailable is returned by Complete when no reply could be
// obtained. Every terminal failure wraps it; callers substitute a
// fallback reply when errors.Is(err, ErrUnavailable).
var ErrUnavailable = errors.New("completion: no response available")

// Config configures a Client.
type Config struct {
	// Provider issues the remote calls. Required.
	Provider llm.Provider

	// Counter measures prompt cost for budget trimming. Required.
	Counter llmcontext.Counter

	// Ledger accumulates usage. Required.
	Ledger *Ledger

	// Prices estimates cost. Nil uses DefaultPrices().
	Prices PriceTable

	// Metrics receives timings and call counts. Optional.
	Metrics *metrics.Registry

	// Clock drives backoff sleeps. Nil uses clock.Real().
	Clock clock.Clock

	// Logger receives attempt and failure logs. Nil uses slog.Default().
	Logger *slog.Logger

	// Model is the provider model identifier. Required.
	Model string

	// SystemPrompt is the base instruction every request starts with.
	SystemPrompt string

	// MaxResponseTokens caps the reply and is reserved out of the
	// context window. Zero uses DefaultMaxResponseTokens.
	MaxResponseTokens int

	// Temperature is the sampling temperature, sent as given.
	Temperature float64

	// ContextWindow is the model's window in tokens. Zero looks the
	// model up in the context-window registry.
	ContextWindow int

	// AttemptTimeout bounds each remote call. Zero uses
	// DefaultAttemptTimeout.
	AttemptTimeout time.Duration
}

// Request is one logical completion request.
type Request struct {
	// Prompt is the user's current question.
	Prompt string

	// History is the formatted conversation preceding the prompt,
	// oldest first.
	History []llm.Message

	// UserContext describes who is asking. Appended to the system
	// prompt when non-empty.
	UserContext string

	// LinkedContext is reference material relevant to the prompt.
	// Appended to the system prompt when non-empty.
	LinkedContext string

	// MaxRetries is the number of remote attempts. Zero uses
	// DefaultMaxRetries.
	MaxRetries int

	// InitialDelay is the first backoff. Zero uses
	// DefaultInitialDelay.
	InitialDelay time.Duration
}

// Result is a successful completion.
type Result struct {
	Text     string
	Usage    Usage
	Model    string
	Attempts int

	// PromptMessages is the number of messages sent after trimming.
	PromptMessages int
}

// Client issues completion requests. It is safe for concurrent use;
// the only state shared between calls is the Ledger and Metrics.
type Client struct {
	provider llm.Provider
	trimmer  *llmcontext.Trimmer
	ledger   *Ledger
	prices   PriceTable
	metrics  *metrics.Registry
	clock    clock.Clock
	logger   *slog.Logger

	model          string
	systemPrompt   string
	maxTokens      int
	temperature    float64
	budget         llmcontext.Budget
	attemptTimeout time.Duration
}

// NewClient creates a Client. Panics if a required field is missing.
func NewClient(config Config) *Client {
	if config.Provider == nil || config.Counter == nil || config.Ledger == nil {
		panic("completion: NewClient requires Provider, Counter, and Ledger")
	}
	if config.Model == "" {
		panic("completion: NewClient requires a Model")
	}
	if config.Prices == nil {
		config.Prices = DefaultPrices()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxResponseTokens <= 0 {
		config.MaxResponseTokens = DefaultMaxResponseTokens
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = DefaultAttemptTimeout
	}

	return &Client{
		provider: config.Provider,
		trimmer:  llmcontext.NewTrimmer(config.Counter, config.Logger),
		ledger:   config.Ledger,
		prices:   config.Prices,
		metrics:  config.Metrics,
		clock:    config.Clock,
		logger:   config.Logger,

		model:        config.Model,
		systemPrompt: config.SystemPrompt,
		maxTokens:    config.MaxResponseTokens,
		temperature:  config.Temperature,
		budget: llmcontext.Budget{
			ContextWindow:        config.ContextWindow,
			ReservedOutputTokens: config.MaxResponseTokens,
		},
		attemptTimeout: config.AttemptTimeout,
	}
}

// Model returns the model the client requests.
func (client *Client) Model() string {
	return client.model
}

// SystemPrompt returns the full system prompt for the given contexts:
// the base prompt, then "User context: ..." and "Relevant
// information: ..." paragraphs for whichever are non-empty.
func (client *Client) SystemPrompt(userContext, linkedContext string) string {
	prompt := client.systemPrompt
	if userContext != "" {
		prompt += "\n\nUser context: " + userContext
	}
	if linkedContext != "" {
		prompt += "\n\nRelevant information: " + linkedContext
	}
	return prompt
}

// Complete runs one logical request through the retry state machine.
//
// At most MaxRetries remote calls are made, separated by backoff
// sleeps of InitialDelay, 2*InitialDelay, 4*InitialDelay, and so on.
// Provider errors are all treated as retryable. When every attempt
// fails, or ctx ends first, the ledger records one failed request and
// the returned error wraps ErrUnavailable together with the cause.
func (client *Client) Complete(ctx context.Context, request Request) (*Result, error) {
	defer client.metrics.Track("llm_completion")()

	run := &requestRun{
		request:      request,
		maxAttempts:  request.MaxRetries,
		initialDelay: request.InitialDelay,
		state:        statePreparing,
	}
	if run.maxAttempts <= 0 {
		run.maxAttempts = DefaultMaxRetries
	}
	if run.initialDelay <= 0 {
		run.initialDelay = DefaultInitialDelay
	}

	for !run.state.terminal() {
		previous := run.state
		switch run.state {
		case statePreparing:
			client.prepare(run)
		case stateAttempting:
			client.attempt(ctx, run)
		case stateBackingOff:
			client.backOff(ctx, run)
		}
		client.logger.Debug("completion state transition",
			"from", previous,
			"to", run.state,
			"attempt", run.attempt,
		)
	}

	if run.state == stateFailed {
		client.ledger.RecordFailure()
		client.metrics.CountError("llm_completion")
		client.logger.Error("completion failed",
			"model", client.model,
			"attempts", run.attempt,
			"error", run.lastErr,
		)
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrUnavailable, run.attempt, run.lastErr)
	}
	return run.result, nil
}

// prepare builds and trims the prompt. PREPARING -> ATTEMPTING.
func (client *Client) prepare(run *requestRun) {
	messages := make([]llm.Message, 0, len(run.request.History)+2)
	messages = append(messages, llm.SystemMessage(client.SystemPrompt(run.request.UserContext, run.request.LinkedContext)))
	messages = append(messages, run.request.History...)
	messages = append(messages, llm.UserMessage(run.request.Prompt))

	run.messages = client.trimmer.Fit(messages, client.model, client.budget.PromptCeiling(client.model))
	client.ledger.BeginRequest()
	run.state = stateAttempting
}

// attempt issues one remote call. ATTEMPTING -> SUCCEEDED, or
// BACKING_OFF / FAILED on error.
// failureKind labels a failed attempt for logs and error metrics. The
// label never changes whether the attempt is retried.
func failureKind(err error) string {
	var providerError *llm.ProviderError
	switch {
	case errors.As(err, &providerError) && providerError.IsRateLimited():
		return "rate_limited"
	case providerError != nil && providerError.IsServerError():
		return "server_error"
	case providerError != nil:
		return "client_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}

func (client *Client) attempt(ctx context.Context, run *requestRun) {
	run.attempt++
	client.ledger.RecordAttempt()
	client.metrics.CountAPICall("llm_api")
	client.logger.Debug("sending completion request",
		"model", client.model,
		"attempt", run.attempt,
		"max_attempts", run.maxAttempts,
		"messages", len(run.messages),
	)

	attemptCtx, cancel := context.WithTimeout(ctx, client.attemptTimeout)
	response, err := client.provider.Complete(attemptCtx, llm.Request{
		Model:       client.model,
		Messages:    run.messages,
		MaxTokens:   client.maxTokens,
		Temperature: llm.Temperature(client.temperature),
	})
	cancel()

	if err != nil {
		kind := failureKind(err)
		client.ledger.RecordAttemptFailure()
		client.metrics.CountError("llm_api")
		client.metrics.CountError("llm_api_" + kind)
		client.logger.Warn("completion attempt failed",
			"model", client.model,
			"attempt", run.attempt,
			"max_attempts", run.maxAttempts,
			"kind", kind,
			"error", err,
		)
		run.lastErr = err
		switch {
		case ctx.Err() != nil:
			run.lastErr = ctx.Err()
			run.state = stateFailed
		case run.attempt >= run.maxAttempts:
			run.state = stateFailed
		default:
			run.state = stateBackingOff
		}
		return
	}

	usage := Usage{
		PromptTokens:     response.Usage.InputTokens,
		CompletionTokens: response.Usage.OutputTokens,
		TotalTokens:      response.Usage.Total(),
	}
	usage.CostUSD = client.prices.Cost(client.model, usage.PromptTokens, usage.CompletionTokens)
	client.ledger.RecordSuccess(client.model, usage)

	client.logger.Debug("completion received",
		"model", response.Model,
		"characters", len(response.Text),
		"total_tokens", usage.TotalTokens,
		"cost_usd", usage.CostUSD,
	)

	run.result = &Result{
		Text:           response.Text,
		Usage:          usage,
		Model:          response.Model,
		Attempts:       run.attempt,
		PromptMessages: len(run.messages),
	}
	run.state = stateSucceeded
}

// backOff sleeps before the next attempt. BACKING_OFF -> ATTEMPTING,
// or FAILED if ctx ends during the sleep.
func (client *Client) backOff(ctx context.Context, run *requestRun) {
	delay := run.initialDelay << (run.attempt - 1)
	client.logger.Info("retrying completion",
		"attempt", run.attempt+1,
		"delay", delay,
	)
	if err := clock.Sleep(ctx, client.clock, delay); err != nil {
		run.lastErr = err
		run.state = stateFailed
		return
	}
	run.state = stateAttempting
}
