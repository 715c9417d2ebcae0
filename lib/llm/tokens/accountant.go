// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package tokens

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/chatdsj/chatdsj/lib/llm"
)

const (
	// TokensPerMessage is the fixed framing cost of every message in
	// a chat completion request.
	TokensPerMessage = 3

	// TokensPerName is the extra cost of a message carrying a name.
	TokensPerName = 1

	// ReplyPrimingTokens is charged once per request: every reply is
	// primed with the assistant role header.
	ReplyPrimingTokens = 3

	// GeneralEncoding is the encoding used for models tiktoken does
	// not recognize.
	GeneralEncoding = "cl100k_base"
)

// Encoder turns text into a token count.
type Encoder interface {
	Count(text string) int
}

// Resolver returns the encoder registered for a model, or an error if
// the model has none.
type Resolver func(model string) (Encoder, error)

// Config configures an Accountant. The zero value counts with
// tiktoken.
type Config struct {
	// Resolve finds the model-specific encoder. Nil uses tiktoken's
	// model registry.
	Resolve Resolver

	// Fallback counts text for models Resolve rejects. Nil uses the
	// cl100k_base encoding, or CharCounter if that cannot be loaded.
	Fallback Encoder

	// Logger receives fallback warnings. Nil uses slog.Default().
	Logger *slog.Logger
}

// Accountant counts tokens per model. Encoders are resolved once per
// model and cached; an Accountant is safe for concurrent use.
type Accountant struct {
	resolve  Resolver
	fallback Encoder
	logger   *slog.Logger

	mu       sync.Mutex
	encoders map[string]Encoder
}

var loaderOnce sync.Once

// NewAccountant creates an Accountant from config.
func NewAccountant(config Config) *Accountant {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolve := config.Resolve
	if resolve == nil {
		useEmbeddedEncodings()
		resolve = resolveTiktoken
	}

	fallback := config.Fallback
	if fallback == nil {
		useEmbeddedEncodings()
		encoding, err := tiktoken.GetEncoding(GeneralEncoding)
		if err != nil {
			logger.Warn("general-purpose tokenizer unavailable, estimating tokens from characters",
				"encoding", GeneralEncoding, "error", err)
			fallback = CharCounter{}
		} else {
			fallback = tiktokenEncoder{encoding: encoding}
		}
	}

	return &Accountant{
		resolve:  resolve,
		fallback: fallback,
		logger:   logger,
		encoders: make(map[string]Encoder),
	}
}

// CountTokens returns the number of tokens text occupies for model.
// Unknown models are counted with the fallback encoder; a warning is
// logged the first time each unknown model is seen.
func (accountant *Accountant) CountTokens(text, model string) int {
	if text == "" {
		return 0
	}
	return accountant.encoderFor(model).Count(text)
}

// CountMessages returns the prompt cost of messages for model: per
// message a fixed framing cost plus the tokens of every field value
// (role, content, and name when present, which costs one more), plus
// the reply-priming allowance once for the whole sequence.
func (accountant *Accountant) CountMessages(messages []llm.Message, model string) int {
	encoder := accountant.encoderFor(model)
	total := ReplyPrimingTokens
	for _, message := range messages {
		total += TokensPerMessage
		total += encoder.Count(string(message.Role))
		total += encoder.Count(message.Content)
		if message.Name != "" {
			total += encoder.Count(message.Name) + TokensPerName
		}
	}
	return total
}

func (accountant *Accountant) encoderFor(model string) Encoder {
	accountant.mu.Lock()
	defer accountant.mu.Unlock()

	if encoder, ok := accountant.encoders[model]; ok {
		return encoder
	}

	encoder, err := accountant.resolve(model)
	if err != nil {
		accountant.logger.Warn("no tokenizer registered for model, using general-purpose tokenizer",
			"model", model, "error", err)
		encoder = accountant.fallback
	}
	accountant.encoders[model] = encoder
	return encoder
}

// useEmbeddedEncodings points tiktoken at the BPE ranks compiled into
// the binary instead of downloading them on first use.
func useEmbeddedEncodings() {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
}

func resolveTiktoken(model string) (Encoder, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("tokens: resolving encoding for %q: %w", model, err)
	}
	return tiktokenEncoder{encoding: encoding}, nil
}

type tiktokenEncoder struct {
	encoding *tiktoken.Tiktoken
}

func (encoder tiktokenEncoder) Count(text string) int {
	return len(encoder.encoding.Encode(text, nil, nil))
}
