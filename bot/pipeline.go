// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chatdsj/chatdsj/lib/completion"
	"github.com/chatdsj/chatdsj/lib/conversation"
	"github.com/chatdsj/chatdsj/lib/metrics"
	"github.com/chatdsj/chatdsj/lib/mrkdwn"
	"github.com/chatdsj/chatdsj/memory"
	"github.com/chatdsj/chatdsj/slack"
)

const (
	// DefaultMaxHistory caps every history fetch when
	// PipelineConfig.MaxHistory is zero.
	DefaultMaxHistory = 1000

	channelHistoryLimit         = 100
	extendedChannelHistoryLimit = 1000
	threadHistoryLimit          = 1000
)

// FallbackText is posted when the completion client produced nothing.
const FallbackText = "I'm sorry, I couldn't generate a response for that."

// historyKeywords widen the channel history window for top-level
// questions about earlier conversation.
var historyKeywords = []string{"previous", "before", "earlier", "past", "history"}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// Transport fetches history. Required.
	Transport ChatTransport

	// Names resolves author display names. Required.
	Names NameResolver

	// Completer generates replies. Required.
	Completer Completer

	// Memory supplies nicknames and notes for the user context.
	// Optional; without it the display name is used.
	Memory UserMemory

	// BotUserID identifies the bot's own messages in history. Required.
	BotUserID string

	// MaxHistory caps each history fetch. Zero uses DefaultMaxHistory.
	MaxHistory int

	// MaxRetries and InitialDelay are passed through on every
	// completion request. Zero uses the completion client's defaults.
	MaxRetries   int
	InitialDelay time.Duration

	// Metrics receives timings. Optional.
	Metrics *metrics.Registry

	// Logger receives degraded-path warnings. Nil uses slog.Default().
	Logger *slog.Logger
}

// Pipeline produces conversational replies. It is safe for concurrent
// use.
type Pipeline struct {
	transport    ChatTransport
	names        NameResolver
	completer    Completer
	memory       UserMemory
	botUserID    string
	maxHistory   int
	maxRetries   int
	initialDelay time.Duration
	metrics      *metrics.Registry
	logger       *slog.Logger
}

// NewPipeline creates a Pipeline. Panics if a required field is
// missing.
func NewPipeline(config PipelineConfig) *Pipeline {
	if config.Transport == nil {
		panic("bot: NewPipeline requires a ChatTransport")
	}
	if config.Names == nil {
		panic("bot: NewPipeline requires a NameResolver")
	}
	if config.Completer == nil {
		panic("bot: NewPipeline requires a Completer")
	}
	if config.BotUserID == "" {
		panic("bot: NewPipeline requires BotUserID")
	}
	if config.MaxHistory <= 0 {
		config.MaxHistory = DefaultMaxHistory
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Pipeline{
		transport:    config.Transport,
		names:        config.Names,
		completer:    config.Completer,
		memory:       config.Memory,
		botUserID:    config.BotUserID,
		maxHistory:   config.MaxHistory,
		maxRetries:   config.MaxRetries,
		initialDelay: config.InitialDelay,
		metrics:      config.Metrics,
		logger:       config.Logger,
	}
}

// Respond answers prompt, the cleaned text of event. The reply goes to
// the mention's thread, or the top level when the mention was not
// threaded.
//
// History and memory failures degrade to less context and never fail
// the call. When the completion client gives up, or returns an empty
// reply, the reply text is FallbackText and the error is nil. Any
// other completion error is returned.
func (pipeline *Pipeline) Respond(ctx context.Context, event slack.MentionEvent, prompt string) (Reply, error) {
	reply := Reply{Channel: event.Channel, ThreadID: event.ThreadTS}

	messages := pipeline.history(ctx, event, prompt)
	names := pipeline.names.ResolveAll(ctx, conversation.Authors(messages))
	history, skipped := conversation.FormatCounted(messages, names, pipeline.botUserID)
	if skipped > 0 {
		pipeline.logger.Debug("skipped history messages without author or text",
			"channel", event.Channel,
			"skipped", skipped,
		)
	}

	result, err := pipeline.completer.Complete(ctx, completion.Request{
		Prompt:       prompt,
		History:      history,
		UserContext:  pipeline.userContext(ctx, event.User, names),
		MaxRetries:   pipeline.maxRetries,
		InitialDelay: pipeline.initialDelay,
	})
	if err != nil {
		if errors.Is(err, completion.ErrUnavailable) {
			reply.Text = FallbackText
			return reply, nil
		}
		return Reply{}, fmt.Errorf("bot: completing reply: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		pipeline.logger.Warn("completion returned an empty reply",
			"channel", event.Channel,
			"model", result.Model,
		)
		reply.Text = FallbackText
		return reply, nil
	}
	reply.Text = mrkdwn.Render(text)
	return reply, nil
}

// history fetches and merges the context for event. Top-level
// mentions read channel history only, widened when the prompt asks
// about earlier conversation. Thread mentions read recent channel
// history plus the whole thread. The mention itself is dropped since
// the prompt is sent separately.
func (pipeline *Pipeline) history(ctx context.Context, event slack.MentionEvent, prompt string) []conversation.Message {
	defer pipeline.metrics.Track("history_fetch")()

	var channel, thread []conversation.Message
	if event.InThread() {
		channel = pipeline.channelHistory(ctx, event.Channel, channelHistoryLimit)
		thread = pipeline.threadHistory(ctx, event.Channel, event.ThreadTS, threadHistoryLimit)
	} else {
		limit := channelHistoryLimit
		if mentionsHistory(prompt) {
			limit = extendedChannelHistoryLimit
		}
		channel = pipeline.channelHistory(ctx, event.Channel, limit)
	}

	merged := conversation.Merge(channel, thread)
	filtered := merged[:0]
	for _, message := range merged {
		if message.ID != event.TS {
			filtered = append(filtered, message)
		}
	}
	return filtered
}

func (pipeline *Pipeline) channelHistory(ctx context.Context, channel string, limit int) []conversation.Message {
	messages, err := pipeline.transport.ChannelHistory(ctx, channel, min(limit, pipeline.maxHistory))
	if err != nil {
		pipeline.metrics.CountError("history_fetch")
		pipeline.logger.Warn("channel history unavailable, continuing without it",
			"channel", channel,
			"error", err,
		)
		return nil
	}
	return messages
}

func (pipeline *Pipeline) threadHistory(ctx context.Context, channel, threadID string, limit int) []conversation.Message {
	messages, err := pipeline.transport.ThreadHistory(ctx, channel, threadID, min(limit, pipeline.maxHistory))
	if err != nil {
		pipeline.metrics.CountError("history_fetch")
		pipeline.logger.Warn("thread history unavailable, continuing without it",
			"channel", channel,
			"thread", threadID,
			"error", err,
		)
		return nil
	}
	return messages
}

// userContext describes the asking user: their nickname if one is
// stored, otherwise their display name, followed by any notes.
func (pipeline *Pipeline) userContext(ctx context.Context, userID string, names map[string]string) string {
	if userID == "" {
		return ""
	}

	var nickname, notes string
	if pipeline.memory != nil {
		nickname = pipeline.recall(ctx, userID, "nickname", pipeline.memory.Nickname)
		notes = pipeline.recall(ctx, userID, "notes", pipeline.memory.Notes)
	}

	name := nickname
	if name == "" {
		name = names[userID]
	}
	if name == "" {
		name = pipeline.names.Resolve(ctx, userID)
	}

	userContext := "You are talking to " + name + "."
	if notes != "" {
		userContext += " Here is some context about this user: " + notes
	}
	return userContext
}

// recall reads one memory field, treating unknown users and store
// failures as an empty value.
func (pipeline *Pipeline) recall(ctx context.Context, userID, field string, read func(context.Context, string) (string, error)) string {
	value, err := read(ctx, userID)
	if err != nil {
		if !errors.Is(err, memory.ErrNotFound) {
			pipeline.logger.Warn("user memory unavailable",
				"user", userID,
				"field", field,
				"error", err,
			)
		}
		return ""
	}
	return strings.TrimSpace(value)
}

func mentionsHistory(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, keyword := range historyKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
