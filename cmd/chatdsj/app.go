// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatdsj/chatdsj/bot"
	"github.com/chatdsj/chatdsj/lib/clock"
	"github.com/chatdsj/chatdsj/lib/completion"
	"github.com/chatdsj/chatdsj/lib/config"
	"github.com/chatdsj/chatdsj/lib/content"
	"github.com/chatdsj/chatdsj/lib/identity"
	"github.com/chatdsj/chatdsj/lib/llm"
	"github.com/chatdsj/chatdsj/lib/llm/tokens"
	"github.com/chatdsj/chatdsj/lib/metrics"
	"github.com/chatdsj/chatdsj/lib/version"
	"github.com/chatdsj/chatdsj/memory"
	"github.com/chatdsj/chatdsj/slack"
)

// app holds the wired components of a running bot.
type app struct {
	config *config.Config
	clock  clock.Clock
	logger *slog.Logger

	metrics    *metrics.Registry
	ledger     *completion.Ledger
	slack      *slack.Client
	completion *completion.Client
	llmReady   bool

	// store is nil when the database could not be opened.
	store *memory.Store

	stats      *bot.ChannelStats
	handler    *bot.Handler
	dispatcher *bot.Dispatcher

	botUserID string
	startedAt time.Time
}

// newApp wires every component from cfg. Only failures that make the
// bot useless are returned: an unusable Slack token, or a Slack client
// that cannot be built.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	realClock := clock.Real()
	registry := metrics.NewRegistry(realClock, logger)

	slackClient, err := slack.NewClient(slack.Config{
		Token:             cfg.Slack.BotToken,
		BaseURL:           cfg.Slack.BaseURL,
		RequestsPerSecond: cfg.Slack.RequestsPerSecond,
		Burst:             cfg.Slack.Burst,
		Metrics:           registry,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}

	botUserID := cfg.Slack.BotUserID
	if botUserID == "" {
		auth, err := slackClient.AuthTest(ctx)
		if err != nil {
			return nil, fmt.Errorf("discovering bot user ID (set slack.bot_user_id to skip): %w", err)
		}
		botUserID = auth.UserID
		logger.Info("slack identity discovered",
			"bot_user_id", auth.UserID,
			"team", auth.Team,
		)
	}

	prices := completion.DefaultPrices()
	if cfg.LLM.PriceTable != "" {
		prices, err = completion.LoadPriceTable(cfg.LLM.PriceTable)
		if err != nil {
			return nil, err
		}
	}

	ledger := completion.NewLedger(realClock)
	completionClient := completion.NewClient(completion.Config{
		Provider:          newProvider(cfg.LLM),
		Counter:           tokens.NewAccountant(tokens.Config{Logger: logger}),
		Ledger:            ledger,
		Prices:            prices,
		Metrics:           registry,
		Logger:            logger,
		Model:             cfg.LLM.Model,
		SystemPrompt:      cfg.LLM.SystemPrompt,
		MaxResponseTokens: cfg.LLM.MaxTokensResponse,
		Temperature:       cfg.LLM.Temperature,
		ContextWindow:     cfg.LLM.ContextWindow,
		AttemptTimeout:    cfg.LLM.AttemptTimeout,
	})

	store, err := memory.Open(ctx, memory.Config{
		Path:     cfg.Memory.Path,
		PoolSize: cfg.Memory.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("user memory unavailable, nicknames, todos, and summary caching are disabled",
			"path", cfg.Memory.Path,
			"error", err,
		)
	}

	application := &app{
		config:     cfg,
		clock:      realClock,
		logger:     logger,
		metrics:    registry,
		ledger:     ledger,
		slack:      slackClient,
		completion: completionClient,
		llmReady:   cfg.LLM.OpenAI.APIKey != "" || cfg.LLM.Anthropic.APIKey != "",
		store:      store,
		stats:      bot.NewChannelStats(),
		botUserID:  botUserID,
		startedAt:  realClock.Now(),
	}
	application.wireBot(slackClient)
	return application, nil
}

// wireBot builds the mention pipeline on top of the app's clients.
// Interface-typed fields are only set from a non-nil store.
func (application *app) wireBot(slackClient *slack.Client) {
	cfg := application.config

	pipelineConfig := bot.PipelineConfig{
		Transport: slackClient,
		Names: identity.NewResolver(identity.Config{
			Lookup: slackClient,
			Logger: application.logger,
		}),
		Completer:    application.completion,
		BotUserID:    application.botUserID,
		MaxHistory:   cfg.History.MaxMessages,
		MaxRetries:   cfg.LLM.MaxRetries,
		InitialDelay: cfg.LLM.InitialDelay,
		Metrics:      application.metrics,
		Logger:       application.logger,
	}
	summarizerConfig := content.SummarizerConfig{
		Fetcher:   &content.Fetcher{UserAgent: "ChatDSJ/" + version.Version},
		Completer: application.completion,
		Metrics:   application.metrics,
		Clock:     application.clock,
		Logger:    application.logger,
	}
	handlerConfig := bot.HandlerConfig{
		Poster:    slackClient,
		Stats:     application.stats,
		BotUserID: application.botUserID,
		Metrics:   application.metrics,
		Clock:     application.clock,
		Logger:    application.logger,
	}
	if application.store != nil {
		pipelineConfig.Memory = application.store
		summarizerConfig.Cache = application.store
		handlerConfig.Memory = application.store
		handlerConfig.Todos = application.store
	}

	handlerConfig.Pipeline = bot.NewPipeline(pipelineConfig)
	handlerConfig.Summarizer = content.NewSummarizer(summarizerConfig)
	application.handler = bot.NewHandler(handlerConfig)
	application.dispatcher = bot.NewDispatcher(bot.DispatcherConfig{
		Workers:      cfg.Dispatcher.Workers,
		EventTimeout: cfg.Dispatcher.EventTimeout,
		Metrics:      application.metrics,
		Logger:       application.logger,
	})
}

// newProvider routes claude-* models to Anthropic and everything else
// to OpenAI, unless only an Anthropic key is configured.
func newProvider(cfg config.LLMConfig) llm.Provider {
	httpClient := &http.Client{Timeout: cfg.AttemptTimeout + 5*time.Second}
	openai := llm.NewOpenAI(httpClient, cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey)
	anthropic := llm.NewAnthropic(httpClient, cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey)

	var fallback llm.Provider = openai
	if cfg.OpenAI.APIKey == "" && cfg.Anthropic.APIKey != "" {
		fallback = anthropic
	}
	return llm.NewRouter(fallback).
		Route("claude-", anthropic).
		Route("gpt-", openai)
}

// Serve runs the HTTP listener, the admin socket, and the mention
// dispatcher until ctx is cancelled, then drains them in that order.
func (application *app) Serve(ctx context.Context) error {
	// Mentions outlive the signal: they are drained, not cancelled.
	application.dispatcher.Start(context.WithoutCancel(ctx))

	var events http.Handler
	if application.config.Slack.SigningSecret != "" {
		events = slack.NewEventHandler(slack.EventHandlerConfig{
			SigningSecret: []byte(application.config.Slack.SigningSecret),
			OnMention:     application.onMention,
			OnReaction:    application.onReaction,
			BotUserID:     application.botUserID,
			ReplayWindow:  application.config.Slack.ReplayWindow,
			Metrics:       application.metrics,
			Logger:        application.logger,
		})
	} else {
		application.logger.Warn("slack.signing_secret is not set, /slack/events is disabled")
	}

	httpServer := application.newHTTPServer(events)
	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.Serve(ctx)
	}()

	socketDone := make(chan error, 1)
	if socketPath := application.config.Admin.SocketPath; socketPath != "" {
		socketServer := application.newSocketServer(socketPath)
		go func() {
			socketDone <- socketServer.Serve(ctx)
		}()
	} else {
		close(socketDone)
	}

	select {
	case <-httpServer.Ready():
		application.logger.Info("chatdsj running",
			"version", version.Info(),
			"environment", application.config.Environment,
			"address", httpServer.Addr().String(),
			"bot_user_id", application.botUserID,
			"model", application.completion.Model(),
			"memory", application.store != nil,
		)
	case err := <-httpDone:
		return err
	}

	<-ctx.Done()
	application.logger.Info("shutting down")

	var serveErr error
	if err := <-httpDone; err != nil {
		application.logger.Error("http server error", "error", err)
		serveErr = err
	}
	if err := <-socketDone; err != nil {
		application.logger.Error("admin socket error", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), application.config.Dispatcher.EventTimeout)
	defer cancel()
	if err := application.dispatcher.Shutdown(drainCtx); err != nil {
		application.logger.Error("abandoning unfinished mentions", "error", err)
	}
	return serveErr
}

func (application *app) onMention(event slack.MentionEvent) {
	accepted := application.dispatcher.Submit("mention "+event.EventID, func(ctx context.Context) {
		if err := application.handler.HandleMention(ctx, event); err != nil {
			application.logger.Error("mention not answered",
				"event_id", event.EventID,
				"channel", event.Channel,
				"error", err,
			)
		}
	})
	if !accepted {
		application.logger.Warn("mention dropped", "event_id", event.EventID, "channel", event.Channel)
	}
}

func (application *app) onReaction(event slack.ReactionEvent) {
	application.handler.HandleReaction(context.Background(), event)
}

// Close releases the database.
func (application *app) Close() {
	if application.store != nil {
		if err := application.store.Close(); err != nil {
			application.logger.Error("closing user memory", "error", err)
		}
	}
}
