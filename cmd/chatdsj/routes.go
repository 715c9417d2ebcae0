// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chatdsj/chatdsj/bot"
	"github.com/chatdsj/chatdsj/lib/completion"
	"github.com/chatdsj/chatdsj/lib/metrics"
	"github.com/chatdsj/chatdsj/lib/service"
	"github.com/chatdsj/chatdsj/lib/version"
)

const (
	// testCompletionPrompt is used when POST /test-completion has no
	// prompt of its own.
	testCompletionPrompt = "Say hello world"

	maxTestRequestSize = 16 * 1024

	healthCheckTimeout = 2 * time.Second
)

func (application *app) newHTTPServer(events http.Handler) *service.HTTPServer {
	return service.NewHTTPServer(service.HTTPServerConfig{
		Address:         application.config.HTTP.Address,
		Handler:         application.routes(events),
		ShutdownTimeout: application.config.HTTP.ShutdownTimeout,
		Logger:          application.logger,
	})
}

// routes builds the public mux. events is the Slack webhook handler,
// or nil when no signing secret is configured.
func (application *app) routes(events http.Handler) http.Handler {
	mux := http.NewServeMux()
	if events != nil {
		mux.Handle("/slack/events", events)
	}
	mux.HandleFunc("GET /healthz", application.handleHealth)
	mux.HandleFunc("GET /stats", application.handleStats)
	if application.config.TestEndpointsEnabled() {
		mux.HandleFunc("POST /test-completion", application.handleTestCompletion)
	}
	return mux
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]bool   `json:"services"`
	Build    map[string]string `json:"build"`
}

// services reports whether each dependency is usable. The memory
// check pings the database.
func (application *app) services(ctx context.Context) map[string]bool {
	memoryReady := false
	if application.store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		memoryReady = application.store.Ping(pingCtx) == nil
		cancel()
	}
	return map[string]bool{
		"slack":  application.botUserID != "",
		"llm":    application.llmReady,
		"memory": memoryReady,
	}
}

// handleHealth always answers 200 while the process is serving; the
// status is "degraded" when any dependency is unavailable.
func (application *app) handleHealth(writer http.ResponseWriter, request *http.Request) {
	services := application.services(request.Context())
	status := "ok"
	for _, available := range services {
		if !available {
			status = "degraded"
		}
	}
	writeJSON(writer, http.StatusOK, healthResponse{
		Status:   status,
		Services: services,
		Build:    version.Fields(),
	})
}

type statsResponse struct {
	UptimeSeconds float64                   `json:"uptime_seconds"`
	Usage         completion.LedgerSnapshot `json:"usage"`
	Metrics       metrics.Summary           `json:"metrics"`
	Channels      []bot.ChannelActivity     `json:"channels"`
	QueuedEvents  int                       `json:"queued_events"`
}

func (application *app) handleStats(writer http.ResponseWriter, request *http.Request) {
	channels := application.stats.Snapshot()
	if channels == nil {
		channels = []bot.ChannelActivity{}
	}
	writeJSON(writer, http.StatusOK, statsResponse{
		UptimeSeconds: application.clock.Now().Sub(application.startedAt).Seconds(),
		Usage:         application.ledger.Snapshot(),
		Metrics:       application.metrics.Summary(),
		Channels:      channels,
		QueuedEvents:  application.dispatcher.Queued(),
	})
}

type testCompletionRequest struct {
	Prompt string `json:"prompt"`
}

type testCompletionResponse struct {
	Status   string            `json:"status"`
	Prompt   string            `json:"prompt"`
	Response string            `json:"response,omitempty"`
	Model    string            `json:"model,omitempty"`
	Attempts int               `json:"attempts,omitempty"`
	Usage    *completion.Usage `json:"usage,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// handleTestCompletion sends one prompt straight to the completion
// client, bypassing Slack. The body is optional JSON {"prompt": "..."}.
func (application *app) handleTestCompletion(writer http.ResponseWriter, request *http.Request) {
	var body testCompletionRequest
	decoder := json.NewDecoder(io.LimitReader(request.Body, maxTestRequestSize))
	if err := decoder.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(writer, http.StatusBadRequest, testCompletionResponse{Status: "error", Error: "invalid JSON body: " + err.Error()})
		return
	}
	prompt := strings.TrimSpace(body.Prompt)
	if prompt == "" {
		prompt = testCompletionPrompt
	}

	result, err := application.completion.Complete(request.Context(), completion.Request{
		Prompt:       prompt,
		MaxRetries:   application.config.LLM.MaxRetries,
		InitialDelay: application.config.LLM.InitialDelay,
	})
	if err != nil {
		application.logger.Warn("test completion failed", "error", err)
		writeJSON(writer, http.StatusBadGateway, testCompletionResponse{
			Status: "error",
			Prompt: prompt,
			Error:  err.Error(),
		})
		return
	}
	writeJSON(writer, http.StatusOK, testCompletionResponse{
		Status:   "success",
		Prompt:   prompt,
		Response: result.Text,
		Model:    result.Model,
		Attempts: result.Attempts,
		Usage:    &result.Usage,
	})
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	encoder.Encode(value)
}
