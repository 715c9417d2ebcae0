// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chatdsj/chatdsj/lib/config"
)

func serve(t *testing.T, application *app, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	application.routes(nil).ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if contentType := recorder.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("decoding %s: %v", recorder.Body.String(), err)
	}
}

func TestHealthAllServicesUp(t *testing.T) {
	t.Parallel()
	application, _ := newTestApp(t, &echoProvider{reply: "hi"}, nil)

	recorder := serve(t, application, http.MethodGet, "/healthz", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var health healthResponse
	decodeBody(t, recorder, &health)
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	for _, name := range []string{"slack", "llm", "memory"} {
		if !health.Services[name] {
			t.Errorf("service %s reported unavailable", name)
		}
	}
	if health.Build["version"] == "" {
		t.Error("build info missing version")
	}
}

func TestHealthDegraded(t *testing.T) {
	t.Parallel()
	application, _ := newTestApp(t, &echoProvider{reply: "hi"}, nil)
	application.store.Close()
	application.store = nil
	application.llmReady = false

	recorder := serve(t, application, http.MethodGet, "/healthz", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when degraded", recorder.Code)
	}
	var health healthResponse
	decodeBody(t, recorder, &health)
	if health.Status != "degraded" {
		t.Errorf("status = %q, want degraded", health.Status)
	}
	if health.Services["memory"] || health.Services["llm"] {
		t.Errorf("services = %v, want memory and llm down", health.Services)
	}
	if !health.Services["slack"] {
		t.Error("slack should still be reported up")
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	application, fake := newTestApp(t, &echoProvider{reply: "hi"}, nil)
	application.stats.Record("C1", "U1", epoch)
	application.stats.Record("C1", "U2", epoch)
	fake.Advance(90 * time.Second)

	recorder := serve(t, application, http.MethodGet, "/stats", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var stats statsResponse
	decodeBody(t, recorder, &stats)
	if stats.UptimeSeconds != 90 {
		t.Errorf("uptime = %v, want 90", stats.UptimeSeconds)
	}
	if len(stats.Channels) != 1 {
		t.Fatalf("channels = %+v, want one", stats.Channels)
	}
	if stats.Channels[0].MessageCount != 2 || stats.Channels[0].UserCount != 2 {
		t.Errorf("channel activity = %+v", stats.Channels[0])
	}
	if stats.Usage.Requests != 0 {
		t.Errorf("requests = %d before any completion", stats.Usage.Requests)
	}
}

func TestStatsEmptyChannelsIsArray(t *testing.T) {
	t.Parallel()
	application, _ := newTestApp(t, &echoProvider{reply: "hi"}, nil)

	recorder := serve(t, application, http.MethodGet, "/stats", "")
	if !strings.Contains(recorder.Body.String(), `"channels": []`) {
		t.Errorf("body should carry an empty channels array: %s", recorder.Body.String())
	}
}

func TestTestCompletionDefaultPrompt(t *testing.T) {
	t.Parallel()
	provider := &echoProvider{reply: "hello world"}
	application, _ := newTestApp(t, provider, nil)

	recorder := serve(t, application, http.MethodPost, "/test-completion", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	var response testCompletionResponse
	decodeBody(t, recorder, &response)
	if response.Status != "success" || response.Response != "hello world" {
		t.Errorf("response = %+v", response)
	}
	if response.Prompt != testCompletionPrompt {
		t.Errorf("prompt = %q, want %q", response.Prompt, testCompletionPrompt)
	}
	if response.Model != "gpt-4o" || response.Attempts != 1 {
		t.Errorf("model = %q attempts = %d", response.Model, response.Attempts)
	}
	if response.Usage == nil || response.Usage.PromptTokens != 12 || response.Usage.CompletionTokens != 3 {
		t.Errorf("usage = %+v", response.Usage)
	}
	if snapshot := application.ledger.Snapshot(); snapshot.Successes != 1 {
		t.Errorf("ledger successes = %d, want 1", snapshot.Successes)
	}
}

func TestTestCompletionCustomPrompt(t *testing.T) {
	t.Parallel()
	application, _ := newTestApp(t, &echoProvider{reply: "4"}, nil)

	recorder := serve(t, application, http.MethodPost, "/test-completion", `{"prompt": "  what is 2+2?  "}`)
	var response testCompletionResponse
	decodeBody(t, recorder, &response)
	if response.Prompt != "what is 2+2?" {
		t.Errorf("prompt = %q, want the trimmed request prompt", response.Prompt)
	}
}

func TestTestCompletionInvalidJSON(t *testing.T) {
	t.Parallel()
	provider := &echoProvider{reply: "hi"}
	application, _ := newTestApp(t, provider, nil)

	recorder := serve(t, application, http.MethodPost, "/test-completion", `{"prompt":`)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times for a bad request", provider.calls)
	}
}

func TestTestCompletionProviderFailure(t *testing.T) {
	t.Parallel()
	application, _ := newTestApp(t, &echoProvider{err: errors.New("connection refused")}, nil)

	recorder := serve(t, application, http.MethodPost, "/test-completion", "")
	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", recorder.Code)
	}
	var response testCompletionResponse
	decodeBody(t, recorder, &response)
	if response.Status != "error" || response.Error == "" {
		t.Errorf("response = %+v", response)
	}
	if snapshot := application.ledger.Snapshot(); snapshot.Failures != 1 {
		t.Errorf("ledger failures = %d, want 1", snapshot.Failures)
	}
}

func TestTestCompletionDisabledInProduction(t *testing.T) {
	t.Parallel()
	application, _ := newTestApp(t, &echoProvider{reply: "hi"}, func(cfg *config.Config) {
		cfg.Environment = config.Production
	})

	recorder := serve(t, application, http.MethodPost, "/test-completion", "")
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", recorder.Code)
	}
}

func TestSlackEventsNotMountedWithoutHandler(t *testing.T) {
	t.Parallel()
	application, _ := newTestApp(t, &echoProvider{reply: "hi"}, nil)

	recorder := serve(t, application, http.MethodPost, "/slack/events", "{}")
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", recorder.Code)
	}
}

func TestSlackEventsMounted(t *testing.T) {
	t.Parallel()
	application, _ := newTestApp(t, &echoProvider{reply: "hi"}, nil)
	events := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusAccepted)
	})

	request := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader("{}"))
	recorder := httptest.NewRecorder()
	application.routes(events).ServeHTTP(recorder, request)
	if recorder.Code != http.StatusAccepted {
		t.Errorf("status = %d, want the events handler's 202", recorder.Code)
	}
}
