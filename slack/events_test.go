// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package slack

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/chatdsj/chatdsj/lib/clock"
)

var eventsEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func newTestEventHandler(t *testing.T) (*EventHandler, *[]MentionEvent) {
	t.Helper()
	var received []MentionEvent
	handler := NewEventHandler(EventHandlerConfig{
		SigningSecret: []byte(testSigningSecret),
		OnMention:     func(event MentionEvent) { received = append(received, event) },
		Clock:         clock.Fake(eventsEpoch),
		Logger:        slog.New(slog.DiscardHandler),
	})
	return handler, &received
}

func signedRequest(body string, timestamp time.Time, secret string) *http.Request {
	ts := strconv.FormatInt(timestamp.Unix(), 10)
	request := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-Slack-Request-Timestamp", ts)
	request.Header.Set("X-Slack-Signature",
		Sign([]byte(secret), ts, []byte(body)))
	return request
}

func mentionBody(eventID, text string) string {
	payload := map[string]any{
		"type":     "event_callback",
		"team_id":  "T1",
		"event_id": eventID,
		"event": map[string]any{
			"type":      "app_mention",
			"user":      "U1",
			"text":      text,
			"channel":   "C1",
			"ts":        "300.000100",
			"thread_ts": "299.000100",
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func TestEventHandler_URLVerification(t *testing.T) {
	handler, _ := newTestEventHandler(t)
	body := `{"type":"url_verification","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"}`

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, signedRequest(body, eventsEpoch, testSigningSecret))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var response map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if response["challenge"] != "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P" {
		t.Errorf("challenge = %q", response["challenge"])
	}
}

func TestEventHandler_DispatchesMentionOnce(t *testing.T) {
	handler, received := newTestEventHandler(t)
	body := mentionBody("Ev1", "<@UBOT> hello")

	for range 2 {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, signedRequest(body, eventsEpoch, testSigningSecret))
		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", recorder.Code)
		}
	}

	if len(*received) != 1 {
		t.Fatalf("received %d mentions, want 1", len(*received))
	}
	event := (*received)[0]
	if event.EventID != "Ev1" || event.Channel != "C1" || event.User != "U1" || event.Text != "<@UBOT> hello" {
		t.Errorf("event = %+v", event)
	}
	if !event.InThread() {
		t.Error("InThread() = false for a thread reply")
	}
}

func TestEventHandler_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		request func() *http.Request
		status  int
	}{
		{
			name: "wrong secret",
			request: func() *http.Request {
				return signedRequest(mentionBody("Ev2", "hi"), eventsEpoch, "other-secret")
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "stale timestamp",
			request: func() *http.Request {
				return signedRequest(mentionBody("Ev3", "hi"), eventsEpoch.Add(-6*time.Minute), testSigningSecret)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "future timestamp",
			request: func() *http.Request {
				return signedRequest(mentionBody("Ev4", "hi"), eventsEpoch.Add(6*time.Minute), testSigningSecret)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "tampered body",
			request: func() *http.Request {
				request := signedRequest(mentionBody("Ev5", "hi"), eventsEpoch, testSigningSecret)
				request.Body = io.NopCloser(strings.NewReader(mentionBody("Ev5", "bye")))
				return request
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "missing timestamp",
			request: func() *http.Request {
				request := signedRequest(mentionBody("Ev6", "hi"), eventsEpoch, testSigningSecret)
				request.Header.Del("X-Slack-Request-Timestamp")
				return request
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "wrong method",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/slack/events", nil)
			},
			status: http.StatusMethodNotAllowed,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			handler, received := newTestEventHandler(t)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, test.request())
			if recorder.Code != test.status {
				t.Errorf("status = %d, want %d", recorder.Code, test.status)
			}
			if len(*received) != 0 {
				t.Errorf("rejected request dispatched %d mentions", len(*received))
			}
		})
	}
}

func TestEventHandler_IgnoresBotsAndOtherEvents(t *testing.T) {
	handler, received := newTestEventHandler(t)

	bodies := []string{
		`{"type":"event_callback","event_id":"Ev7","event":{"type":"app_mention","bot_id":"B1","user":"U1","text":"hi","channel":"C1","ts":"1.0"}}`,
		`{"type":"event_callback","event_id":"Ev8","event":{"type":"reaction_added","user":"U1"}}`,
		`{"type":"app_rate_limited"}`,
	}
	for _, body := range bodies {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, signedRequest(body, eventsEpoch, testSigningSecret))
		if recorder.Code != http.StatusOK {
			t.Errorf("status = %d for %s", recorder.Code, body)
		}
	}
	if len(*received) != 0 {
		t.Errorf("dispatched %d mentions, want 0", len(*received))
	}
}

func TestEventHandler_ReactionsToBotMessages(t *testing.T) {
	var reactions []ReactionEvent
	handler := NewEventHandler(EventHandlerConfig{
		SigningSecret: []byte(testSigningSecret),
		OnMention:     func(MentionEvent) {},
		OnReaction:    func(event ReactionEvent) { reactions = append(reactions, event) },
		BotUserID:     "UBOT",
		Clock:         clock.Fake(eventsEpoch),
		Logger:        slog.New(slog.DiscardHandler),
	})

	bodies := []string{
		`{"type":"event_callback","event_id":"Ev9","event":{"type":"reaction_added","user":"U1","reaction":"thumbsup","item_user":"UBOT","item":{"channel":"C1","ts":"5.000100"}}}`,
		`{"type":"event_callback","event_id":"Ev10","event":{"type":"reaction_added","user":"U1","reaction":"eyes","item_user":"U2","item":{"channel":"C1","ts":"6.000100"}}}`,
	}
	for _, body := range bodies {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, signedRequest(body, eventsEpoch, testSigningSecret))
	}

	if len(reactions) != 1 {
		t.Fatalf("received %d reactions, want 1", len(reactions))
	}
	if reactions[0].Reaction != "thumbsup" || reactions[0].Channel != "C1" || reactions[0].MessageTS != "5.000100" {
		t.Errorf("reaction = %+v", reactions[0])
	}
}
