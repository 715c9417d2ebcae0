// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package slack

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/chatdsj/chatdsj/lib/clock"
	"github.com/chatdsj/chatdsj/lib/metrics"
)

const (
	// maxEventBodySize bounds an Events API request. Slack payloads
	// are a few kilobytes.
	maxEventBodySize = 1 << 20

	// DefaultReplayWindow is how far a request timestamp may be from
	// the local clock.
	DefaultReplayWindow = 5 * time.Minute

	// deduplicationWindow is how long event IDs are remembered. Slack
	// retries a delivery three times over roughly five minutes.
	deduplicationWindow = time.Hour
)

// MentionEvent is an app_mention event.
type MentionEvent struct {
	EventID string
	TeamID  string
	Channel string
	User    string
	Text    string

	// TS is the mention message's timestamp; ThreadTS is its thread
	// parent, empty for top-level messages.
	TS       string
	ThreadTS string
}

// InThread reports whether the mention was posted as a thread reply.
func (event MentionEvent) InThread() bool {
	return event.ThreadTS != "" && event.ThreadTS != event.TS
}

// ReactionEvent is a reaction_added event on a message the bot
// posted.
type ReactionEvent struct {
	EventID  string
	Channel  string
	User     string
	Reaction string

	// MessageTS is the timestamp of the bot message that was reacted
	// to.
	MessageTS string
}

// EventHandlerConfig configures an EventHandler.
type EventHandlerConfig struct {
	// SigningSecret is the app's signing secret. Required.
	SigningSecret []byte

	// OnMention receives each new app_mention event. It is called on
	// the request goroutine and must return quickly. Required.
	OnMention func(MentionEvent)

	// OnReaction receives reactions added to the bot's own messages.
	// Optional; requires BotUserID.
	OnReaction func(ReactionEvent)

	// BotUserID identifies the bot's messages for OnReaction.
	BotUserID string

	// ReplayWindow bounds the accepted request timestamp skew. Zero
	// uses DefaultReplayWindow.
	ReplayWindow time.Duration

	Metrics *metrics.Registry
	Clock   clock.Clock
	Logger  *slog.Logger
}

// EventHandler serves the Events API request URL. It is an
// http.Handler.
type EventHandler struct {
	secret       []byte
	onMention    func(MentionEvent)
	onReaction   func(ReactionEvent)
	botUserID    string
	replayWindow time.Duration
	metrics      *metrics.Registry
	clock        clock.Clock
	logger       *slog.Logger

	mu     sync.Mutex
	events map[string]time.Time
}

// NewEventHandler creates an EventHandler. Panics if the signing
// secret or callback is missing.
func NewEventHandler(config EventHandlerConfig) *EventHandler {
	if len(config.SigningSecret) == 0 {
		panic("slack: EventHandler requires a signing secret")
	}
	if config.OnMention == nil {
		panic("slack: EventHandler requires an OnMention callback")
	}
	if config.ReplayWindow <= 0 {
		config.ReplayWindow = DefaultReplayWindow
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &EventHandler{
		secret:       config.SigningSecret,
		onMention:    config.OnMention,
		onReaction:   config.OnReaction,
		botUserID:    config.BotUserID,
		replayWindow: config.ReplayWindow,
		metrics:      config.Metrics,
		clock:        config.Clock,
		logger:       config.Logger,
		events:       make(map[string]time.Time),
	}
}

type eventEnvelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge"`
	TeamID    string          `json:"team_id"`
	EventID   string          `json:"event_id"`
	Event     json.RawMessage `json:"event"`
}

type innerEvent struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype"`
	User     string `json:"user"`
	BotID    string `json:"bot_id"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`

	// reaction_added fields.
	Reaction string `json:"reaction"`
	ItemUser string `json:"item_user"`
	Item     struct {
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	} `json:"item"`
}

// ServeHTTP handles a single Events API request.
func (handler *EventHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(request.Body, maxEventBodySize))
	if err != nil {
		handler.logger.Error("slack events: failed to read body", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	if err := handler.verify(request.Header, body); err != nil {
		handler.logger.Warn("slack events: request rejected",
			"error", err,
			"remote_addr", request.RemoteAddr,
		)
		handler.metrics.CountError("slack_signature")
		http.Error(writer, "", http.StatusUnauthorized)
		return
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		handler.logger.Warn("slack events: malformed payload", "error", err)
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	switch envelope.Type {
	case "url_verification":
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(map[string]string{"challenge": envelope.Challenge})
		return
	case "event_callback":
		handler.dispatch(envelope)
	default:
		handler.logger.Debug("slack events: unhandled envelope type", "type", envelope.Type)
	}
	writer.WriteHeader(http.StatusOK)
}

// verify checks the request timestamp and the v0 signature over
// "v0:<timestamp>:<body>".
func (handler *EventHandler) verify(header http.Header, body []byte) error {
	timestamp := header.Get("X-Slack-Request-Timestamp")
	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid request timestamp %q", timestamp)
	}
	skew := handler.clock.Now().Sub(time.Unix(seconds, 0))
	if skew > handler.replayWindow || skew < -handler.replayWindow {
		return fmt.Errorf("request timestamp is %s from local clock", skew.Round(time.Second))
	}

	return VerifySignature(handler.secret, timestamp, body, header.Get("X-Slack-Signature"))
}

func (handler *EventHandler) dispatch(envelope eventEnvelope) {
	var event innerEvent
	if err := json.Unmarshal(envelope.Event, &event); err != nil {
		handler.logger.Warn("slack events: malformed event", "event_id", envelope.EventID, "error", err)
		return
	}
	switch event.Type {
	case "app_mention":
		if event.BotID != "" || event.User == "" {
			return
		}
	case "reaction_added":
		if handler.onReaction == nil || handler.botUserID == "" || event.ItemUser != handler.botUserID {
			return
		}
	default:
		handler.logger.Debug("slack events: ignoring event", "type", event.Type, "event_id", envelope.EventID)
		return
	}
	if envelope.EventID != "" && handler.isDuplicate(envelope.EventID) {
		handler.logger.Debug("slack events: duplicate delivery, ignoring", "event_id", envelope.EventID)
		return
	}

	if event.Type == "reaction_added" {
		handler.logger.Info("reaction added to bot message",
			"reaction", event.Reaction,
			"channel", event.Item.Channel,
			"message_ts", event.Item.TS,
		)
		handler.onReaction(ReactionEvent{
			EventID:   envelope.EventID,
			Channel:   event.Item.Channel,
			User:      event.User,
			Reaction:  event.Reaction,
			MessageTS: event.Item.TS,
		})
		return
	}

	handler.logger.Info("app mention received",
		"event_id", envelope.EventID,
		"channel", event.Channel,
		"user", event.User,
	)
	handler.onMention(MentionEvent{
		EventID:  envelope.EventID,
		TeamID:   envelope.TeamID,
		Channel:  event.Channel,
		User:     event.User,
		Text:     event.Text,
		TS:       event.TS,
		ThreadTS: event.ThreadTS,
	})
}

// isDuplicate records eventID and reports whether it was already seen
// within the deduplication window.
func (handler *EventHandler) isDuplicate(eventID string) bool {
	handler.mu.Lock()
	defer handler.mu.Unlock()

	now := handler.clock.Now()
	for id, receivedAt := range handler.events {
		if now.Sub(receivedAt) > deduplicationWindow {
			delete(handler.events, id)
		}
	}
	if _, exists := handler.events[eventID]; exists {
		return true
	}
	handler.events[eventID] = now
	return false
}
