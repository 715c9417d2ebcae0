// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chatdsj/chatdsj/lib/clock"
	"github.com/chatdsj/chatdsj/lib/content"
	"github.com/chatdsj/chatdsj/lib/intent"
	"github.com/chatdsj/chatdsj/lib/metrics"
	"github.com/chatdsj/chatdsj/lib/mrkdwn"
	"github.com/chatdsj/chatdsj/memory"
	"github.com/chatdsj/chatdsj/slack"
)

// Fixed user-facing replies.
const (
	AcknowledgementText = "I heard you! I'm working on a response... 🧠"
	ErrorText           = "I encountered an error while processing your request. Please try again later."

	nicknameUnparsedText = "I couldn't understand what nickname you'd like to use. Please try again with something like 'call me John'."
	nicknameFailedText   = "Sorry, I couldn't save your nickname. Please try again later."
	todoUnparsedText     = "I couldn't understand your todo request. Try 'add todo: [task]', 'list todos', 'complete todo [number]', or 'delete todo [number]'."
	todoFailedText       = "Sorry, I couldn't reach your todo list. Please try again later."
	noteSavedText        = "Got it! I'll keep that in mind when I answer you."
	notesClearedText     = "Done. I've forgotten what you told me about yourself."
	notesFailedText      = "Sorry, I couldn't update what I know about you. Please try again later."
)

// maxNoteLines bounds the notes kept per user; the oldest go first.
const maxNoteLines = 20

var (
	todoPriority = regexp.MustCompile(`(?i)\s*\(?\bpriority:?\s+(low|medium|high)\b\)?`)
	todoDueDate  = regexp.MustCompile(`(?i)\s*\(?\bdue(?:\s+on)?:?\s+(\d{4}-\d{2}-\d{2})\b\)?`)
)

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Poster delivers acknowledgements and replies. Required.
	Poster Poster

	// Pipeline answers ordinary questions. Required.
	Pipeline *Pipeline

	// Memory stores nicknames and notes. Optional; without it nickname
	// and note commands report a failure.
	Memory UserMemory

	// Todos stores todo items. Optional; without it todo commands
	// report a failure.
	Todos TodoList

	// Summarizer handles "summarize <url>". Optional; without it such
	// prompts go to the pipeline.
	Summarizer Summarizer

	// Stats receives channel activity. Optional.
	Stats *ChannelStats

	// BotUserID is stripped from prompts. Required.
	BotUserID string

	// Metrics receives timings and error counts. Optional.
	Metrics *metrics.Registry

	// Clock timestamps channel activity. Nil uses clock.Real().
	Clock clock.Clock

	// Logger receives handling logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// Handler processes Slack events for the bot.
type Handler struct {
	poster     Poster
	pipeline   *Pipeline
	memory     UserMemory
	todos      TodoList
	summarizer Summarizer
	stats      *ChannelStats
	botUserID  string
	metrics    *metrics.Registry
	clock      clock.Clock
	logger     *slog.Logger
}

// NewHandler creates a Handler. Panics if a required field is missing.
func NewHandler(config HandlerConfig) *Handler {
	if config.Poster == nil {
		panic("bot: NewHandler requires a Poster")
	}
	if config.Pipeline == nil {
		panic("bot: NewHandler requires a Pipeline")
	}
	if config.BotUserID == "" {
		panic("bot: NewHandler requires BotUserID")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Handler{
		poster:     config.Poster,
		pipeline:   config.Pipeline,
		memory:     config.Memory,
		todos:      config.Todos,
		summarizer: config.Summarizer,
		stats:      config.Stats,
		botUserID:  config.BotUserID,
		metrics:    config.Metrics,
		clock:      config.Clock,
		logger:     config.Logger,
	}
}

// HandleMention answers one app_mention event. The user gets an
// ephemeral acknowledgement first, then exactly one reply: the command
// result, the conversational answer, or ErrorText if producing either
// failed. The returned error reports only a failure to post the reply.
func (handler *Handler) HandleMention(ctx context.Context, event slack.MentionEvent) error {
	defer handler.metrics.Track("process_mention")()

	logger := handler.logger.With(
		"event_id", event.EventID,
		"channel", event.Channel,
		"user", event.User,
	)
	prompt := slack.CleanPromptText(event.Text, handler.botUserID)
	handler.acknowledge(ctx, event, logger)

	parsed := intent.Classify(prompt)
	logger.Info("handling mention",
		"intent", parsed.Kind,
		"in_thread", event.InThread(),
	)

	reply, err := handler.route(ctx, event, prompt, parsed)
	if err != nil {
		handler.metrics.CountError("process_mention")
		logger.Error("mention handling failed", "intent", parsed.Kind, "error", err)
		threadID := event.ThreadTS
		if threadID == "" {
			threadID = event.TS
		}
		reply = Reply{Channel: event.Channel, ThreadID: threadID, Text: ErrorText}
	}

	if _, err := handler.poster.PostMessage(ctx, slack.OutgoingMessage{
		Channel:  reply.Channel,
		Text:     reply.Text,
		ThreadTS: reply.ThreadID,
	}); err != nil {
		handler.metrics.CountError("post_reply")
		return fmt.Errorf("bot: posting reply in %s: %w", event.Channel, err)
	}

	handler.stats.Record(event.Channel, event.User, handler.clock.Now())
	return nil
}

// HandleReaction records a reaction to one of the bot's messages.
func (handler *Handler) HandleReaction(ctx context.Context, event slack.ReactionEvent) {
	handler.logger.Info("reaction to bot message",
		"channel", event.Channel,
		"user", event.User,
		"reaction", event.Reaction,
		"message_ts", event.MessageTS,
	)
	handler.stats.RecordReaction(event.Channel, event.Reaction, handler.clock.Now())
}

// acknowledge tells the user their mention is being worked on. A
// failure is logged and otherwise ignored.
func (handler *Handler) acknowledge(ctx context.Context, event slack.MentionEvent, logger *slog.Logger) {
	if event.User == "" {
		return
	}
	err := handler.poster.PostEphemeral(ctx, slack.OutgoingMessage{
		Channel:  event.Channel,
		User:     event.User,
		Text:     AcknowledgementText,
		ThreadTS: event.ThreadTS,
	})
	if err != nil {
		logger.Warn("acknowledgement not delivered", "error", err)
	}
}

func (handler *Handler) route(ctx context.Context, event slack.MentionEvent, prompt string, parsed intent.Intent) (Reply, error) {
	reply := Reply{Channel: event.Channel, ThreadID: event.ThreadTS}

	switch parsed.Kind {
	case intent.SetNickname:
		reply.Text = handler.setNickname(ctx, event.User, parsed.Nickname)
		return reply, nil
	case intent.RememberNote:
		reply.Text = handler.rememberNote(ctx, event.User, parsed.Note)
		return reply, nil
	case intent.ForgetNotes:
		reply.Text = handler.forgetNotes(ctx, event.User)
		return reply, nil
	case intent.AddTodo:
		reply.Text = handler.addTodo(ctx, event.User, parsed.TodoText)
		return reply, nil
	case intent.ListTodos:
		reply.Text = handler.listTodos(ctx, event.User)
		return reply, nil
	case intent.CompleteTodo, intent.DeleteTodo:
		reply.Text = handler.changeTodo(ctx, event.User, parsed.Kind, parsed.TodoIndex)
		return reply, nil
	case intent.Summarize:
		if handler.summarizer != nil {
			reply.Text = handler.summarize(ctx, parsed.URL)
			return reply, nil
		}
	}
	return handler.pipeline.Respond(ctx, event, prompt)
}

func (handler *Handler) setNickname(ctx context.Context, userID, nickname string) string {
	if nickname == "" {
		return nicknameUnparsedText
	}
	if handler.memory == nil {
		return nicknameFailedText
	}
	if err := handler.memory.SetNickname(ctx, userID, nickname); err != nil {
		handler.metrics.CountError("user_memory")
		handler.logger.Error("saving nickname failed", "user", userID, "error", err)
		return nicknameFailedText
	}
	return "Got it! I'll call you " + nickname + " from now on."
}

// rememberNote appends note to the user's notes as a bullet line. The
// notes are sent with every answer to that user.
func (handler *Handler) rememberNote(ctx context.Context, userID, note string) string {
	note = strings.Join(strings.Fields(note), " ")
	if handler.memory == nil || note == "" {
		return notesFailedText
	}
	existing, err := handler.memory.Notes(ctx, userID)
	if err != nil && !errors.Is(err, memory.ErrNotFound) {
		handler.metrics.CountError("user_memory")
		handler.logger.Error("reading notes failed", "user", userID, "error", err)
		return notesFailedText
	}

	var lines []string
	if existing != "" {
		lines = strings.Split(existing, "\n")
	}
	lines = append(lines, "- "+note)
	if len(lines) > maxNoteLines {
		lines = lines[len(lines)-maxNoteLines:]
	}
	if err := handler.memory.SetNotes(ctx, userID, strings.Join(lines, "\n")); err != nil {
		handler.metrics.CountError("user_memory")
		handler.logger.Error("saving notes failed", "user", userID, "error", err)
		return notesFailedText
	}
	return noteSavedText
}

func (handler *Handler) forgetNotes(ctx context.Context, userID string) string {
	if handler.memory == nil {
		return notesFailedText
	}
	if err := handler.memory.SetNotes(ctx, userID, ""); err != nil {
		handler.metrics.CountError("user_memory")
		handler.logger.Error("clearing notes failed", "user", userID, "error", err)
		return notesFailedText
	}
	return notesClearedText
}

func (handler *Handler) addTodo(ctx context.Context, userID, text string) string {
	text, priority, due := parseTodoOptions(text)
	if text == "" {
		return todoUnparsedText
	}
	if handler.todos == nil {
		return todoFailedText
	}
	if _, err := handler.todos.AddTodo(ctx, userID, text, priority, due); err != nil {
		handler.metrics.CountError("user_memory")
		handler.logger.Error("adding todo failed", "user", userID, "error", err)
		return todoFailedText
	}
	return "Added todo: " + text
}

func (handler *Handler) listTodos(ctx context.Context, userID string) string {
	todos, err := handler.openTodos(ctx, userID)
	if err != nil {
		return todoFailedText
	}
	if len(todos) == 0 {
		return "You don't have any pending todos"
	}

	var builder strings.Builder
	builder.WriteString("Here are your pending todos:")
	for index, todo := range todos {
		builder.WriteString("\n")
		builder.WriteString(strconv.Itoa(index + 1))
		builder.WriteString(". ")
		builder.WriteString(todo.Text)
		if todo.Priority != "" && todo.Priority != memory.PriorityMedium {
			builder.WriteString(" (" + string(todo.Priority) + " priority)")
		}
		if !todo.DueDate.IsZero() {
			builder.WriteString(" (due " + todo.DueDate.Format(time.DateOnly) + ")")
		}
	}
	return builder.String()
}

// changeTodo completes or deletes the todo at the 1-based position the
// user saw in their last listing of pending todos.
func (handler *Handler) changeTodo(ctx context.Context, userID string, kind intent.Kind, index int) string {
	todos, err := handler.openTodos(ctx, userID)
	if err != nil {
		return todoFailedText
	}
	if index < 1 || index > len(todos) {
		return fmt.Sprintf("I couldn't find todo %d. Say 'list todos' to see your pending todos.", index)
	}
	todo := todos[index-1]

	verb := "Completed"
	change := handler.todos.CompleteTodo
	if kind == intent.DeleteTodo {
		verb = "Deleted"
		change = handler.todos.DeleteTodo
	}
	if err := change(ctx, userID, todo.ID); err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return fmt.Sprintf("I couldn't find todo %d. Say 'list todos' to see your pending todos.", index)
		}
		handler.metrics.CountError("user_memory")
		handler.logger.Error("changing todo failed", "user", userID, "todo", todo.ID, "error", err)
		return todoFailedText
	}
	return fmt.Sprintf("%s todo %d: %s", verb, index, todo.Text)
}

func (handler *Handler) openTodos(ctx context.Context, userID string) ([]memory.Todo, error) {
	if handler.todos == nil {
		return nil, errors.New("bot: no todo store configured")
	}
	open := false
	todos, err := handler.todos.Todos(ctx, userID, &open)
	if err != nil {
		handler.metrics.CountError("user_memory")
		handler.logger.Error("listing todos failed", "user", userID, "error", err)
		return nil, err
	}
	return todos, nil
}

func (handler *Handler) summarize(ctx context.Context, rawURL string) string {
	summary, err := handler.summarizer.Summarize(ctx, rawURL)
	if err != nil {
		handler.logger.Warn("summarizing link failed", "url", rawURL, "error", err)
		if errors.Is(err, content.ErrNoContent) {
			return "I couldn't find any readable text at " + rawURL + "."
		}
		return "I couldn't fetch " + rawURL + ". Please check the link and try again."
	}

	var builder strings.Builder
	if summary.Title != "" {
		builder.WriteString("*" + summary.Title + "*\n")
	}
	builder.WriteString("<" + summary.URL + ">\n\n")
	builder.WriteString(mrkdwn.Render(summary.Text))
	fmt.Fprintf(&builder, "\n\n_%d min read_", summary.ReadingMinutes)
	return builder.String()
}

// parseTodoOptions pulls "priority: high" and "due 2026-03-01" out of
// a todo's text.
func parseTodoOptions(text string) (string, memory.Priority, time.Time) {
	priority := memory.PriorityMedium
	if match := todoPriority.FindStringSubmatch(text); match != nil {
		priority = memory.Priority(strings.ToLower(match[1]))
		text = todoPriority.ReplaceAllString(text, "")
	}

	var due time.Time
	if match := todoDueDate.FindStringSubmatch(text); match != nil {
		if parsed, err := time.Parse(time.DateOnly, match[1]); err == nil {
			due = parsed
			text = todoDueDate.ReplaceAllString(text, "")
		}
	}
	return strings.TrimSpace(text), priority, due
}
