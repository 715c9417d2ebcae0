// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chatdsj/chatdsj/lib/clock"
	"github.com/chatdsj/chatdsj/lib/content"
	"github.com/chatdsj/chatdsj/memory"
	"github.com/chatdsj/chatdsj/slack"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type handlerFixture struct {
	handler   *Handler
	poster    *fakePoster
	completer *fakeCompleter
	store     *memory.Store
	stats     *ChannelStats
}

func newHandlerFixture(t *testing.T, configure func(*HandlerConfig)) *handlerFixture {
	t.Helper()
	fake := clock.Fake(epoch)
	store, err := memory.Open(context.Background(), memory.Config{
		Path:   filepath.Join(t.TempDir(), "memory.db"),
		Clock:  fake,
		Logger: quietLogger,
	})
	if err != nil {
		t.Fatalf("memory.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fixture := &handlerFixture{
		poster:    &fakePoster{},
		completer: &fakeCompleter{text: "Sure thing."},
		store:     store,
		stats:     NewChannelStats(),
	}
	pipeline := newTestPipeline(t, &fakeTransport{}, fixture.completer, func(config *PipelineConfig) {
		config.Memory = store
	})
	config := HandlerConfig{
		Poster:    fixture.poster,
		Pipeline:  pipeline,
		Memory:    store,
		Todos:     store,
		Stats:     fixture.stats,
		BotUserID: botUserID,
		Clock:     fake,
		Logger:    quietLogger,
	}
	if configure != nil {
		configure(&config)
	}
	fixture.handler = NewHandler(config)
	return fixture
}

// mention sends text to the bot as U1 and returns the reply text.
func (fixture *handlerFixture) mention(t *testing.T, text string) string {
	t.Helper()
	event := topLevelMention(text)
	if err := fixture.handler.HandleMention(context.Background(), event); err != nil {
		t.Fatalf("HandleMention(%q): %v", text, err)
	}
	posted := fixture.poster.posted()
	if len(posted) == 0 {
		t.Fatalf("HandleMention(%q) posted nothing", text)
	}
	return posted[len(posted)-1].Text
}

func TestHandleMentionConversation(t *testing.T) {
	t.Parallel()
	fixture := newHandlerFixture(t, nil)

	event := slack.MentionEvent{
		EventID:  "Ev9",
		Channel:  "C1",
		User:     "U1",
		Text:     "<@UBOT> how do I deploy?",
		TS:       "1700000009.000000",
		ThreadTS: "1700000001.000000",
	}
	if err := fixture.handler.HandleMention(context.Background(), event); err != nil {
		t.Fatalf("HandleMention: %v", err)
	}

	if len(fixture.poster.ephemeral) != 1 {
		t.Fatalf("ephemeral messages = %d, want 1", len(fixture.poster.ephemeral))
	}
	ack := fixture.poster.ephemeral[0]
	if ack.Text != AcknowledgementText || ack.User != "U1" || ack.Channel != "C1" {
		t.Errorf("acknowledgement = %+v", ack)
	}

	posted := fixture.poster.posted()
	if len(posted) != 1 {
		t.Fatalf("posted %d messages, want 1", len(posted))
	}
	if posted[0].Text != "Sure thing." || posted[0].ThreadTS != "1700000001.000000" {
		t.Errorf("reply = %+v", posted[0])
	}
	if got := fixture.completer.lastRequest().Prompt; got != "how do I deploy?" {
		t.Errorf("prompt = %q, want mention stripped", got)
	}

	activity, ok := fixture.stats.Channel("C1")
	if !ok || activity.MessageCount != 1 || activity.UserMessageCounts["U1"] != 1 || !activity.LastActivity.Equal(epoch) {
		t.Errorf("channel stats = %+v", activity)
	}
}

func TestHandleMentionNickname(t *testing.T) {
	t.Parallel()
	fixture := newHandlerFixture(t, nil)
	ctx := context.Background()

	if got := fixture.mention(t, "please call me Ziggy"); got != "Got it! I'll call you Ziggy from now on." {
		t.Errorf("reply = %q", got)
	}
	nickname, err := fixture.store.Nickname(ctx, "U1")
	if err != nil || nickname != "Ziggy" {
		t.Errorf("stored nickname = %q, %v", nickname, err)
	}

	if got := fixture.mention(t, "call me"); got != nicknameUnparsedText {
		t.Errorf("unparsed reply = %q", got)
	}

	fixture.mention(t, "hello")
	if got := fixture.completer.lastRequest().UserContext; got != "You are talking to Ziggy." {
		t.Errorf("user context after nickname = %q", got)
	}
	if len(fixture.completer.requests) != 1 {
		t.Errorf("completion requests = %d, want only the plain question", len(fixture.completer.requests))
	}
}

func TestHandleMentionNicknameStoreFailure(t *testing.T) {
	t.Parallel()
	failing := newFakeMemory()
	failing.err = errors.New("database is locked")
	fixture := newHandlerFixture(t, func(config *HandlerConfig) {
		config.Memory = failing
	})

	if got := fixture.mention(t, "my name is Sam"); got != nicknameFailedText {
		t.Errorf("reply = %q, want %q", got, nicknameFailedText)
	}
}

func TestHandleMentionNotes(t *testing.T) {
	t.Parallel()
	fixture := newHandlerFixture(t, nil)
	ctx := context.Background()

	if got := fixture.mention(t, "remember that I work on the payments team"); got != noteSavedText {
		t.Errorf("reply = %q", got)
	}
	if got := fixture.mention(t, "note that I prefer  short answers"); got != noteSavedText {
		t.Errorf("reply = %q", got)
	}
	notes, err := fixture.store.Notes(ctx, "U1")
	want := "- I work on the payments team\n- I prefer short answers"
	if err != nil || notes != want {
		t.Errorf("stored notes = %q, %v; want %q", notes, err, want)
	}
	if len(fixture.completer.requests) != 0 {
		t.Errorf("note commands reached the model %d times", len(fixture.completer.requests))
	}

	fixture.mention(t, "what should I work on today?")
	userContext := fixture.completer.lastRequest().UserContext
	if !strings.Contains(userContext, "Here is some context about this user: "+want) {
		t.Errorf("user context = %q, want stored notes", userContext)
	}

	if got := fixture.mention(t, "forget about me"); got != notesClearedText {
		t.Errorf("forget reply = %q", got)
	}
	if _, err := fixture.store.Notes(ctx, "U1"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("Notes after forget error = %v, want ErrNotFound", err)
	}
	fixture.mention(t, "hello again")
	if got := fixture.completer.lastRequest().UserContext; strings.Contains(got, "context about this user") {
		t.Errorf("user context after forget = %q", got)
	}
}

func TestHandleMentionNotesKeepNewest(t *testing.T) {
	t.Parallel()
	notes := newFakeMemory()
	fixture := newHandlerFixture(t, func(config *HandlerConfig) {
		config.Memory = notes
	})

	for index := range maxNoteLines + 2 {
		fixture.mention(t, fmt.Sprintf("remember that fact %d", index))
	}
	lines := strings.Split(notes.notes["U1"], "\n")
	if len(lines) != maxNoteLines {
		t.Fatalf("kept %d note lines, want %d", len(lines), maxNoteLines)
	}
	if lines[0] != "- fact 2" || lines[len(lines)-1] != fmt.Sprintf("- fact %d", maxNoteLines+1) {
		t.Errorf("kept notes from %q to %q", lines[0], lines[len(lines)-1])
	}

	notes.err = errors.New("database is locked")
	if got := fixture.mention(t, "remember that it failed"); got != notesFailedText {
		t.Errorf("reply with failing store = %q", got)
	}
}

func TestHandleMentionTodos(t *testing.T) {
	t.Parallel()
	fixture := newHandlerFixture(t, nil)

	if got := fixture.mention(t, "todo: water the plants"); got != "Added todo: water the plants" {
		t.Errorf("add reply = %q", got)
	}
	if got := fixture.mention(t, "remember to file taxes priority: high due 2026-04-15"); got != "Added todo: file taxes" {
		t.Errorf("add with options reply = %q", got)
	}
	if got := fixture.mention(t, "todo: call mom"); got != "Added todo: call mom" {
		t.Errorf("add reply = %q", got)
	}

	want := "Here are your pending todos:\n" +
		"1. water the plants\n" +
		"2. file taxes (high priority) (due 2026-04-15)\n" +
		"3. call mom"
	if got := fixture.mention(t, "list todos"); got != want {
		t.Errorf("list reply =\n%s\nwant\n%s", got, want)
	}

	if got := fixture.mention(t, "done 1"); got != "Completed todo 1: water the plants" {
		t.Errorf("complete reply = %q", got)
	}
	// Numbering follows the pending list, which no longer includes the
	// completed item.
	if got := fixture.mention(t, "delete todo 2"); got != "Deleted todo 2: call mom" {
		t.Errorf("delete reply = %q", got)
	}
	if got := fixture.mention(t, "complete 5"); !strings.HasPrefix(got, "I couldn't find todo 5.") {
		t.Errorf("out of range reply = %q", got)
	}
	if got := fixture.mention(t, "my todos"); got != "Here are your pending todos:\n1. file taxes (high priority) (due 2026-04-15)" {
		t.Errorf("final list = %q", got)
	}

	if len(fixture.completer.requests) != 0 {
		t.Errorf("todo commands reached the completion client %d times", len(fixture.completer.requests))
	}
}

func TestHandleMentionTodosEmpty(t *testing.T) {
	t.Parallel()
	fixture := newHandlerFixture(t, nil)

	if got := fixture.mention(t, "show my todos"); got != "You don't have any pending todos" {
		t.Errorf("reply = %q", got)
	}
}

func TestHandleMentionTodosWithoutStore(t *testing.T) {
	t.Parallel()
	fixture := newHandlerFixture(t, func(config *HandlerConfig) {
		config.Todos = nil
	})

	for _, prompt := range []string{"todo: anything", "list todos", "done 1"} {
		if got := fixture.mention(t, prompt); got != todoFailedText {
			t.Errorf("%q reply = %q, want %q", prompt, got, todoFailedText)
		}
	}
}

func TestHandleMentionSummarize(t *testing.T) {
	t.Parallel()
	summarizer := &fakeSummarizer{summary: &content.Summary{
		URL:            "https://example.com/post",
		Title:          "A Post",
		Text:           "It is **short**.",
		WordCount:      420,
		ReadingMinutes: 2,
	}}
	fixture := newHandlerFixture(t, func(config *HandlerConfig) {
		config.Summarizer = summarizer
	})

	want := "*A Post*\n<https://example.com/post>\n\nIt is *short*.\n\n_2 min read_"
	if got := fixture.mention(t, "summarize https://example.com/post"); got != want {
		t.Errorf("reply =\n%q\nwant\n%q", got, want)
	}

	summarizer.summary = nil
	summarizer.err = content.ErrNoContent
	if got := fixture.mention(t, "tldr https://example.com/empty"); got != "I couldn't find any readable text at https://example.com/empty." {
		t.Errorf("no content reply = %q", got)
	}
}

func TestHandleMentionSummarizeWithoutSummarizer(t *testing.T) {
	t.Parallel()
	fixture := newHandlerFixture(t, nil)

	if got := fixture.mention(t, "summarize https://example.com/post"); got != "Sure thing." {
		t.Errorf("reply = %q, want the conversational answer", got)
	}
}

func TestHandleMentionErrorReply(t *testing.T) {
	t.Parallel()
	fixture := newHandlerFixture(t, nil)
	fixture.completer.err = errors.New("unexpected")

	if err := fixture.handler.HandleMention(context.Background(), topLevelMention("hi")); err != nil {
		t.Fatalf("HandleMention: %v", err)
	}
	posted := fixture.poster.posted()
	if len(posted) != 1 {
		t.Fatalf("posted %d messages, want 1", len(posted))
	}
	if posted[0].Text != ErrorText || posted[0].ThreadTS != "1700000003.000000" {
		t.Errorf("error reply = %+v, want ErrorText threaded on the mention", posted[0])
	}
}

func TestHandleMentionPostFailure(t *testing.T) {
	t.Parallel()
	fixture := newHandlerFixture(t, nil)
	fixture.poster.postErr = errors.New("slack: chat.postMessage: channel_not_found")

	if err := fixture.handler.HandleMention(context.Background(), topLevelMention("hi")); err == nil {
		t.Fatal("HandleMention succeeded, want post error")
	}
	if _, ok := fixture.stats.Channel("C1"); ok {
		t.Error("stats recorded a reply that was never posted")
	}
}

func TestHandleReaction(t *testing.T) {
	t.Parallel()
	fixture := newHandlerFixture(t, nil)

	fixture.handler.HandleReaction(context.Background(), slack.ReactionEvent{
		Channel: "C1", User: "U2", Reaction: "thumbsup", MessageTS: "1700000100.000100",
	})
	activity, ok := fixture.stats.Channel("C1")
	if !ok || activity.Reactions["thumbsup"] != 1 || activity.MessageCount != 0 {
		t.Errorf("channel stats = %+v", activity)
	}
}

func TestParseTodoOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		text     string
		priority memory.Priority
		due      string
	}{
		{"water plants", "water plants", memory.PriorityMedium, ""},
		{"ship it priority: low", "ship it", memory.PriorityLow, ""},
		{"ship it (priority HIGH)", "ship it", memory.PriorityHigh, ""},
		{"report due on 2026-05-01", "report", memory.PriorityMedium, "2026-05-01"},
		{"report due 2026-13-45", "report due 2026-13-45", memory.PriorityMedium, ""},
	}
	for _, test := range tests {
		text, priority, due := parseTodoOptions(test.input)
		gotDue := ""
		if !due.IsZero() {
			gotDue = due.Format(time.DateOnly)
		}
		if text != test.text || priority != test.priority || gotDue != test.due {
			t.Errorf("parseTodoOptions(%q) = %q, %q, %q; want %q, %q, %q",
				test.input, text, priority, gotDue, test.text, test.priority, test.due)
		}
	}
}
