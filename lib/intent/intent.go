// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies a recognized command.
type Kind int

const (
	// None means the prompt is an ordinary question.
	None Kind = iota
	// SetNickname asks the bot to use a different name for the author.
	SetNickname
	// AddTodo records a todo item for the author.
	AddTodo
	// ListTodos lists the author's open todo items.
	ListTodos
	// CompleteTodo marks one of the author's todo items done.
	CompleteTodo
	// Summarize fetches and summarizes a linked page.
	Summarize
	// DeleteTodo removes one of the author's todo items.
	DeleteTodo
	// RememberNote adds a fact to what the bot knows about the author.
	RememberNote
	// ForgetNotes clears everything the bot knows about the author.
	ForgetNotes
)

var kindNames = [...]string{
	None:         "none",
	SetNickname:  "set_nickname",
	AddTodo:      "add_todo",
	ListTodos:    "list_todos",
	CompleteTodo: "complete_todo",
	Summarize:    "summarize",
	DeleteTodo:   "delete_todo",
	RememberNote: "remember_note",
	ForgetNotes:  "forget_notes",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Intent is the result of classifying a prompt. Only the fields that
// belong to Kind are set.
type Intent struct {
	Kind Kind

	// Nickname is empty for a SetNickname intent whose name could not
	// be parsed; the caller asks the user to rephrase.
	Nickname string

	TodoText string

	// TodoIndex is the 1-based position in the listing the user saw.
	TodoIndex int

	URL string

	Note string
}

var (
	nicknamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:call\s+me|my\s+name\s+is|i\s+am|i'm)\s+([A-Za-z0-9_\-]+)`),
		regexp.MustCompile(`(?i)name[:\s]+([A-Za-z0-9_\-]+)`),
		regexp.MustCompile(`(?i)nickname[:\s]+([A-Za-z0-9_\-]+)`),
	}

	todoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)todo:?\s+(.+)$`),
		regexp.MustCompile(`(?im)remember\s+to\s+(.+)$`),
		regexp.MustCompile(`(?im)don't\s+forget\s+to\s+(.+)$`),
		regexp.MustCompile(`(?im)note\s+to\s+self:?\s+(.+)$`),
	}

	nicknameTrigger = regexp.MustCompile(`(?i)\b(?:call\s+me|my\s+name\s+is|nickname)\b`)
	listTodos       = regexp.MustCompile(`(?i)^\s*(?:(?:list|show)\s+(?:my\s+)?todos?|my\s+todos?|todos?)\s*[?.!]*\s*$`)
	completeTodo    = regexp.MustCompile(`(?i)^\s*(?:done|complete|finish(?:ed)?)\s+(?:todo\s+)?#?(\d+)\s*$`)
	deleteTodo      = regexp.MustCompile(`(?i)^\s*(?:delete|remove)\s+(?:todo\s+)?#?(\d+)\s*$`)
	todoLead        = regexp.MustCompile(`(?i)^\s*(?:todo\b|remember\s+to\b|don't\s+forget\s+to\b|note\s+to\s+self\b)`)
	rememberNote    = regexp.MustCompile(`(?is)^\s*(?:remember\s+that|note\s+that|about\s+me:)\s+(.+?)\s*$`)
	forgetNotes     = regexp.MustCompile(`(?i)^\s*forget\s+(?:(?:everything|what)\s+you\s+know\s+)?about\s+me\s*[.!]*\s*$`)
	summarize       = regexp.MustCompile(`(?is)\b(?:summarize|summarise|tl;?dr)\b.*?<?(https?://[^\s|>]+)`)
)

// ExtractNickname returns the first nickname matched by the nickname
// patterns, tried in order.
func ExtractNickname(text string) (string, bool) {
	for _, pattern := range nicknamePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1]), true
		}
	}
	return "", false
}

// ExtractTodo returns the todo text matched by the todo patterns,
// tried in order. Patterns are anchored to the end of a line.
func ExtractTodo(text string) (string, bool) {
	for _, pattern := range todoPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			todo := strings.TrimSpace(match[1])
			if todo != "" {
				return todo, true
			}
		}
	}
	return "", false
}

// Classify recognizes the command in an already cleaned prompt (bot
// mention removed). Checks run from most to least specific: explicit
// todo list, completion, and deletion commands, user notes, nickname
// changes, summaries, then todo capture. Nickname and todo capture only fire on a trigger
// phrase, so ordinary questions that mention a name or a todo fall
// through to None.
func Classify(prompt string) Intent {
	text := strings.TrimSpace(prompt)
	if text == "" {
		return Intent{Kind: None}
	}

	if listTodos.MatchString(text) {
		return Intent{Kind: ListTodos}
	}
	if match := completeTodo.FindStringSubmatch(text); match != nil {
		index, err := strconv.Atoi(match[1])
		if err == nil && index > 0 {
			return Intent{Kind: CompleteTodo, TodoIndex: index}
		}
	}
	if match := deleteTodo.FindStringSubmatch(text); match != nil {
		index, err := strconv.Atoi(match[1])
		if err == nil && index > 0 {
			return Intent{Kind: DeleteTodo, TodoIndex: index}
		}
	}

	if forgetNotes.MatchString(text) {
		return Intent{Kind: ForgetNotes}
	}
	if match := rememberNote.FindStringSubmatch(text); match != nil {
		return Intent{Kind: RememberNote, Note: match[1]}
	}

	if nicknameTrigger.MatchString(text) {
		nickname, _ := ExtractNickname(text)
		return Intent{Kind: SetNickname, Nickname: nickname}
	}

	if match := summarize.FindStringSubmatch(text); match != nil {
		return Intent{Kind: Summarize, URL: match[1]}
	}

	if todoLead.MatchString(text) {
		if todo, ok := ExtractTodo(text); ok {
			return Intent{Kind: AddTodo, TodoText: todo}
		}
	}

	return Intent{Kind: None}
}
