// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package mrkdwn

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{name: "empty", markdown: "   \n", want: ""},
		{name: "plain", markdown: "hello there", want: "hello there"},
		{name: "emphasis", markdown: "Hello **world** and _you_", want: "Hello *world* and _you_"},
		{name: "strikethrough", markdown: "~~gone~~ now", want: "~gone~ now"},
		{name: "code span", markdown: "run `go test`", want: "run `go test`"},
		{name: "heading", markdown: "# Title\n\nBody text", want: "*Title*\n\nBody text"},
		{name: "soft break", markdown: "line one\nline two", want: "line one\nline two"},
		{name: "paragraphs", markdown: "first\n\nsecond", want: "first\n\nsecond"},
		{name: "link", markdown: "see [Go](https://go.dev)", want: "see <https://go.dev|Go>"},
		{name: "autolink", markdown: "visit https://go.dev today", want: "visit <https://go.dev> today"},
		{name: "bullets", markdown: "- one\n- two", want: "• one\n• two"},
		{name: "ordered", markdown: "1. a\n2. b", want: "1. a\n2. b"},
		{name: "nested", markdown: "- a\n  - b", want: "• a\n  • b"},
		{name: "blockquote", markdown: "> quoted", want: "> quoted"},
		{name: "escaping", markdown: "a < b & c > d", want: "a &lt; b &amp; c &gt; d"},
		{
			name:     "fenced code drops language",
			markdown: "```go\nfmt.Println(1)\n```",
			want:     "```\nfmt.Println(1)\n```",
		},
		{
			name:     "mentions preserved",
			markdown: "Thanks <@U123ABC>, see <#C42|general> <!here>",
			want:     "Thanks <@U123ABC>, see <#C42|general> <!here>",
		},
		{
			name:     "slack link preserved",
			markdown: "read <https://example.com/a|the doc>",
			want:     "read <https://example.com/a|the doc>",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := Render(test.markdown); got != test.want {
				t.Errorf("Render(%q) = %q, want %q", test.markdown, got, test.want)
			}
		})
	}
}

func TestRender_Table(t *testing.T) {
	t.Parallel()

	got := Render("| a | b |\n|---|---|\n| 1 | 22 |")
	want := "```\na | b\n--+---\n1 | 22\n```"
	if got != want {
		t.Errorf("Render(table) = %q, want %q", got, want)
	}
}

func TestRender_TaskList(t *testing.T) {
	t.Parallel()

	got := Render("- [x] done\n- [ ] open")
	if !strings.Contains(got, "☑") || !strings.Contains(got, "☐") {
		t.Errorf("Render(task list) = %q, want check boxes", got)
	}
}

func TestRender_MentionInsideEmphasis(t *testing.T) {
	t.Parallel()

	got := Render("**hey <@U1>**")
	if got != "*hey <@U1>*" {
		t.Errorf("Render() = %q, want %q", got, "*hey <@U1>*")
	}
}
