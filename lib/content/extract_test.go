// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package content

import "testing"

func TestExtract(t *testing.T) {
	t.Parallel()

	page := `<!doctype html>
<html><head><title>  The   Title </title><style>p { color: red }</style></head>
<body>
<nav><p>Home | About</p></nav>
<h1>Heading</h1>
<p>First   paragraph
with a <b>bold</b> word.</p>
<script>var p = "<p>not text</p>";</script>
<div><p>Second<br>paragraph.</p></div>
<p>   </p>
<footer><p>Copyright</p></footer>
</body></html>`

	document, err := Extract([]byte(page))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if document.Title != "The Title" {
		t.Errorf("Title = %q, want %q", document.Title, "The Title")
	}
	want := "First paragraph with a bold word.\n\nSecond paragraph."
	if document.Text != want {
		t.Errorf("Text = %q, want %q", document.Text, want)
	}
	if got := document.WordCount(); got != 8 {
		t.Errorf("WordCount() = %d, want 8", got)
	}
}

func TestExtract_HeadingTitleFallback(t *testing.T) {
	t.Parallel()

	document, err := Extract([]byte("<html><body><h1>Only <i>heading</i></h1><p>Body.</p></body></html>"))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if document.Title != "Only heading" {
		t.Errorf("Title = %q, want %q", document.Title, "Only heading")
	}
}

func TestExtract_PlainText(t *testing.T) {
	t.Parallel()

	document, err := Extract([]byte("just some\n plain   text"))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if document.Text != "just some plain text" {
		t.Errorf("Text = %q", document.Text)
	}
}

func TestReadingMinutes(t *testing.T) {
	t.Parallel()

	for words, want := range map[int]int{0: 1, 150: 1, 200: 1, 450: 2, 1000: 5} {
		if got := ReadingMinutes(words); got != want {
			t.Errorf("ReadingMinutes(%d) = %d, want %d", words, got, want)
		}
	}
}
