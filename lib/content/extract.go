// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the readable part of a page.
type Document struct {
	Title string

	// Text is the page's paragraph text, one paragraph per block,
	// separated by blank lines, with whitespace collapsed inside each.
	Text string
}

// WordCount returns the number of whitespace-separated words in Text.
func (document Document) WordCount() int {
	return len(strings.Fields(document.Text))
}

// Extract pulls the title and paragraph text out of an HTML page.
// The title comes from <title>, or the first <h1> when that is
// missing. Text comes from <p> elements, skipping anything inside
// script, style, noscript, nav, header, footer, or aside elements.
// Plain-text input (no markup at all) is returned as a single
// paragraph.
func Extract(page []byte) (Document, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return Document{}, fmt.Errorf("content: parsing HTML: %w", err)
	}

	extractor := &extractor{}
	extractor.walk(root, false)

	document := Document{
		Title: collapseWhitespace(extractor.title),
		Text:  strings.Join(extractor.paragraphs, "\n\n"),
	}
	if document.Title == "" {
		document.Title = collapseWhitespace(extractor.heading)
	}
	if document.Text == "" && !bytes.ContainsRune(page, '<') {
		document.Text = collapseWhitespace(string(page))
	}
	return document, nil
}

type extractor struct {
	title      string
	heading    string
	paragraphs []string
}

func (extractor *extractor) walk(node *html.Node, skipped bool) {
	if node.Type == html.ElementNode {
		switch node.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template,
			atom.Nav, atom.Header, atom.Footer, atom.Aside:
			skipped = true
		case atom.Title:
			if extractor.title == "" {
				extractor.title = textOf(node)
			}
			return
		case atom.H1:
			if extractor.heading == "" && !skipped {
				extractor.heading = textOf(node)
			}
		case atom.P:
			if !skipped {
				if paragraph := collapseWhitespace(textOf(node)); paragraph != "" {
					extractor.paragraphs = append(extractor.paragraphs, paragraph)
				}
			}
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		extractor.walk(child, skipped)
	}
}

// textOf concatenates the text beneath node, ignoring script and style
// content.
func textOf(node *html.Node) string {
	var builder strings.Builder
	var visit func(*html.Node)
	visit = func(current *html.Node) {
		switch current.Type {
		case html.TextNode:
			builder.WriteString(current.Data)
			return
		case html.ElementNode:
			switch current.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			case atom.Br:
				builder.WriteByte(' ')
			}
		}
		for child := current.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(node)
	return builder.String()
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
