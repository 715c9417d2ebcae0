// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package mrkdwn

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownParserInstance
}

// slackSequence matches Slack control sequences: user, channel and
// special mentions, and pre-formatted links.
var slackSequence = regexp.MustCompile(`<(?:[@#!][^<>\s]+|https?://[^<>|\s]+(?:\|[^<>]*)?|mailto:[^<>|\s]+(?:\|[^<>]*)?)>`)

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Render converts Markdown to Slack mrkdwn.
func Render(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	protected, restore := protectSequences(markdown)
	source := []byte(protected)
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	renderer := &mrkdwnRenderer{source: source}
	ast.Walk(document, renderer.walk)

	return restore.Replace(strings.TrimRight(renderer.output.String(), "\n"))
}

// protectSequences swaps Slack control sequences for inert
// alphanumeric placeholders so the Markdown parser and the escaper
// leave them alone. The returned replacer restores them.
func protectSequences(input string) (string, *strings.Replacer) {
	var pairs []string
	index := 0
	protected := slackSequence.ReplaceAllStringFunc(input, func(sequence string) string {
		placeholder := fmt.Sprintf("SLACKSEQ%dZ", index)
		index++
		pairs = append(pairs, placeholder, sequence)
		return placeholder
	})
	return protected, strings.NewReplacer(pairs...)
}

type listState struct {
	ordered bool
	counter int
	tight   bool
}

type mrkdwnRenderer struct {
	source []byte

	output strings.Builder

	// inline collects the content of the current paragraph, heading,
	// or table cell until the block closes.
	inline strings.Builder

	// linePrefix is the concatenation of blockquote markers and list
	// continuation indents; prefixStack remembers each piece.
	prefixStack []string
	linePrefix  string

	// pendingBullet replaces linePrefix for the first line of a list
	// item.
	pendingBullet string

	listStack []listState

	trailingNewlines int
}

func (renderer *mrkdwnRenderer) pushPrefix(prefix string) {
	renderer.prefixStack = append(renderer.prefixStack, prefix)
	renderer.linePrefix += prefix
}

func (renderer *mrkdwnRenderer) popPrefix() {
	if len(renderer.prefixStack) == 0 {
		return
	}
	top := renderer.prefixStack[len(renderer.prefixStack)-1]
	renderer.prefixStack = renderer.prefixStack[:len(renderer.prefixStack)-1]
	renderer.linePrefix = renderer.linePrefix[:len(renderer.linePrefix)-len(top)]
}

func (renderer *mrkdwnRenderer) inTightList() bool {
	if len(renderer.listStack) == 0 {
		return false
	}
	return renderer.listStack[len(renderer.listStack)-1].tight
}

func (renderer *mrkdwnRenderer) writeOutput(s string) {
	if s == "" {
		return
	}
	renderer.output.WriteString(s)

	trailing := len(s) - len(strings.TrimRight(s, "\n"))
	if trailing == len(s) {
		renderer.trailingNewlines += trailing
	} else {
		renderer.trailingNewlines = trailing
	}
}

func (renderer *mrkdwnRenderer) ensureNewline() {
	if renderer.output.Len() > 0 && renderer.trailingNewlines < 1 {
		renderer.writeOutput("\n")
	}
}

func (renderer *mrkdwnRenderer) ensureBlankLine() {
	if renderer.output.Len() == 0 {
		return
	}
	for renderer.trailingNewlines < 2 {
		renderer.writeOutput("\n")
	}
}

func (renderer *mrkdwnRenderer) consumeLinePrefix() string {
	if renderer.pendingBullet != "" {
		bullet := renderer.pendingBullet
		renderer.pendingBullet = ""
		return bullet
	}
	return renderer.linePrefix
}

// applyPrefixes prepends the line prefix to every line of content,
// using the pending bullet for the first.
func (renderer *mrkdwnRenderer) applyPrefixes(content string) string {
	lines := strings.Split(content, "\n")
	var result strings.Builder
	for index, line := range lines {
		if index == 0 {
			result.WriteString(renderer.consumeLinePrefix())
		} else {
			result.WriteString(renderer.linePrefix)
		}
		result.WriteString(line)
		if index < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

func (renderer *mrkdwnRenderer) writeBlock(content string) {
	if content == "" {
		return
	}
	renderer.writeOutput(renderer.applyPrefixes(content))
	renderer.ensureNewline()
	if !renderer.inTightList() {
		renderer.ensureBlankLine()
	}
}

// renderInlineContent renders a node's children into a string without
// disturbing the enclosing inline buffer.
func (renderer *mrkdwnRenderer) renderInlineContent(node ast.Node) string {
	saved := renderer.inline.String()
	renderer.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, renderer.walk)
	}
	result := renderer.inline.String()
	renderer.inline.Reset()
	renderer.inline.WriteString(saved)
	return result
}

func (renderer *mrkdwnRenderer) linesOf(node ast.Node) string {
	var content strings.Builder
	lines := node.Lines()
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		content.Write(segment.Value(renderer.source))
	}
	return content.String()
}

func (renderer *mrkdwnRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindDocument:

	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			renderer.inline.Reset()
		} else {
			content := renderer.inline.String()
			renderer.inline.Reset()
			renderer.writeBlock(content)
		}

	case ast.KindHeading:
		if entering {
			renderer.inline.Reset()
		} else {
			content := strings.TrimSpace(renderer.inline.String())
			renderer.inline.Reset()
			if content != "" {
				renderer.ensureBlankLine()
				renderer.writeBlock("*" + strings.Trim(content, "*") + "*")
			}
		}

	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		if entering {
			code := strings.TrimRight(renderer.linesOf(node), "\n")
			renderer.writeBlock("```\n" + escaper.Replace(code) + "\n```")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindHTMLBlock:
		if entering {
			raw := strings.TrimRight(renderer.linesOf(node), "\n")
			renderer.writeBlock(escaper.Replace(raw))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			renderer.pushPrefix("> ")
		} else {
			renderer.popPrefix()
			renderer.ensureBlankLine()
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			renderer.listStack = append(renderer.listStack, listState{
				ordered: list.IsOrdered(),
				counter: list.Start,
				tight:   list.IsTight,
			})
		} else {
			renderer.listStack = renderer.listStack[:len(renderer.listStack)-1]
			if !renderer.inTightList() {
				renderer.ensureBlankLine()
			}
		}

	case ast.KindListItem:
		if entering {
			renderer.enterListItem()
		} else {
			renderer.popPrefix()
			if renderer.inTightList() {
				renderer.ensureNewline()
			} else {
				renderer.ensureBlankLine()
			}
		}

	case ast.KindThematicBreak:
		if entering {
			renderer.ensureBlankLine()
			renderer.writeBlock(strings.Repeat("─", 10))
		}

	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			renderer.inline.WriteString(escaper.Replace(string(textNode.Segment.Value(renderer.source))))
			if textNode.SoftLineBreak() || textNode.HardLineBreak() {
				renderer.inline.WriteString("\n")
			}
		}

	case ast.KindString:
		if entering {
			renderer.inline.WriteString(escaper.Replace(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		if node.(*ast.Emphasis).Level >= 2 {
			renderer.inline.WriteString("*")
		} else {
			renderer.inline.WriteString("_")
		}

	case ast.KindCodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				switch typed := child.(type) {
				case *ast.Text:
					code.Write(typed.Segment.Value(renderer.source))
				case *ast.String:
					code.Write(typed.Value)
				}
			}
			renderer.inline.WriteString("`" + escaper.Replace(code.String()) + "`")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if entering {
			link := node.(*ast.Link)
			renderer.writeLink(string(link.Destination), renderer.renderInlineContent(node))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindImage:
		if entering {
			image := node.(*ast.Image)
			renderer.writeLink(string(image.Destination), renderer.renderInlineContent(node))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindAutoLink:
		if entering {
			autoLink := node.(*ast.AutoLink)
			renderer.writeLink(string(autoLink.URL(renderer.source)), "")
		}

	case ast.KindRawHTML:
		if entering {
			rawHTML := node.(*ast.RawHTML)
			for index := 0; index < rawHTML.Segments.Len(); index++ {
				segment := rawHTML.Segments.At(index)
				renderer.inline.WriteString(escaper.Replace(string(segment.Value(renderer.source))))
			}
		}

	case extast.KindStrikethrough:
		renderer.inline.WriteString("~")

	case extast.KindTaskCheckBox:
		if entering {
			if node.(*extast.TaskCheckBox).IsChecked {
				renderer.inline.WriteString("☑ ")
			} else {
				renderer.inline.WriteString("☐ ")
			}
		}

	case extast.KindTable:
		if entering {
			renderer.renderTable(node)
			return ast.WalkSkipChildren, nil
		}
	}

	return ast.WalkContinue, nil
}

func (renderer *mrkdwnRenderer) enterListItem() {
	if len(renderer.listStack) == 0 {
		return
	}
	top := &renderer.listStack[len(renderer.listStack)-1]

	bullet := "• "
	if top.ordered {
		bullet = fmt.Sprintf("%d. ", top.counter)
		top.counter++
	}
	renderer.pendingBullet = renderer.linePrefix + bullet
	renderer.pushPrefix(strings.Repeat(" ", utf8.RuneCountInString(bullet)))
}

func (renderer *mrkdwnRenderer) writeLink(destination, label string) {
	if destination == "" {
		renderer.inline.WriteString(label)
		return
	}
	destination = escaper.Replace(destination)
	if label == "" || label == destination {
		renderer.inline.WriteString("<" + destination + ">")
		return
	}
	// A pipe inside the label would end it early.
	label = strings.ReplaceAll(label, "|", "¦")
	renderer.inline.WriteString("<" + destination + "|" + label + ">")
}

// renderTable lays a GFM table out as aligned columns inside a code
// block; Slack has no table markup.
func (renderer *mrkdwnRenderer) renderTable(node ast.Node) {
	var rows [][]string
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if child.Kind() != extast.KindTableHeader && child.Kind() != extast.KindTableRow {
			continue
		}
		var cells []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(renderer.renderInlineContent(cell)))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for column, cell := range row {
			if column < len(widths) {
				widths[column] = max(widths[column], utf8.RuneCountInString(cell))
			}
		}
	}

	formatRow := func(cells []string) string {
		padded := make([]string, len(widths))
		for column := range widths {
			cell := ""
			if column < len(cells) {
				cell = cells[column]
			}
			padded[column] = cell + strings.Repeat(" ", widths[column]-utf8.RuneCountInString(cell))
		}
		return strings.TrimRight(strings.Join(padded, " | "), " ")
	}

	lines := []string{formatRow(rows[0])}
	dashes := make([]string, len(widths))
	for column, width := range widths {
		dashes[column] = strings.Repeat("-", max(width, 1))
	}
	lines = append(lines, strings.Join(dashes, "-+-"))
	for _, row := range rows[1:] {
		lines = append(lines, formatRow(row))
	}

	renderer.writeBlock("```\n" + strings.Join(lines, "\n") + "\n```")
}
