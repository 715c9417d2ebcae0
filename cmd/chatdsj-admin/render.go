// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Palette entries are ANSI 256-color codes.
const (
	colorHeader = lipgloss.Color("75")
	colorFaint  = lipgloss.Color("243")
	colorGood   = lipgloss.Color("78")
	colorBad    = lipgloss.Color("203")
	colorLabel  = lipgloss.Color("252")
)

// maxCellWidth bounds free-form table cells such as reaction lists.
const maxCellWidth = 40

// printer renders command output. Without color every style degrades
// to plain text, so output stays stable when piped.
type printer struct {
	out   io.Writer
	color bool
	now   time.Time

	renderer *lipgloss.Renderer
	title    lipgloss.Style
	label    lipgloss.Style
	header   lipgloss.Style
	faint    lipgloss.Style
	good     lipgloss.Style
	bad      lipgloss.Style
}

func newPrinter(out io.Writer, noColor bool, now time.Time) *printer {
	color := !noColor && os.Getenv("NO_COLOR") == "" && isTerminal(out)

	renderer := lipgloss.NewRenderer(out)
	if color {
		renderer.SetColorProfile(termenv.ANSI256)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return &printer{
		out:      out,
		color:    color,
		now:      now,
		renderer: renderer,
		title:    renderer.NewStyle().Bold(true).Foreground(colorHeader),
		label:    renderer.NewStyle().Foreground(colorLabel),
		header:   renderer.NewStyle().Bold(true).Foreground(colorHeader).Padding(0, 1),
		faint:    renderer.NewStyle().Foreground(colorFaint),
		good:     renderer.NewStyle().Foreground(colorGood),
		bad:      renderer.NewStyle().Foreground(colorBad).Bold(true),
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// field is one label/value line of a details block.
type field struct {
	label string
	value string
}

func (p *printer) section(title string) {
	fmt.Fprintln(p.out, p.title.Render(title))
}

// fields prints label/value pairs with the values aligned.
func (p *printer) fields(entries []field) {
	width := 0
	for _, entry := range entries {
		width = max(width, lipgloss.Width(entry.label))
	}
	for _, entry := range entries {
		fmt.Fprintf(p.out, "  %s  %s\n", p.label.Width(width).Render(entry.label), entry.value)
	}
}

// table prints rows under headers with a rounded border.
func (p *printer) table(headers []string, rows [][]string) {
	cell := p.renderer.NewStyle().Padding(0, 1)
	rendered := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.faint).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, column int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return cell
		})
	fmt.Fprintln(p.out, rendered.Render())
}

func (p *printer) blank() {
	fmt.Fprintln(p.out)
}

func (p *printer) note(format string, args ...any) {
	fmt.Fprintln(p.out, p.faint.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) availability(up bool) string {
	if up {
		return p.good.Render("up")
	}
	return p.bad.Render("down")
}

// relative formats at as "2026-03-01 12:00:00 UTC (5 minutes ago)".
func (p *printer) relative(at time.Time) string {
	if at.IsZero() {
		return p.faint.Render("never")
	}
	return fmt.Sprintf("%s %s",
		at.UTC().Format("2006-01-02 15:04:05 MST"),
		p.faint.Render("("+humanize.RelTime(at, p.now, "ago", "from now")+")"))
}

// json writes value as indented JSON, highlighted on a color terminal.
func (p *printer) json(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	data = append(data, '\n')
	if p.color {
		return quick.Highlight(p.out, string(data), "json", "terminal256", "monokai")
	}
	_, err = p.out.Write(data)
	return err
}

func truncate(text string) string {
	return ansi.Truncate(text, maxCellWidth, "…")
}

func count(n int64) string {
	return humanize.Comma(n)
}

func dollars(amount float64) string {
	return fmt.Sprintf("$%.4f", amount)
}

func percent(ratio float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.2f", ratio*100), ".00") + "%"
}

func milliseconds(value float64) string {
	if value == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fms", value)
}
