// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders styled terminal output for the wolftrace CLI.
//
// A Printer writes lipgloss-styled text when its writer is a terminal and
// plain text otherwise, so command output stays greppable when piped.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// Palette
var (
	ColorAccent  = lipgloss.Color("#2CD7C7")
	ColorPrimary = lipgloss.Color("#20B9B4")
	ColorBorder  = lipgloss.Color("#16858E")
	ColorMuted   = lipgloss.Color("#6C8A94")
	ColorAdded   = lipgloss.Color("#2ECC71")
	ColorChanged = lipgloss.Color("#F4D03F")
	ColorRemoved = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Section lipgloss.Style
	Key     lipgloss.Style
	Muted   lipgloss.Style
	Added   lipgloss.Style
	Changed lipgloss.Style
	Removed lipgloss.Style
	Box     lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	Section: lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).MarginTop(1),
	Key:     lipgloss.NewStyle().Foreground(ColorMuted),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Added:   lipgloss.NewStyle().Foreground(ColorAdded),
	Changed: lipgloss.NewStyle().Foreground(ColorChanged),
	Removed: lipgloss.NewStyle().Foreground(ColorRemoved),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1),
	Header: lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Padding(0, 1),
	Cell:   lipgloss.NewStyle().Padding(0, 1),
}

// Tone selects the color of a status line.
type Tone int

const (
	ToneNeutral Tone = iota
	ToneAdded
	ToneChanged
	ToneRemoved
)

// Printer writes styled output.
//
// Thread Safety: NOT safe for concurrent use.
type Printer struct {
	w     io.Writer
	plain bool
}

// NewPrinter returns a printer for w. Styling is enabled only when w is a
// terminal.
func NewPrinter(w io.Writer) *Printer {
	plain := true
	if f, ok := w.(*os.File); ok {
		plain = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{w: w, plain: plain}
}

// NewPlainPrinter returns a printer that never styles.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w, plain: true}
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if p.plain {
		return text
	}
	return s.Render(text)
}

// Title prints a heading.
func (p *Printer) Title(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "%s\n%s\n", text, strings.Repeat("=", len(text)))
		return
	}
	fmt.Fprintln(p.w, Styles.Box.Render(Styles.Title.Render(text)))
}

// Section prints a subheading.
func (p *Printer) Section(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "\n%s\n", text)
		return
	}
	fmt.Fprintln(p.w, Styles.Section.Render(text))
}

// KV prints aligned key/value pairs given as alternating arguments.
func (p *Printer) KV(pairs ...any) {
	width := 0
	for i := 0; i+1 < len(pairs); i += 2 {
		if k := fmt.Sprint(pairs[i]); len(k) > width {
			width = len(k)
		}
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		key := fmt.Sprintf("%-*s", width, fmt.Sprint(pairs[i]))
		fmt.Fprintf(p.w, "  %s  %v\n", p.render(Styles.Key, key), pairs[i+1])
	}
}

// Line prints one status line in the given tone.
func (p *Printer) Line(tone Tone, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	switch tone {
	case ToneAdded:
		text = p.render(Styles.Added, "+ "+text)
	case ToneChanged:
		text = p.render(Styles.Changed, "~ "+text)
	case ToneRemoved:
		text = p.render(Styles.Removed, "- "+text)
	default:
		text = "  " + text
	}
	fmt.Fprintln(p.w, text)
}

// Muted prints secondary text.
func (p *Printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(Styles.Muted, fmt.Sprintf(format, args...)))
}

// Table prints rows under headers. Plain output is tab separated.
func (p *Printer) Table(headers []string, rows [][]string) {
	if p.plain {
		fmt.Fprintln(p.w, strings.Join(headers, "\t"))
		for _, r := range rows {
			fmt.Fprintln(p.w, strings.Join(r, "\t"))
		}
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return Styles.Header
			}
			return Styles.Cell
		})
	fmt.Fprintln(p.w, t.Render())
}
