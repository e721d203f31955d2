package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/contract-composer/internal/validation"
)

const (
	highlightFormatter = "terminal256"
	highlightStyle     = "monokai"
)

// printer renders reports to a command's output. Colors degrade to plain
// text when the writer is not a terminal.
type printer struct {
	w     io.Writer
	ok    lipgloss.Style
	bad   lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
	title lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:     w,
		ok:    r.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		bad:   r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
		title: r.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true),
	}
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// validation prints the formatted report with each line styled by its marker.
func (p *printer) validation(result validation.Result) {
	for _, line := range strings.Split(strings.TrimRight(validation.Format(result), "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "✓"):
			line = p.ok.Render(line)
		case strings.HasPrefix(trimmed, "✗"):
			line = p.bad.Render(line)
		case strings.HasPrefix(trimmed, "⚠"):
			line = p.warn.Render(line)
		case trimmed == "Errors:" || trimmed == "Warnings:":
			line = p.title.Render(line)
		}
		fmt.Fprintln(p.w, line)
	}
}

// highlight writes content with syntax colors chosen from the file name, or
// from lexer when it is set.
func (p *printer) highlight(name, lexer, content string) error {
	var l chroma.Lexer
	if lexer != "" {
		l = lexers.Get(lexer)
	} else {
		l = lexers.Match(filepath.Base(name))
	}
	if l == nil {
		l = lexers.Fallback
	}
	l = chroma.Coalesce(l)
	formatter := formatters.Get(highlightFormatter)
	if formatter == nil {
		formatter = formatters.Fallback
	}
	style := styles.Get(highlightStyle)
	if style == nil {
		style = styles.Fallback
	}
	iterator, err := l.Tokenise(nil, content)
	if err != nil {
		return fmt.Errorf("highlight %s: %w", name, err)
	}
	return formatter.Format(p.w, style, iterator)
}

// file prints one merged file under a header line.
func (p *printer) file(path, content string, color bool) error {
	p.printf("%s\n", p.title.Render("==> "+path+" <=="))
	if color {
		if err := p.highlight(path, "", content); err != nil {
			return err
		}
	} else {
		p.printf("%s", content)
	}
	if !strings.HasSuffix(content, "\n") {
		p.printf("\n")
	}
	return nil
}
