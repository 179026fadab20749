// Package render turns the cycle history into a static HTML page.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"synthfeed/internal/logging"
	"synthfeed/internal/store"
	"synthfeed/internal/types"
)

// IndentPerLevel is the left margin, in pixels, added per reply level.
const IndentPerLevel = 20

// DefaultTitle is used when no page title is configured.
const DefaultTitle = "AI Social Feed"

//go:embed page.html.tmpl
var pageTemplate string

// Options controls page rendering.
type Options struct {
	Title string
	// MaxCycles limits how many cycles appear on the page (0 = all).
	MaxCycles int
}

// Renderer renders cycles with a compiled page template.
type Renderer struct {
	opts Options
	tmpl *template.Template
}

// commentNode pairs a comment with its nesting level for the recursive template.
type commentNode struct {
	types.Comment
	Level int
}

// Indent returns the left margin for the node's level.
func (n commentNode) Indent() int {
	return n.Level * IndentPerLevel
}

type pageData struct {
	Title  string
	Cycles []types.Cycle
}

// New compiles the page template.
func New(opts Options) (*Renderer, error) {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}

	funcs := template.FuncMap{
		"node":    func(c types.Comment, level int) commentNode { return commentNode{Comment: c, Level: level} },
		"inc":     func(i int) int { return i + 1 },
		"lines":   splitLines,
		"imageOf": imageOf,
	}
	tmpl, err := template.New("page").Funcs(funcs).Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	return &Renderer{opts: opts, tmpl: tmpl}, nil
}

// Render writes the page for cycles (newest first) to w.
func (r *Renderer) Render(w io.Writer, cycles []types.Cycle) error {
	if r.opts.MaxCycles > 0 && len(cycles) > r.opts.MaxCycles {
		cycles = cycles[:r.opts.MaxCycles]
	}
	if err := r.tmpl.Execute(w, pageData{Title: r.opts.Title, Cycles: cycles}); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// WriteFile renders cycles and atomically replaces the page at path.
func (r *Renderer) WriteFile(path string, cycles []types.Cycle) error {
	timer := logging.StartTimer(logging.CategoryRender, "WriteFile")
	defer timer.Stop()

	var buf bytes.Buffer
	if err := r.Render(&buf, cycles); err != nil {
		return err
	}
	if err := store.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return err
	}
	logging.Render("Rendered %s from %d cycles", path, len(cycles))
	return nil
}

// RenderHistory re-reads the history file and rewrites the page.
func (r *Renderer) RenderHistory(historyPath, outputPath string) error {
	cycles, err := store.LoadCycles(historyPath)
	if err != nil {
		return err
	}
	return r.WriteFile(outputPath, cycles)
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

// imageOf prefers the locally stored thumbnail over the remote entry image.
func imageOf(c types.Cycle) string {
	if c.Image != "" {
		return c.Image
	}
	return c.Headline.ImageURL
}
