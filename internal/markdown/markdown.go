// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is used when Render is given a non-positive width.
const DefaultWidth = 80

// Options configures a Renderer.
type Options struct {
	// Enabled false makes Render return its input unchanged.
	Enabled bool
	// Style is "dark", "light", "auto" or "notty".
	Style string
}

// Renderer caches one glamour renderer per wrap width. It is safe for
// concurrent use.
type Renderer struct {
	mu      sync.Mutex
	opts    Options
	byWidth map[int]*glamour.TermRenderer
}

// New creates a renderer.
func New(opts Options) *Renderer {
	return &Renderer{opts: opts, byWidth: make(map[int]*glamour.TermRenderer)}
}

var std = New(Options{Enabled: true, Style: "auto"})

// Render renders text with the package default renderer.
func Render(text string, width int) string {
	return std.Render(text, width)
}

// Enabled reports whether markdown is rendered at all.
func (r *Renderer) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts.Enabled
}

// SetEnabled switches rendering on or off.
func (r *Renderer) SetEnabled(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts.Enabled = on
}

// SetStyle changes the palette and drops cached renderers.
func (r *Renderer) SetStyle(style string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opts.Style == style {
		return
	}
	r.opts.Style = style
	r.byWidth = make(map[int]*glamour.TermRenderer)
}

// Render returns text formatted for a terminal of the given width. Any
// failure returns text as-is.
func (r *Renderer) Render(text string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.opts.Enabled || strings.TrimSpace(text) == "" {
		return text
	}

	tr, err := r.termRenderer(width)
	if err != nil {
		return text
	}

	codeStyle := r.opts.Style
	if codeStyle == "auto" || codeStyle == "" {
		codeStyle = "dark"
	}

	var parts []string
	for _, s := range segments(text) {
		if s.code {
			parts = append(parts, CodeBlock{Language: s.lang, Code: s.body, Width: width, Style: codeStyle}.Render())
			continue
		}
		if strings.TrimSpace(s.body) == "" {
			continue
		}
		out, err := tr.Render(s.body)
		if err != nil {
			return text
		}
		parts = append(parts, tidy(out))
	}
	return strings.Join(parts, "\n")
}

func (r *Renderer) termRenderer(width int) (*glamour.TermRenderer, error) {
	if tr, ok := r.byWidth[width]; ok {
		return tr, nil
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch r.opts.Style {
	case "", "auto":
		opts = append(opts, glamour.WithAutoStyle())
	case "dark", "light", "notty":
		opts = append(opts, glamour.WithStandardStyle(r.opts.Style))
	default:
		opts = append(opts, glamour.WithStandardStyle("dark"))
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	r.byWidth[width] = tr
	return tr, nil
}

// tidy strips the blank margins and right padding glamour adds.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
