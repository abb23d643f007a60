// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// CODE BLOCK
// =============================================================================

// CodeBlock is one fenced block, rendered in a bordered box under a
// language header.
type CodeBlock struct {
	Language string
	Code     string
	Width    int
	// Style selects the chroma palette: "dark", "light" or "notty". notty
	// renders without color.
	Style string
}

var (
	codeBorder = lipgloss.AdaptiveColor{Light: "#D4D4D4", Dark: "#45475A"}
	codeBadge  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
)

// Render draws the block.
func (c CodeBlock) Render() string {
	code := strings.TrimRight(c.Code, "\n ")
	lang := strings.ToLower(strings.TrimSpace(c.Language))

	body := code
	if c.Style != "notty" && lang != "math" {
		body = highlight(code, lang, chromaStyleFor(c.Style))
	}

	label := lang
	if label == "" {
		label = "text"
	}
	header := lipgloss.NewStyle().
		Foreground(codeBadge).
		Bold(true).
		Render(label)

	width := c.Width - 2
	if width < 20 {
		width = 20
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(codeBorder).
		Padding(0, 1).
		MaxWidth(width).
		Render(header + "\n" + body)
}

func chromaStyleFor(style string) string {
	if style == "light" {
		return "github"
	}
	return "monokai"
}

// highlight returns code with ANSI highlighting, or code unchanged when
// no lexer or formatter applies.
func highlight(code, lang, styleName string) string {
	lexer := lexers.Get(lang)
	if lexer == nil && lang == "" {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return code
	}

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, it); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
