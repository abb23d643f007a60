// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// Shortcut is one key hint.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line of the chat layout.
type StatusBar struct {
	Email       string
	Role        string
	Route       string
	Folders     int
	Attachments int
	Loading     bool
	Shortcuts   []Shortcut
	Width       int

	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, Width: 80}
}

// View renders the bar. Hints are dropped first when space runs out.
func (s *StatusBar) View() string {
	left := []string{s.theme.ShortcutKey.Render(s.Route)}
	if s.Loading {
		left = append(left, s.theme.Thinking.Render("sending"))
	}
	if s.Folders > 0 {
		left = append(left, fmt.Sprintf("%d folder(s) in scope", s.Folders))
	}
	if s.Attachments > 0 {
		left = append(left, fmt.Sprintf("%d attachment(s)", s.Attachments))
	}
	leftText := strings.Join(left, " | ")

	right := s.Email
	if s.Role != "" {
		right += " (" + s.Role + ")"
	}

	inner := s.Width - 2
	hints := s.renderShortcuts()
	used := lipgloss.Width(leftText) + lipgloss.Width(right) + 2
	if hints != "" && used+lipgloss.Width(hints)+3 <= inner {
		leftText += " | " + hints
	}

	gap := inner - lipgloss.Width(leftText) - lipgloss.Width(right)
	if gap < 1 {
		right = util.Truncate(right, inner-lipgloss.Width(leftText)-1)
		gap = 1
	}
	return s.theme.StatusBar.Width(s.Width).Render(leftText + strings.Repeat(" ", gap) + right)
}

func (s *StatusBar) renderShortcuts() string {
	parts := make([]string, 0, len(s.Shortcuts))
	for _, sc := range s.Shortcuts {
		parts = append(parts, s.theme.ShortcutKey.Render(sc.Key)+" "+s.theme.ShortcutDesc.Render(sc.Desc))
	}
	return strings.Join(parts, "  ")
}
