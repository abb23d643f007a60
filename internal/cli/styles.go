// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// init configures lipgloss for the terminal. Piped output gets no escape
// sequences.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// Shared styles for all commands.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	// UserLabelStyle and AssistantLabelStyle prefix transcript lines.
	UserLabelStyle = lipgloss.NewStyle().
			Foreground(styles.UserBubbleBorder).
			Bold(true)

	AssistantLabelStyle = lipgloss.NewStyle().
				Foreground(styles.AssistantBubbleBorder).
				Bold(true)
)
