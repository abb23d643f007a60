// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/markdown"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders one chat message.
type MessageBubble struct {
	Message       api.Message
	Width         int
	ShowTimestamp bool
	// Markdown renders assistant content. Nil shows it as written.
	Markdown *markdown.Renderer

	theme *styles.Theme
}

// NewMessageBubble creates a bubble at the default width.
func NewMessageBubble(msg api.Message, theme *styles.Theme) *MessageBubble {
	return &MessageBubble{Message: msg, Width: 80, theme: theme}
}

// View renders the message bubble.
func (b *MessageBubble) View() string {
	if b.Message.Type == api.TypeUser {
		return b.renderUser()
	}
	return b.renderAssistant()
}

// User messages are right-aligned plain text, never markdown.
func (b *MessageBubble) renderUser() string {
	content := b.Message.Content
	if content == "" {
		content = "..."
	}

	maxWidth := b.Width * 3 / 4
	if maxWidth < 20 {
		maxWidth = 20
	}
	inner := lipgloss.Width(content)
	if inner > maxWidth-4 {
		inner = maxWidth - 4
	}
	bubble := b.theme.UserBubble.Width(inner + 2).Render(content)

	header := b.header("you")
	block := lipgloss.JoinVertical(lipgloss.Right, header, bubble)
	return lipgloss.PlaceHorizontal(b.Width, lipgloss.Right, block)
}

func (b *MessageBubble) renderAssistant() string {
	content := b.Message.Content
	inner := b.Width - 6
	if inner < 20 {
		inner = 20
	}
	if b.Markdown != nil {
		content = b.Markdown.Render(content, inner)
	}
	if strings.TrimSpace(content) == "" {
		content = "..."
	}
	bubble := b.theme.AssistantBubble.MaxWidth(b.Width).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, b.header("assistant"), bubble)
}

func (b *MessageBubble) header(role string) string {
	parts := []string{b.theme.RoleLabel.Render(role)}
	if b.ShowTimestamp {
		if ts := FormatTimestamp(b.Message.Timestamp); ts != "" {
			parts = append(parts, b.theme.Timestamp.Render(ts))
		}
	}
	return strings.Join(parts, " ")
}

// FormatTimestamp renders an RFC 3339 timestamp as a local clock time, or
// "" when it cannot be parsed.
func FormatTimestamp(ts string) string {
	if ts == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Local().Format("15:04")
		}
	}
	return ""
}

// RenderConversation renders messages top to bottom, separated by a blank
// line.
func RenderConversation(msgs []api.Message, width int, showTimestamps bool, md *markdown.Renderer, theme *styles.Theme) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		b := NewMessageBubble(m, theme)
		b.Width = width
		b.ShowTimestamp = showTimestamps
		b.Markdown = md
		parts = append(parts, b.View())
	}
	return strings.Join(parts, "\n\n")
}

// RenderThinking is the typing indicator under the last message.
func RenderThinking(frame string, theme *styles.Theme) string {
	return theme.Thinking.Render(frame + " AI is thinking...")
}

// RenderEmptyChat is shown for a new chat with no messages.
func RenderEmptyChat(width, height int, theme *styles.Theme) string {
	text := lipgloss.JoinVertical(lipgloss.Center,
		theme.HeaderTitle.Render("Start a conversation"),
		theme.PanelMuted.Render("Ask a question about your documents."),
	)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}
