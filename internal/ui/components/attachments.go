// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

// RenderAttachments renders pending attachments as numbered chips above the
// input, or "" when there are none.
func RenderAttachments(atts []api.Attachment, width int, theme *styles.Theme) string {
	if len(atts) == 0 {
		return ""
	}
	chips := make([]string, 0, len(atts))
	for i, a := range atts {
		name := util.Truncate(a.DisplayName(), 24)
		chips = append(chips, theme.AttachmentChip.Render(fmt.Sprintf("%d %s %s", i+1, FileIcon(a.DisplayName()), name)))
	}
	row := strings.Join(chips, "")
	return lipgloss.NewStyle().MaxWidth(width).Render(row)
}

// =============================================================================
// CONFIRM DIALOG
// =============================================================================

// Confirm is a yes/no question shown over the layout.
type Confirm struct {
	Title    string
	Question string
	// Yes is true when the affirmative button is focused.
	Yes bool
}

// View renders the dialog.
func (c Confirm) View(theme *styles.Theme) string {
	yes, no := theme.Button, theme.ButtonActive
	if c.Yes {
		yes, no = theme.ButtonActive, theme.Button
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, no.Render("Cancel"), "  ", yes.Render("Delete"))
	body := lipgloss.JoinVertical(lipgloss.Left,
		theme.ConfirmTitle.Render(c.Title),
		"",
		lipgloss.NewStyle().Width(48).Render(c.Question),
		"",
		buttons,
		theme.PanelMuted.Render("left/right choose, enter confirm, esc cancel"),
	)
	return theme.ConfirmBox.Render(body)
}
