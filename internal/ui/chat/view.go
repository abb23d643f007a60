// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/ui/components"
)

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight = 1
	statusHeight = 1
	minViewport  = 3
)

// conversationCache holds the last rendered conversation. Markdown is
// re-rendered only when the messages or the width change.
type conversationCache struct {
	key     string
	content string
}

// layout recomputes component sizes from the window size.
func (m *Model) layout() {
	sw := m.theme.SidebarWidth()
	mainW := m.width - sw
	if mainW < 20 {
		mainW = 20
	}
	bodyH := m.height - headerHeight - statusHeight
	if bodyH < minViewport {
		bodyH = minViewport
	}

	m.sidebar.Width = sw
	m.sidebar.Height = bodyH
	m.input.Width = mainW - 8

	contentH := bodyH - lipgloss.Height(m.renderInputArea(mainW))
	if contentH < minViewport {
		contentH = minViewport
	}
	m.viewport.Width = mainW
	m.viewport.Height = contentH

	m.fileList.Width = mainW - 2
	m.fileList.Height = contentH - 3
	m.folderLst.Width = mainW - 2
}

func (m Model) mainWidth() int {
	w := m.width - m.theme.SidebarWidth()
	if w < 20 {
		w = 20
	}
	return w
}

// refreshConversation re-renders the viewport content and follows the
// bottom when new messages arrive.
func (m *Model) refreshConversation() {
	if m.cache == nil {
		m.cache = &conversationCache{}
	}
	msgs := m.orch.Messages()
	loading := m.orch.Loading()

	var content string
	switch {
	case len(msgs) == 0 && m.loadingThread:
		content = components.RenderThinking(m.spinner.View(), m.theme)
	case len(msgs) == 0 && !loading:
		content = components.RenderEmptyChat(m.viewport.Width, m.viewport.Height, m.theme)
	default:
		key := fmt.Sprintf("%d/%d/%d/%t/%s", m.orch.Epoch(), len(msgs), m.viewport.Width, m.theme.IsDark, msgs[len(msgs)-1].ID)
		if key != m.cache.key {
			m.cache.key = key
			m.cache.content = components.RenderConversation(msgs, m.viewport.Width-2, m.showTimestamps, m.md, m.theme)
		}
		content = m.cache.content
		if loading {
			content += "\n\n" + components.RenderThinking(m.spinner.View(), m.theme)
		}
	}

	follow := m.viewport.AtBottom() || len(msgs) != m.shown
	m.shown = len(msgs)
	m.viewport.SetContent(content)
	if follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the layout.
func (m Model) View() string {
	mainW := m.mainWidth()
	bodyH := m.height - headerHeight - statusHeight

	var body string
	if m.confirm != nil {
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, m.confirm.View(m.theme))
	} else {
		main := lipgloss.JoinVertical(lipgloss.Left, m.renderContent(mainW), m.renderInputArea(mainW))
		if toasts := components.RenderToasts(m.toasts.Toasts(), mainW, m.theme); toasts != "" {
			main = overlayTop(main, toasts)
		}
		body = main
		if m.theme.SidebarWidth() > 0 {
			body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderStatus())
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("RAG Chat")
	user := ""
	if sess, ok := m.sess.Current(); ok {
		user = m.theme.HeaderUser.Render(sess.Email)
	}
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(user) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + user)
}

func (m Model) renderContent(width int) string {
	switch m.panel {
	case panelFiles:
		return m.renderPanel(width, m.fileList.View(),
			"u upload  d delete  o download  r refresh  esc close")
	case panelFolders:
		return m.renderPanel(width, m.folderLst.View(),
			"space select  enter open  n new  u upload  d delete  r refresh  esc close")
	}
	return m.viewport.View()
}

func (m Model) renderPanel(width int, content, hints string) string {
	body := content + "\n\n" + m.theme.PanelMuted.Render(hints)
	return m.theme.Panel.
		Width(width - 2).
		Height(m.viewport.Height - 2).
		MaxHeight(m.viewport.Height).
		Render(body)
}

func (m Model) renderInputArea(width int) string {
	var rows []string
	if chips := components.RenderAttachments(m.orch.Attachments(), width-4, m.theme); chips != "" {
		rows = append(rows, chips)
	}
	if m.prompt != promptNone {
		rows = append(rows, m.theme.FormLabel.Render(m.promptTitle()), m.promptIn.View(),
			m.theme.PanelMuted.Render("enter confirm  esc cancel"))
	} else {
		rows = append(rows, m.input.View())
	}
	return m.theme.InputContainer.Width(width - 2).Render(strings.Join(rows, "\n"))
}

func (m Model) renderStatus() string {
	sb := *m.status
	sb.Width = m.width
	if sess, ok := m.sess.Current(); ok {
		sb.Email, sb.Role = sess.Email, sess.Role
	}
	sb.Route = m.orch.Route().String()
	sb.Folders = len(m.scope.SelectedIDs())
	sb.Attachments = len(m.orch.Attachments())
	sb.Loading = m.orch.Loading()
	sb.Shortcuts = sb.Shortcuts[:0:0]
	for _, b := range m.keys.hints() {
		h := b.Help()
		sb.Shortcuts = append(sb.Shortcuts, components.Shortcut{Key: h.Key, Desc: h.Desc})
	}
	return sb.View()
}

// overlayTop replaces the first lines of base with overlay.
func overlayTop(base, overlay string) string {
	lines := strings.Split(base, "\n")
	for i, l := range strings.Split(overlay, "\n") {
		if i >= len(lines) {
			break
		}
		lines[i] = l
	}
	return strings.Join(lines, "\n")
}
