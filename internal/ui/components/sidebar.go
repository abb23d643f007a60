// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

// =============================================================================
// THREAD LIST
// =============================================================================

// NewChatLabel is the first row of the thread list.
const NewChatLabel = "+ New chat"

// ThreadList is the sidebar. Row 0 is "New chat"; rows 1..n are threads.
type ThreadList struct {
	Threads  []api.Thread
	ActiveID string
	Focused  bool
	Loading  bool
	Width    int
	Height   int

	cursor int
	offset int
	theme  *styles.Theme
}

// NewThreadList creates an empty list.
func NewThreadList(theme *styles.Theme) *ThreadList {
	return &ThreadList{Width: 28, Height: 20, theme: theme}
}

// SetThreads replaces the list, keeping the cursor in range.
func (l *ThreadList) SetThreads(threads []api.Thread) {
	l.Threads = threads
	if l.cursor > len(threads) {
		l.cursor = len(threads)
	}
}

// Cursor returns the cursor row.
func (l *ThreadList) Cursor() int { return l.cursor }

// MoveUp moves the cursor one row up.
func (l *ThreadList) MoveUp() {
	if l.cursor > 0 {
		l.cursor--
	}
}

// MoveDown moves the cursor one row down.
func (l *ThreadList) MoveDown() {
	if l.cursor < len(l.Threads) {
		l.cursor++
	}
}

// Selected returns the thread under the cursor, or newChat when the cursor
// is on the first row.
func (l *ThreadList) Selected() (thread api.Thread, newChat bool) {
	if l.cursor == 0 || l.cursor > len(l.Threads) {
		return api.Thread{}, true
	}
	return l.Threads[l.cursor-1], false
}

// Each thread takes two lines: title and last message.
const threadRowLines = 2

func (l *ThreadList) visibleThreads() int {
	// Title, its margin and the New chat row.
	n := (l.Height - 3) / threadRowLines
	if n < 1 {
		n = 1
	}
	return n
}

func (l *ThreadList) scroll() {
	visible := l.visibleThreads()
	idx := l.cursor - 1
	if idx < l.offset {
		l.offset = idx
	}
	if idx >= l.offset+visible {
		l.offset = idx - visible + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// View renders the sidebar.
func (l *ThreadList) View() string {
	if l.Width <= 0 {
		return ""
	}
	l.scroll()
	inner := l.Width - 4

	var b strings.Builder
	b.WriteString(l.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n")
	b.WriteString(l.row(0, util.Truncate(NewChatLabel, inner), l.ActiveID == ""))

	switch {
	case l.Loading && len(l.Threads) == 0:
		b.WriteString("\n" + l.theme.SidebarMeta.Render("Loading..."))
	case len(l.Threads) == 0:
		b.WriteString("\n" + l.theme.SidebarMeta.Render("No conversations yet"))
	}

	end := l.offset + l.visibleThreads()
	if end > len(l.Threads) {
		end = len(l.Threads)
	}
	for i := l.offset; i < end; i++ {
		t := l.Threads[i]
		title := t.Title
		if strings.TrimSpace(title) == "" {
			title = "Untitled"
		}
		b.WriteString("\n")
		b.WriteString(l.row(i+1, util.Truncate(util.OneLine(title), inner), t.ID == l.ActiveID))
		b.WriteString("\n")
		b.WriteString(l.theme.SidebarMeta.Render("  " + util.Truncate(util.OneLine(t.LastMessage), inner-2)))
	}

	return l.theme.Sidebar.Width(l.Width).Height(l.Height).Render(b.String())
}

func (l *ThreadList) row(idx int, text string, active bool) string {
	style := l.theme.SidebarItem
	if active {
		style = l.theme.SidebarItemActive
	}
	prefix := "  "
	if l.Focused && idx == l.cursor {
		prefix = "> "
		style = style.Inherit(l.theme.SidebarCursor)
	}
	return style.Render(prefix + text)
}
