// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

// =============================================================================
// FOLDER LIST PANEL
// =============================================================================

// FolderList renders smart folders with their selection checkbox. The
// expanded folder shows its files underneath.
type FolderList struct {
	Folders  []api.Folder
	Selected map[string]bool
	Expanded string
	// Contents holds the expanded folder's files; nil while loading.
	Contents []api.File
	Loading  bool
	Width    int

	cursor int
	theme  *styles.Theme
}

// NewFolderList creates an empty panel.
func NewFolderList(theme *styles.Theme) *FolderList {
	return &FolderList{Width: 60, Selected: map[string]bool{}, theme: theme}
}

// SetFolders replaces the rows, keeping the cursor in range.
func (l *FolderList) SetFolders(folders []api.Folder) {
	l.Folders = folders
	l.Loading = false
	if l.cursor >= len(folders) {
		l.cursor = len(folders) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

// SetSelected marks ids as checked.
func (l *FolderList) SetSelected(ids []string) {
	l.Selected = make(map[string]bool, len(ids))
	for _, id := range ids {
		l.Selected[id] = true
	}
}

// MoveUp moves the cursor one folder up.
func (l *FolderList) MoveUp() {
	if l.cursor > 0 {
		l.cursor--
	}
}

// MoveDown moves the cursor one folder down.
func (l *FolderList) MoveDown() {
	if l.cursor < len(l.Folders)-1 {
		l.cursor++
	}
}

// Current returns the folder under the cursor.
func (l *FolderList) Current() (api.Folder, bool) {
	if l.cursor < 0 || l.cursor >= len(l.Folders) {
		return api.Folder{}, false
	}
	return l.Folders[l.cursor], true
}

// View renders the panel body.
func (l *FolderList) View() string {
	rows := []string{l.theme.PanelTitle.Render("Smart Folders")}
	switch {
	case l.Loading && len(l.Folders) == 0:
		rows = append(rows, l.theme.PanelMuted.Render("Loading folders..."))
	case len(l.Folders) == 0:
		rows = append(rows,
			l.theme.PanelRow.Render("No folders yet"),
			l.theme.PanelMuted.Render("Create a folder to group documents for retrieval"))
	}

	inner := l.Width - 4
	for i, f := range l.Folders {
		rows = append(rows, l.folderRow(f, i == l.cursor, inner))
		if f.FolderID == l.Expanded {
			rows = append(rows, l.contentRows(inner)...)
		}
	}
	return strings.Join(rows, "\n")
}

func (l *FolderList) folderRow(f api.Folder, cursor bool, width int) string {
	box := "[ ]"
	if l.Selected[f.FolderID] {
		box = l.theme.Checked.Render("[x]")
	}
	arrow := "+"
	if f.FolderID == l.Expanded {
		arrow = "-"
	}
	count := l.theme.PanelMuted.Render(fmt.Sprintf("(%d files)", f.FileCount))
	name := util.Truncate(f.FolderName, width-22)
	line := fmt.Sprintf("%s %s 📁 %s %s", box, arrow, name, count)
	if cursor {
		return l.theme.PanelCursor.Render(">") + " " + line
	}
	return "  " + line
}

func (l *FolderList) contentRows(width int) []string {
	const indent = "        "
	if l.Contents == nil {
		return []string{indent + l.theme.PanelMuted.Render("Loading files...")}
	}
	if len(l.Contents) == 0 {
		return []string{indent + l.theme.PanelMuted.Render("No files in this folder")}
	}
	rows := make([]string, 0, len(l.Contents))
	for _, f := range l.Contents {
		name := util.Truncate(f.DisplayName(), width-len(indent)-14)
		rows = append(rows, indent+FileIcon(f.DisplayName())+" "+name+" "+
			l.theme.PanelMuted.Render(util.HumanSize(f.FileSize)))
	}
	return rows
}
