// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

// =============================================================================
// FILE ICONS AND FORMATTING
// =============================================================================

// FileIcon picks an icon from the file extension.
func FileIcon(name string) string {
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".") {
	case "pdf", "txt":
		return "📄"
	case "jpg", "jpeg", "png", "gif":
		return "🖼️"
	case "doc", "docx":
		return "📝"
	case "xls", "xlsx":
		return "📊"
	default:
		return "📁"
	}
}

// FormatDate renders a backend timestamp as "Jan 2, 2006, 03:04 PM", or the
// raw value when it cannot be parsed.
func FormatDate(ts string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Local().Format("Jan 2, 2006, 03:04 PM")
		}
	}
	return ts
}

// =============================================================================
// FILE LIST PANEL
// =============================================================================

// FileList renders the user's uploaded files.
type FileList struct {
	Title   string
	Files   []api.File
	Loading bool
	Width   int
	Height  int

	cursor int
	theme  *styles.Theme
}

// NewFileList creates an empty panel.
func NewFileList(theme *styles.Theme) *FileList {
	return &FileList{Title: "Your Files", Width: 60, Height: 16, theme: theme}
}

// SetFiles replaces the rows, keeping the cursor in range.
func (l *FileList) SetFiles(files []api.File) {
	l.Files = files
	l.Loading = false
	if l.cursor >= len(files) {
		l.cursor = len(files) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

// MoveUp moves the cursor one row up.
func (l *FileList) MoveUp() {
	if l.cursor > 0 {
		l.cursor--
	}
}

// MoveDown moves the cursor one row down.
func (l *FileList) MoveDown() {
	if l.cursor < len(l.Files)-1 {
		l.cursor++
	}
}

// Selected returns the file under the cursor.
func (l *FileList) Selected() (api.File, bool) {
	if l.cursor < 0 || l.cursor >= len(l.Files) {
		return api.File{}, false
	}
	return l.Files[l.cursor], true
}

// View renders the panel body.
func (l *FileList) View() string {
	inner := l.Width - 4
	var rows []string
	rows = append(rows, l.theme.PanelTitle.Render(l.Title))

	switch {
	case l.Loading:
		rows = append(rows, l.theme.PanelMuted.Render("Loading files..."))
	case len(l.Files) == 0:
		rows = append(rows,
			"📁 "+l.theme.PanelRow.Render("No files uploaded yet"),
			l.theme.PanelMuted.Render("Upload some files to get started"))
	default:
		for i, f := range l.Files {
			rows = append(rows, l.fileRow(f, i == l.cursor, inner))
		}
	}
	return strings.Join(rows, "\n")
}

func (l *FileList) fileRow(f api.File, cursor bool, width int) string {
	meta := fmt.Sprintf("%s  %s", util.HumanSize(f.FileSize), FormatDate(f.CreatedAt))
	nameWidth := width - len(meta) - 6
	if nameWidth < 10 {
		nameWidth = 10
	}
	name := util.PadRight(util.Truncate(f.DisplayName(), nameWidth), nameWidth)
	line := FileIcon(f.DisplayName()) + " " + name + "  " + l.theme.PanelMuted.Render(meta)
	if cursor {
		return l.theme.PanelCursor.Render("> ") + line
	}
	return "  " + line
}
