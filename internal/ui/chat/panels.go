// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/files"
	"github.com/jeranaias/ragchat-tui/internal/folders"
)

// =============================================================================
// FILES PANEL
// =============================================================================

func (m Model) toggleFilesPanel() (Model, tea.Cmd) {
	if m.panel == panelFiles {
		m.panel = panelNone
		m.layout()
		return m, nil
	}
	if m.files == nil {
		return m, nil
	}
	if _, err := m.sess.UserID(); err != nil {
		return m, m.alertError("Please log in to view files")
	}
	m.panel = panelFiles
	if cached, ok := m.files.Cached(); ok {
		m.fileList.SetFiles(cached)
	} else {
		m.fileList.Loading = true
	}
	m.layout()
	return m, listFilesCmd(m.ctx, m.files)
}

func (m Model) handleFilesKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.panel = panelNone
		m.layout()
	case key.Matches(msg, m.keys.Up):
		m.fileList.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.fileList.MoveDown()
	case key.Matches(msg, m.keys.Upload):
		if _, err := m.sess.UserID(); err != nil {
			return m, m.alertError("Please log in to upload files")
		}
		return m.openPrompt(promptUpload, ""), nil
	case key.Matches(msg, m.keys.Refresh):
		m.files.Invalidate()
		m.fileList.Loading = true
		return m, listFilesCmd(m.ctx, m.files)
	case key.Matches(msg, m.keys.Download):
		if f, ok := m.fileList.Selected(); ok {
			if err := m.files.Download(m.ctx, f.FileID); err != nil {
				return m, m.alertInfo("Download functionality not implemented yet")
			}
		}
	case key.Matches(msg, m.keys.Delete):
		if f, ok := m.fileList.Selected(); ok {
			m.askConfirm("Delete file",
				fmt.Sprintf("Are you sure you want to delete %q?", f.DisplayName()),
				confirmAction{kind: "file", id: f.FileID})
		}
	}
	return m, nil
}

// =============================================================================
// FOLDERS PANEL
// =============================================================================

// toggleFoldersPanel opens the panel with a fresh folder manager. The
// selection is shared with earlier managers, and the previous manager keeps
// scoping queries until the new one has loaded its list.
func (m Model) toggleFoldersPanel() (Model, tea.Cmd) {
	if m.panel == panelFolders {
		m.panel = panelNone
		m.layout()
		return m, nil
	}
	if m.fc == nil {
		return m, nil
	}
	if _, err := m.sess.UserID(); err != nil {
		return m, m.alertError("Please log in to view folders")
	}

	m.folders = folders.NewManager(m.fc, m.sess, m.sel, m.bus).WithLogger(m.log)
	m.panel = panelFolders
	m.folderLst.Folders = nil
	m.folderLst.Expanded = ""
	m.folderLst.Contents = nil
	m.folderLst.Loading = true
	m.layout()
	return m, loadFoldersCmd(m.ctx, m.folders)
}

func (m Model) handleFoldersKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.panel = panelNone
		m.layout()
	case key.Matches(msg, m.keys.Up):
		m.folderLst.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.folderLst.MoveDown()
	case key.Matches(msg, m.keys.Toggle):
		if f, ok := m.folderLst.Current(); ok {
			m.folders.Toggle(f.FolderID)
			m.syncFolders()
		}
	case key.Matches(msg, m.keys.Open):
		f, ok := m.folderLst.Current()
		if !ok {
			return m, nil
		}
		if m.folderLst.Expanded != f.FolderID {
			m.folderLst.Expanded = f.FolderID
			m.folderLst.Contents, _ = m.folders.Contents(f.FolderID)
		} else {
			m.folderLst.Expanded = ""
		}
		return m, expandFolderCmd(m.ctx, m.folders, f.FolderID)
	case key.Matches(msg, m.keys.Create):
		return m.openPrompt(promptFolderName, ""), nil
	case key.Matches(msg, m.keys.Upload):
		if f, ok := m.folderLst.Current(); ok {
			return m.openPrompt(promptFolderUpload, f.FolderID), nil
		}
	case key.Matches(msg, m.keys.Refresh):
		m.folderLst.Loading = true
		return m, loadFoldersCmd(m.ctx, m.folders)
	case key.Matches(msg, m.keys.Delete):
		if f, ok := m.folderLst.Current(); ok {
			m.askConfirm("Delete folder", folders.DeleteConfirmation, confirmAction{kind: "folder", id: f.FolderID})
		}
	}
	return m, nil
}

// syncFolders copies the folder manager's state into the panel.
func (m *Model) syncFolders() {
	if m.folders == nil {
		return
	}
	if m.folders.Loaded() {
		m.folderLst.SetFolders(m.folders.Folders())
	}
	m.folderLst.SetSelected(m.folders.SelectedIDs())
	m.folderLst.Expanded = m.folders.Expanded()
	m.folderLst.Contents = nil
	if m.folderLst.Expanded != "" {
		m.folderLst.Contents, _ = m.folders.Contents(m.folderLst.Expanded)
	}
	m.layout()
}

// =============================================================================
// PROMPTS
// =============================================================================

func (m Model) openPrompt(p prompt, folderID string) Model {
	m.prompt = p
	m.promptFolderID = folderID
	m.promptIn.Reset()
	switch p {
	case promptFolderName:
		m.promptIn.Placeholder = "Folder name"
	default:
		m.promptIn.Placeholder = "path/to/file.pdf, other.txt"
	}
	m.promptIn.Width = m.width - 8
	m.promptIn.Focus()
	m.input.Blur()
	return m
}

func (m Model) closePrompt() Model {
	m.prompt = promptNone
	m.promptFolderID = ""
	m.promptIn.Blur()
	if m.focus == focusInput {
		m.input.Focus()
	}
	return m
}

func (m Model) promptTitle() string {
	switch m.prompt {
	case promptAttach:
		return "Attach files to the next question"
	case promptUpload:
		return "Upload files (" + files.SizeGuidance + ")"
	case promptFolderName:
		return "New folder"
	case promptFolderUpload:
		name := m.promptFolderID
		for _, f := range m.folderLst.Folders {
			if f.FolderID == m.promptFolderID {
				name = f.FolderName
			}
		}
		return "Upload to " + name + " (" + files.SizeGuidance + ")"
	}
	return ""
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.closePrompt(), nil
	case tea.KeyEnter:
		return m.submitPrompt()
	}
	var cmd tea.Cmd
	m.promptIn, cmd = m.promptIn.Update(msg)
	return m, cmd
}

func (m Model) submitPrompt() (Model, tea.Cmd) {
	value := m.promptIn.Value()
	kind, folderID := m.prompt, m.promptFolderID
	m = m.closePrompt()

	if kind == promptFolderName {
		name := folders.NormalizeName(value)
		if name == "" || m.folders == nil {
			return m, nil
		}
		return m, createFolderCmd(m.ctx, m.folders, name)
	}

	atts, err := attachmentsFromPaths(value)
	if err != nil {
		return m, m.alertError("Cannot attach: " + err.Error())
	}
	if len(atts) == 0 {
		return m, nil
	}

	switch kind {
	case promptAttach:
		for _, a := range atts {
			m.orch.AddAttachment(a)
		}
		m.layout()
		return m, nil
	case promptUpload:
		return m, uploadFilesCmd(m.ctx, m.files, atts)
	case promptFolderUpload:
		if m.folders == nil {
			return m, nil
		}
		return m, uploadIntoFolderCmd(m.ctx, m.folders, folderID, atts)
	}
	return m, nil
}

// splitPaths splits on commas when present, otherwise on whitespace.
func splitPaths(s string) []string {
	var parts []string
	if strings.Contains(s, ",") {
		parts = strings.Split(s, ",")
	} else {
		parts = strings.Fields(s)
	}
	out := parts[:0]
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// attachmentsFromPaths turns typed paths into attachments. Files are read
// when sent; only existence is checked here.
func attachmentsFromPaths(s string) ([]api.Attachment, error) {
	paths := splitPaths(s)
	atts := make([]api.Attachment, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("file not found: %s", p)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("not a file: %s", p)
		}
		atts = append(atts, api.FileAttachment(p))
	}
	return atts, nil
}
