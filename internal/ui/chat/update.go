// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragchat-tui/internal/api"
	core "github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/events"
	"github.com/jeranaias/ragchat-tui/internal/session"
	"github.com/jeranaias/ragchat-tui/internal/ui/components"
)

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.layout()
		m.refreshConversation()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.orch.Loading() && !m.loadingThread {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshConversation()
		return m, cmd

	case components.ToastTickMsg:
		if m.toasts.Tick() {
			return m, components.ToastTickCmd()
		}
		return m, nil

	// Chat
	case sendResultMsg:
		return m.handleSendResult(msg)
	case threadLoadedMsg:
		return m.handleThreadLoaded(msg)
	case threadsLoadedMsg:
		m.sidebar.Loading = false
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("thread list failed")
			return m, nil
		}
		m.sidebar.SetThreads(msg.threads)
		return m, nil
	case threadDeletedMsg:
		if msg.err != nil {
			return m, m.alertError("Failed to delete chat: " + api.ServerMessage(msg.err, msg.err.Error()))
		}
		m.sidebar.SetThreads(m.orch.Threads())
		m.sidebar.ActiveID = m.orch.ActiveThreadID()
		m.refreshConversation()
		return m, tea.Batch(m.alertSuccess("Chat deleted"), m.routeChanged())

	case busEventMsg:
		return m.handleBusEvent(msg)

	// Files
	case filesLoadedMsg:
		m.fileList.Loading = false
		if msg.err != nil {
			if errors.Is(msg.err, session.ErrNotLoggedIn) {
				return m, m.alertError("Please log in to view files")
			}
			return m, m.alertError("Failed to load files: " + api.ServerMessage(msg.err, msg.err.Error()))
		}
		m.fileList.SetFiles(msg.files)
		return m, nil
	case filesUploadedMsg:
		if msg.err != nil {
			return m, m.alertError(uploadErrorText(msg.err))
		}
		return m, m.alertSuccess("Files uploaded successfully!")
	case fileDeletedMsg:
		if msg.err != nil {
			return m, m.alertError("Failed to delete file: " + api.ServerMessage(msg.err, msg.err.Error()))
		}
		m.fileList.SetFiles(msg.files)
		return m, m.alertSuccess("File deleted successfully")

	// Folders
	case foldersLoadedMsg:
		if msg.mgr != m.folders {
			return m, nil
		}
		m.folderLst.Loading = false
		if msg.err != nil {
			if errors.Is(msg.err, session.ErrNotLoggedIn) {
				return m, m.alertError("Please log in to view folders")
			}
			return m, m.alertError("Error loading folders: " + api.ServerMessage(msg.err, msg.err.Error()))
		}
		m.scope.set(m.folders)
		m.syncFolders()
		return m, nil
	case folderCreatedMsg:
		if msg.err != nil {
			return m, m.alertError(folderCreateErrorText(msg.err))
		}
		m.syncFolders()
		return m, m.alertSuccess("Folder created successfully!")
	case folderDeletedMsg:
		if msg.err != nil {
			return m, m.alertError("Error deleting folder: " + api.ServerMessage(msg.err, msg.err.Error()))
		}
		m.syncFolders()
		return m, m.alertSuccess("Folder deleted successfully!")
	case folderExpandedMsg:
		if msg.mgr != m.folders {
			return m, nil
		}
		if msg.err != nil {
			m.syncFolders()
			return m, m.alertError("Error loading folder files: " + api.ServerMessage(msg.err, msg.err.Error()))
		}
		m.syncFolders()
		return m, nil
	case folderUploadedMsg:
		if msg.err != nil {
			return m, m.alertError(uploadErrorText(msg.err))
		}
		m.syncFolders()
		return m, m.alertSuccess("Files uploaded successfully!")
	}
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Theme):
		return m, func() tea.Msg { return ToggleThemeMsg{} }
	case key.Matches(msg, m.keys.Logout):
		return m, func() tea.Msg { return LogoutMsg{} }
	case key.Matches(msg, m.keys.NewChat):
		return m.newChat()
	case key.Matches(msg, m.keys.Files):
		return m.toggleFilesPanel()
	case key.Matches(msg, m.keys.Folders):
		return m.toggleFoldersPanel()
	case key.Matches(msg, m.keys.Attach):
		return m.openPrompt(promptAttach, ""), nil
	case key.Matches(msg, m.keys.ClearAttach):
		m.orch.SetAttachments(nil)
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	switch m.panel {
	case panelFiles:
		return m.handleFilesKey(msg)
	case panelFolders:
		return m.handleFoldersKey(msg)
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.FocusSwitch):
		if m.theme.SidebarWidth() > 0 {
			m = m.setFocus(focusSidebar)
		}
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case msg.Type == tea.KeyBackspace && m.input.Value() == "":
		// Backspace on an empty input drops the last attachment.
		if n := len(m.orch.Attachments()); n > 0 {
			m.orch.RemoveAttachment(n - 1)
			m.layout()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.FocusSwitch), key.Matches(msg, m.keys.Close):
		return m.setFocus(focusInput), nil
	case key.Matches(msg, m.keys.Up):
		m.sidebar.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.sidebar.MoveDown()
	case key.Matches(msg, m.keys.Open):
		var cmd tea.Cmd
		if t, newChat := m.sidebar.Selected(); newChat {
			m, cmd = m.newChat()
		} else {
			m, cmd = m.switchThread(t.ID)
		}
		return m.setFocus(focusInput), cmd
	case key.Matches(msg, m.keys.Delete):
		if t, newChat := m.sidebar.Selected(); !newChat {
			m.askConfirm("Delete chat", "Are you sure you want to delete this chat?", confirmAction{kind: "thread", id: t.ID})
		}
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "tab", "shift+tab":
		m.confirm.Yes = !m.confirm.Yes
		return m, nil
	case "y":
		m.confirm.Yes = true
		return m.resolveConfirm()
	case "n", "esc":
		m.confirm = nil
		return m, nil
	case "enter":
		return m.resolveConfirm()
	}
	return m, nil
}

func (m *Model) askConfirm(title, question string, action confirmAction) {
	m.confirm = &components.Confirm{Title: title, Question: question}
	m.pendingConfirm = action
}

func (m Model) resolveConfirm() (Model, tea.Cmd) {
	yes := m.confirm.Yes
	action := m.pendingConfirm
	m.confirm = nil
	m.pendingConfirm = confirmAction{}
	if !yes {
		return m, nil
	}
	switch action.kind {
	case "thread":
		return m, deleteThreadCmd(m.ctx, m.orch, action.id)
	case "file":
		return m, deleteFileCmd(m.ctx, m.files, action.id)
	case "folder":
		if m.folders == nil {
			return m, nil
		}
		return m, deleteFolderCmd(m.ctx, m.folders, action.id)
	}
	return m, nil
}

func (m Model) setFocus(f focus) Model {
	m.focus = f
	m.sidebar.Focused = f == focusSidebar
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	return m
}

// =============================================================================
// CHAT ACTIONS
// =============================================================================

func (m Model) submit() (Model, tea.Cmd) {
	p, err := m.orch.Begin(m.input.Value())
	switch {
	case errors.Is(err, core.ErrEmptyQuery), errors.Is(err, core.ErrBusy):
		return m, nil
	case errors.Is(err, session.ErrNotLoggedIn):
		return m, m.alertError("Please log in to send messages")
	case err != nil:
		return m, m.alertError(err.Error())
	}

	m.input.Reset()
	m.input.Placeholder = placeholderLoading
	m.refreshConversation()
	return m, tea.Batch(sendCmd(m.orch, p), m.spinner.Tick)
}

func (m Model) handleSendResult(msg sendResultMsg) (Model, tea.Cmd) {
	c := m.orch.Complete(msg.result)
	if c.Outcome == core.OutcomeStale {
		return m, nil
	}
	m.input.Placeholder = placeholderIdle
	m.layout()
	m.refreshConversation()
	if c.AdoptedThreadID != "" {
		m.sidebar.ActiveID = c.AdoptedThreadID
		return m, m.routeChanged()
	}
	return m, nil
}

func (m Model) switchThread(id string) (Model, tea.Cmd) {
	sw := m.orch.BeginSwitch(id)
	if sw.Noop() {
		return m, nil
	}
	m.loadingThread = true
	m.input.Placeholder = placeholderIdle
	m.sidebar.ActiveID = id
	m.refreshConversation()
	return m, tea.Batch(switchCmd(m.orch, sw), m.spinner.Tick, m.routeChanged())
}

func (m Model) handleThreadLoaded(msg threadLoadedMsg) (Model, tea.Cmd) {
	applied, err := m.orch.CompleteSwitch(msg.sw, msg.detail, msg.err)
	if !applied {
		return m, nil
	}
	m.loadingThread = false
	m.refreshConversation()
	m.viewport.GotoBottom()
	if err != nil {
		// The previous thread is back; follow it in the sidebar and route.
		m.sidebar.ActiveID = m.orch.ActiveThreadID()
		return m, tea.Batch(
			m.alertError("Failed to load chat: "+api.ServerMessage(msg.err, msg.err.Error())),
			m.routeChanged(),
		)
	}
	return m, nil
}

func (m Model) newChat() (Model, tea.Cmd) {
	m.orch.NewChat()
	m.loadingThread = false
	m.input.Placeholder = placeholderIdle
	m.sidebar.ActiveID = ""
	m.refreshConversation()
	return m, m.routeChanged()
}

func (m Model) routeChanged() tea.Cmd {
	r := m.orch.Route()
	return tea.Batch(
		func() tea.Msg { return RouteChangedMsg{Route: r} },
		tea.SetWindowTitle(windowTitle(r)),
	)
}

func (m Model) handleBusEvent(msg busEventMsg) (Model, tea.Cmd) {
	next := waitForEvent(msg.ch)
	switch msg.event.Topic {
	case events.TopicThreadsUpdated:
		m.sidebar.Loading = true
		return m, tea.Batch(next, refreshThreadsCmd(m.ctx, m.orch))
	case events.TopicFilesUpdated:
		if m.panel == panelFiles && m.files != nil {
			m.fileList.Loading = true
			return m, tea.Batch(next, listFilesCmd(m.ctx, m.files))
		}
	case events.TopicFoldersUpdated:
		if m.folders != nil {
			m.syncFolders()
		}
	}
	return m, next
}

// =============================================================================
// ALERTS
// =============================================================================

func (m Model) alertSuccess(text string) tea.Cmd {
	m.toasts.Success(text)
	return m.startToastTick()
}

func (m Model) alertError(text string) tea.Cmd {
	m.log.Debug().Str("alert", text).Msg("showing error")
	m.toasts.Error(text)
	return m.startToastTick()
}

func (m Model) alertInfo(text string) tea.Cmd {
	m.toasts.Info(text)
	return m.startToastTick()
}

// startToastTick returns the expiry tick. Extra ticks are harmless: each
// one stops re-arming once the stack is empty.
func (m Model) startToastTick() tea.Cmd {
	return components.ToastTickCmd()
}

func uploadErrorText(err error) string {
	if errors.Is(err, session.ErrNotLoggedIn) {
		return "Please log in to upload files"
	}
	return "Upload failed: " + api.ServerMessage(err, err.Error())
}

func folderCreateErrorText(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return "Error: " + apiErr.Message
	}
	return fmt.Sprintf("Error creating folder: %v", err)
}
