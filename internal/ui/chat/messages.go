// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragchat-tui/internal/api"
	core "github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/events"
	"github.com/jeranaias/ragchat-tui/internal/files"
	"github.com/jeranaias/ragchat-tui/internal/folders"
	"github.com/jeranaias/ragchat-tui/internal/route"
)

// =============================================================================
// OUTBOUND MESSAGES
// =============================================================================

// LogoutMsg asks the root model to clear the session and show the login form.
type LogoutMsg struct{}

// RouteChangedMsg reports the chat view's current route.
type RouteChangedMsg struct {
	Route route.Route
}

// =============================================================================
// INTERNAL MESSAGES
// =============================================================================

type sendResultMsg struct {
	result core.Result
}

type threadLoadedMsg struct {
	sw     core.Switch
	detail api.ThreadDetail
	err    error
}

type threadsLoadedMsg struct {
	threads []api.Thread
	err     error
}

type threadDeletedMsg struct {
	id  string
	err error
}

type busEventMsg struct {
	event events.Event
	ch    <-chan events.Event
}

type filesLoadedMsg struct {
	files []api.File
	err   error
}

type filesUploadedMsg struct {
	err error
}

type fileDeletedMsg struct {
	files []api.File
	err   error
}

type foldersLoadedMsg struct {
	mgr *folders.Manager
	err error
}

type folderCreatedMsg struct {
	mgr *folders.Manager
	err error
}

type folderDeletedMsg struct {
	mgr *folders.Manager
	err error
}

type folderExpandedMsg struct {
	mgr   *folders.Manager
	id    string
	open  bool
	files []api.File
	err   error
}

type folderUploadedMsg struct {
	mgr *folders.Manager
	err error
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// sendCmd performs the HTTP call for a started send.
func sendCmd(o *core.Orchestrator, p core.Pending) tea.Cmd {
	return func() tea.Msg {
		return sendResultMsg{result: o.Execute(p)}
	}
}

// switchCmd fetches the thread for a started switch.
func switchCmd(o *core.Orchestrator, sw core.Switch) tea.Cmd {
	return func() tea.Msg {
		detail, err := o.FetchThread(sw)
		return threadLoadedMsg{sw: sw, detail: detail, err: err}
	}
}

func refreshThreadsCmd(ctx context.Context, o *core.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		threads, err := o.RefreshThreads(ctx)
		return threadsLoadedMsg{threads: threads, err: err}
	}
}

func deleteThreadCmd(ctx context.Context, o *core.Orchestrator, id string) tea.Cmd {
	return func() tea.Msg {
		return threadDeletedMsg{id: id, err: o.DeleteThread(ctx, id)}
	}
}

// waitForEvent blocks on ch and re-arms after each event. A closed channel
// ends the loop.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return busEventMsg{event: e, ch: ch}
	}
}

func listFilesCmd(ctx context.Context, m *files.Manager) tea.Cmd {
	return func() tea.Msg {
		list, err := m.List(ctx)
		return filesLoadedMsg{files: list, err: err}
	}
}

func uploadFilesCmd(ctx context.Context, m *files.Manager, atts []api.Attachment) tea.Cmd {
	return func() tea.Msg {
		_, err := m.Upload(ctx, atts)
		return filesUploadedMsg{err: err}
	}
}

func deleteFileCmd(ctx context.Context, m *files.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		list, err := m.Delete(ctx, id)
		return fileDeletedMsg{files: list, err: err}
	}
}

func loadFoldersCmd(ctx context.Context, m *folders.Manager) tea.Cmd {
	return func() tea.Msg {
		_, err := m.Load(ctx)
		return foldersLoadedMsg{mgr: m, err: err}
	}
}

func createFolderCmd(ctx context.Context, m *folders.Manager, name string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.Create(ctx, name)
		return folderCreatedMsg{mgr: m, err: err}
	}
}

func deleteFolderCmd(ctx context.Context, m *folders.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		return folderDeletedMsg{mgr: m, err: m.Delete(ctx, id)}
	}
}

func expandFolderCmd(ctx context.Context, m *folders.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		open, list, err := m.Expand(ctx, id)
		return folderExpandedMsg{mgr: m, id: id, open: open, files: list, err: err}
	}
}

func uploadIntoFolderCmd(ctx context.Context, m *folders.Manager, id string, atts []api.Attachment) tea.Cmd {
	return func() tea.Msg {
		_, err := m.UploadInto(ctx, id, atts)
		return folderUploadedMsg{mgr: m, err: err}
	}
}
