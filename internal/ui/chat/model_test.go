// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/apitest"
	core "github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/files"
	"github.com/jeranaias/ragchat-tui/internal/folders"
	"github.com/jeranaias/ragchat-tui/internal/markdown"
	"github.com/jeranaias/ragchat-tui/internal/route"
	"github.com/jeranaias/ragchat-tui/internal/session"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// HARNESS
// =============================================================================

type fakeSession struct {
	sess api.Session
	ok   bool
}

func (f fakeSession) Current() (api.Session, bool) { return f.sess, f.ok }

func (f fakeSession) UserID() (string, error) {
	if !f.ok {
		return "", session.ErrNotLoggedIn
	}
	return f.sess.UserID, nil
}

type harness struct {
	srv *apitest.Server
	sel *folders.Selection
	m   Model
}

func newHarness(t *testing.T, open route.Route, loggedIn bool) *harness {
	t.Helper()
	srv := apitest.New(t)
	client := api.New(srv.URL)
	sess := fakeSession{sess: api.Session{UserID: "7", Email: "ada@example.com", Role: "student"}, ok: loggedIn}
	sel := folders.NewSelection()

	m := New(Deps{
		Orchestrator: core.New(client, sess, nil, srv.URL),
		Files:        files.NewManager(client, sess, nil),
		FolderClient: client,
		Selection:    sel,
		Session:      sess,
		Markdown:     markdown.New(markdown.Options{Enabled: false}),
		Theme:        styles.NewTheme(styles.ModeDark),
		Open:         open,
	})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return &harness{srv: srv, sel: sel, m: m}
}

// exec runs one command, giving up on commands that block.
func exec(c tea.Cmd) tea.Msg {
	done := make(chan tea.Msg, 1)
	go func() { done <- c() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(2 * time.Second):
		return nil
	}
}

// run executes cmd, feeding the layout's own result messages back into
// Update until nothing is left. It returns the messages meant for others.
func (h *harness) run(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := exec(c).(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case sendResultMsg, threadLoadedMsg, threadsLoadedMsg, threadDeletedMsg,
			filesLoadedMsg, filesUploadedMsg, fileDeletedMsg,
			foldersLoadedMsg, folderCreatedMsg, folderDeletedMsg, folderExpandedMsg, folderUploadedMsg:
			var next tea.Cmd
			h.m, next = h.m.Update(msg)
			queue = append(queue, next)
		default:
			out = append(out, msg)
		}
	}
	return out
}

func (h *harness) key(t *testing.T, k tea.KeyType) []tea.Msg {
	t.Helper()
	var cmd tea.Cmd
	h.m, cmd = h.m.Update(tea.KeyMsg{Type: k})
	return h.run(t, cmd)
}

func (h *harness) typeText(t *testing.T, s string) []tea.Msg {
	t.Helper()
	var cmd tea.Cmd
	h.m, cmd = h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return h.run(t, cmd)
}

func (h *harness) open(t *testing.T, id string) []tea.Msg {
	t.Helper()
	var cmd tea.Cmd
	h.m, cmd = h.m.switchThread(id)
	return h.run(t, cmd)
}

func (h *harness) lastToast(t *testing.T) string {
	t.Helper()
	toasts := h.m.Toasts()
	require.NotEmpty(t, toasts, "expected an alert")
	return toasts[0].Message
}

func tempFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func hasRoute(msgs []tea.Msg) (route.Route, bool) {
	for _, msg := range msgs {
		if rc, ok := msg.(RouteChangedMsg); ok {
			return rc.Route, true
		}
	}
	return route.Route{}, false
}

// =============================================================================
// SENDING
// =============================================================================

func TestSend_NewThreadAdoptsChatID(t *testing.T) {
	h := newHarness(t, route.NewChat, true)

	h.typeText(t, "hello")
	var cmd tea.Cmd
	h.m, cmd = h.m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	// The optimistic message is shown before the answer arrives.
	require.Len(t, h.m.orch.Messages(), 1)
	assert.True(t, h.m.orch.Loading())
	assert.Equal(t, placeholderLoading, h.m.input.Placeholder)
	assert.Empty(t, h.m.input.Value())

	out := h.run(t, cmd)

	msgs := h.m.orch.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, api.TypeAssistant, msgs[1].Type)
	assert.Equal(t, "Answer: hello", msgs[1].Content)
	assert.Equal(t, placeholderIdle, h.m.input.Placeholder)

	r, ok := hasRoute(out)
	require.True(t, ok, "route change announced")
	assert.NotEmpty(t, r.ChatID)
	assert.Equal(t, r.ChatID, h.m.orch.ActiveThreadID())

	reqs := h.srv.RequestsTo(http.MethodPost, "/query")
	require.Len(t, reqs, 1)
	assert.Nil(t, reqs[0].JSON["chat_id"])
	assert.Equal(t, []interface{}{}, reqs[0].JSON["selected_folders"])
}

func TestSend_BlankInputSendsNothing(t *testing.T) {
	h := newHarness(t, route.NewChat, true)

	h.typeText(t, "   ")
	h.key(t, tea.KeyEnter)

	assert.Empty(t, h.m.orch.Messages())
	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/query"))
}

func TestSend_FailureAppendsErrorMessage(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	h.srv.Fail(http.MethodPost, "/query", http.StatusInternalServerError, "index offline")

	h.typeText(t, "hello")
	h.key(t, tea.KeyEnter)

	msgs := h.m.orch.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "Sorry, I encountered an error: ")
	assert.Contains(t, msgs[1].Content, "index offline")
	assert.False(t, h.m.orch.Loading())
}

func TestSend_ResultDiscardedAfterNewChat(t *testing.T) {
	h := newHarness(t, route.NewChat, true)

	p, err := h.m.orch.Begin("first question")
	require.NoError(t, err)
	result := sendCmd(h.m.orch, p)()

	h.key(t, tea.KeyCtrlN)
	h.m, _ = h.m.Update(result)

	assert.Empty(t, h.m.orch.Messages(), "stale answer never lands")
	assert.Empty(t, h.m.orch.ActiveThreadID())
}

// =============================================================================
// THREADS
// =============================================================================

func TestInit_OpensRequestedThread(t *testing.T) {
	srv := apitest.New(t)
	srv.AddThread("t1", "Physics",
		api.Message{ID: "1", Type: api.TypeUser, Content: "What is light?"},
		api.Message{ID: "2", Type: api.TypeAssistant, Content: "A wave."},
	)
	client := api.New(srv.URL)
	sess := fakeSession{sess: api.Session{UserID: "7"}, ok: true}
	m := New(Deps{
		Orchestrator: core.New(client, sess, nil, srv.URL),
		Files:        files.NewManager(client, sess, nil),
		FolderClient: client,
		Session:      sess,
		Markdown:     markdown.New(markdown.Options{Enabled: false}),
		Open:         route.ChatRoute("t1"),
	})
	h := &harness{srv: srv, m: m}

	assert.True(t, h.m.loadingThread)
	h.run(t, h.m.Init())

	assert.False(t, h.m.loadingThread)
	assert.Equal(t, "t1", h.m.orch.ActiveThreadID())
	require.Len(t, h.m.orch.Messages(), 2)
	require.Len(t, h.m.sidebar.Threads, 1)
	assert.Equal(t, "t1", h.m.sidebar.ActiveID)
}

func TestInit_ThreadLoadFailureAlerts(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(http.MethodGet, "/chats/t1", http.StatusNotFound, "Chat not found")
	client := api.New(srv.URL)
	sess := fakeSession{sess: api.Session{UserID: "7"}, ok: true}
	m := New(Deps{
		Orchestrator: core.New(client, sess, nil, srv.URL),
		Session:      sess,
		Open:         route.ChatRoute("t1"),
	})
	h := &harness{srv: srv, m: m}

	out := h.run(t, h.m.Init())

	assert.Equal(t, "Failed to load chat: Chat not found", h.lastToast(t))
	assert.Empty(t, h.m.orch.Messages())
	assert.Equal(t, route.NewChat, h.m.orch.Route())
	assert.Empty(t, h.m.sidebar.ActiveID)
	var last RouteChangedMsg
	for _, msg := range out {
		if rc, ok := msg.(RouteChangedMsg); ok {
			last = rc
		}
	}
	assert.Equal(t, route.NewChat, last.Route)
}

func TestSwitchThread_FailureKeepsOpenThread(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	h.srv.AddThread("t1", "Physics", api.Message{ID: "1", Type: api.TypeUser, Content: "What is work?"})
	h.run(t, h.m.Init())

	h.open(t, "t1")
	require.Equal(t, "t1", h.m.orch.ActiveThreadID())

	h.srv.Fail(http.MethodGet, "/chats/t2", http.StatusNotFound, "Chat not found")
	h.open(t, "t2")

	assert.Equal(t, "Failed to load chat: Chat not found", h.lastToast(t))
	assert.Equal(t, "t1", h.m.orch.ActiveThreadID())
	assert.Equal(t, "t1", h.m.sidebar.ActiveID)
	require.Len(t, h.m.orch.Messages(), 1)
	assert.Equal(t, route.ChatRoute("t1"), h.m.orch.Route())
}

func TestSidebar_DeleteThreadAfterConfirm(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	h.srv.AddThread("t1", "Physics")
	h.run(t, h.m.Init())
	require.Len(t, h.m.sidebar.Threads, 1)

	h.key(t, tea.KeyTab)
	require.Equal(t, focusSidebar, h.m.focus)
	h.key(t, tea.KeyDown)
	h.typeText(t, "d")
	require.NotNil(t, h.m.confirm)

	h.typeText(t, "y")

	assert.Nil(t, h.m.confirm)
	assert.Equal(t, 0, h.srv.ThreadCount())
	assert.Empty(t, h.m.sidebar.Threads)
	assert.Equal(t, "Chat deleted", h.lastToast(t))
}

func TestSidebar_OpenThread(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	h.srv.AddThread("t1", "Physics", api.Message{ID: "1", Type: api.TypeUser, Content: "hi"})
	h.run(t, h.m.Init())

	h.key(t, tea.KeyTab)
	h.key(t, tea.KeyDown)
	out := h.key(t, tea.KeyEnter)

	assert.Equal(t, focusInput, h.m.focus)
	assert.Equal(t, "t1", h.m.orch.ActiveThreadID())
	assert.Len(t, h.m.orch.Messages(), 1)
	r, ok := hasRoute(out)
	require.True(t, ok)
	assert.Equal(t, "/chat/t1", r.String())
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

func TestAttach_AddsPendingAttachments(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	a := tempFile(t, "a.pdf", "a")
	b := tempFile(t, "b.txt", "b")

	h.key(t, tea.KeyCtrlA)
	require.Equal(t, promptAttach, h.m.prompt)
	h.typeText(t, a+", "+b)
	h.key(t, tea.KeyEnter)

	assert.Equal(t, promptNone, h.m.prompt)
	atts := h.m.orch.Attachments()
	require.Len(t, atts, 2)
	assert.Equal(t, "a.pdf", atts[0].DisplayName())

	h.typeText(t, "summarize")
	h.key(t, tea.KeyEnter)

	reqs := h.srv.RequestsTo(http.MethodPost, "/query")
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].IsMultipart())
	assert.Equal(t, "a.pdf", reqs[0].Files["file_0"])
	assert.Empty(t, h.m.orch.Attachments(), "cleared after the answer")
}

func TestAttach_MissingFileAlerts(t *testing.T) {
	h := newHarness(t, route.NewChat, true)

	h.key(t, tea.KeyCtrlA)
	h.typeText(t, "/does/not/exist.pdf")
	h.key(t, tea.KeyEnter)

	assert.Empty(t, h.m.orch.Attachments())
	assert.Equal(t, "Cannot attach: file not found: /does/not/exist.pdf", h.lastToast(t))
}

func TestAttach_ClearKeyDropsAll(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	h.m.orch.SetAttachments([]api.Attachment{{Name: "a.pdf", Data: []byte("a")}})

	h.key(t, tea.KeyCtrlX)

	assert.Empty(t, h.m.orch.Attachments())
}

func TestSplitPaths(t *testing.T) {
	assert.Equal(t, []string{"a.pdf", "b c.txt"}, splitPaths(`a.pdf, "b c.txt"`))
	assert.Equal(t, []string{"a.pdf", "b.txt"}, splitPaths("  a.pdf   b.txt "))
	assert.Empty(t, splitPaths("   "))
}

// =============================================================================
// FILES PANEL
// =============================================================================

func TestFilesPanel_UploadAndDelete(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	p := tempFile(t, "notes.txt", "hello")

	h.key(t, tea.KeyCtrlF)
	require.Equal(t, panelFiles, h.m.panel)
	assert.Empty(t, h.m.fileList.Files)

	h.typeText(t, "u")
	require.Equal(t, promptUpload, h.m.prompt)
	h.typeText(t, p)
	h.key(t, tea.KeyEnter)
	assert.Equal(t, "Files uploaded successfully!", h.lastToast(t))

	h.typeText(t, "r")
	require.Len(t, h.m.fileList.Files, 1)
	assert.Equal(t, "notes.txt", h.m.fileList.Files[0].DisplayName())

	h.typeText(t, "d")
	require.NotNil(t, h.m.confirm)
	h.typeText(t, "y")

	assert.Equal(t, "File deleted successfully", h.lastToast(t))
	assert.Empty(t, h.m.fileList.Files)
}

func TestFilesPanel_UploadFailureKeepsList(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	h.srv.Fail(http.MethodPost, "/api/file/upload/7", http.StatusBadRequest, "No files provided")
	p := tempFile(t, "notes.txt", "hello")

	h.key(t, tea.KeyCtrlF)
	h.typeText(t, "u")
	h.typeText(t, p)
	h.key(t, tea.KeyEnter)

	assert.Equal(t, "Upload failed: No files provided", h.lastToast(t))
	assert.Equal(t, panelFiles, h.m.panel)
}

func TestFilesPanel_DownloadIsAcknowledged(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	p := tempFile(t, "notes.txt", "hello")
	h.key(t, tea.KeyCtrlF)
	h.typeText(t, "u")
	h.typeText(t, p)
	h.key(t, tea.KeyEnter)
	h.typeText(t, "r")

	h.typeText(t, "o")

	assert.Equal(t, "Download functionality not implemented yet", h.lastToast(t))
}

func TestFilesPanel_RequiresSession(t *testing.T) {
	h := newHarness(t, route.NewChat, false)

	h.key(t, tea.KeyCtrlF)

	assert.Equal(t, panelNone, h.m.panel)
	assert.Equal(t, "Please log in to view files", h.lastToast(t))
	assert.Empty(t, h.srv.Requests())
}

// =============================================================================
// FOLDERS PANEL
// =============================================================================

func TestFoldersPanel_SelectionScopesQueries(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	research := h.srv.AddFolder("7", "Research")
	h.srv.AddFolder("7", "Admin")

	h.key(t, tea.KeyCtrlO)
	require.Len(t, h.m.folderLst.Folders, 2)

	h.key(t, tea.KeySpace)
	assert.True(t, h.m.folderLst.Selected[research.FolderID])
	assert.True(t, h.sel.Contains(research.FolderID))

	h.key(t, tea.KeyEsc)
	require.Equal(t, panelNone, h.m.panel)

	h.typeText(t, "question")
	h.key(t, tea.KeyEnter)

	reqs := h.srv.RequestsTo(http.MethodPost, "/query")
	require.Len(t, reqs, 1)
	assert.Equal(t, []interface{}{research.FolderID}, reqs[0].JSON["selected_folders"])
}

func TestFoldersPanel_FailedReloadKeepsSelection(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	research := h.srv.AddFolder("7", "Research")

	h.key(t, tea.KeyCtrlO)
	h.key(t, tea.KeySpace)
	require.True(t, h.sel.Contains(research.FolderID))
	h.key(t, tea.KeyEsc)

	h.srv.Fail(http.MethodGet, "/api/folders/7", http.StatusInternalServerError, "db locked")
	h.key(t, tea.KeyCtrlO)
	assert.Equal(t, "Error loading folders: db locked", h.lastToast(t))
	h.key(t, tea.KeyEsc)

	h.typeText(t, "question")
	h.key(t, tea.KeyEnter)

	reqs := h.srv.RequestsTo(http.MethodPost, "/query")
	require.Len(t, reqs, 1)
	assert.Equal(t, []interface{}{research.FolderID}, reqs[0].JSON["selected_folders"])
}

func TestFoldersPanel_CreateFolder(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	h.key(t, tea.KeyCtrlO)

	h.typeText(t, "n")
	require.Equal(t, promptFolderName, h.m.prompt)
	h.typeText(t, "  Research  ")
	h.key(t, tea.KeyEnter)

	assert.Equal(t, "Folder created successfully!", h.lastToast(t))
	require.Len(t, h.m.folderLst.Folders, 1)
	assert.Equal(t, "Research", h.m.folderLst.Folders[0].FolderName)

	h.typeText(t, "n")
	h.typeText(t, "Research")
	h.key(t, tea.KeyEnter)

	assert.Equal(t, "Error: Folder name already exists", h.lastToast(t))
	assert.Len(t, h.m.folderLst.Folders, 1)
}

func TestFoldersPanel_BlankNameSendsNothing(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	h.key(t, tea.KeyCtrlO)

	h.typeText(t, "n")
	h.typeText(t, "   ")
	h.key(t, tea.KeyEnter)

	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/api/folders/7"))
}

func TestFoldersPanel_DeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	f := h.srv.AddFolder("7", "Research")
	h.key(t, tea.KeyCtrlO)
	h.key(t, tea.KeySpace)

	h.typeText(t, "d")
	require.NotNil(t, h.m.confirm)
	assert.Equal(t, folders.DeleteConfirmation, h.m.confirm.Question)
	h.typeText(t, "n")

	assert.Nil(t, h.m.confirm)
	assert.Empty(t, h.srv.RequestsTo(http.MethodDelete, "/api/folders/7/"+f.FolderID))

	h.typeText(t, "d")
	h.typeText(t, "y")

	assert.Equal(t, "Folder deleted successfully!", h.lastToast(t))
	assert.Empty(t, h.m.folderLst.Folders)
	assert.False(t, h.sel.Contains(f.FolderID), "deleted folder leaves the selection")
}

func TestFoldersPanel_ExpandAndUpload(t *testing.T) {
	h := newHarness(t, route.NewChat, true)
	f := h.srv.AddFolder("7", "Research")
	p := tempFile(t, "paper.pdf", "pdf")
	h.key(t, tea.KeyCtrlO)

	h.key(t, tea.KeyEnter)
	assert.Equal(t, f.FolderID, h.m.folderLst.Expanded)
	assert.NotNil(t, h.m.folderLst.Contents)
	assert.Empty(t, h.m.folderLst.Contents)

	h.typeText(t, "u")
	require.Equal(t, promptFolderUpload, h.m.prompt)
	assert.Contains(t, h.m.promptTitle(), "Upload to Research")
	h.typeText(t, p)
	h.key(t, tea.KeyEnter)

	assert.Equal(t, "Files uploaded successfully!", h.lastToast(t))
	require.Len(t, h.m.folderLst.Folders, 1)
	assert.Equal(t, 1, h.m.folderLst.Folders[0].FileCount)

	reqs := h.srv.RequestsTo(http.MethodPost, "/api/file/upload/7")
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{f.FolderID}, reqs[0].Form["folder_id"])
}

// =============================================================================
// KEYS AND VIEW
// =============================================================================

func TestKeys_ThemeAndLogoutAreForwarded(t *testing.T) {
	h := newHarness(t, route.NewChat, true)

	out := h.key(t, tea.KeyCtrlT)
	require.Len(t, out, 1)
	assert.IsType(t, ToggleThemeMsg{}, out[0])

	out = h.key(t, tea.KeyCtrlL)
	require.Len(t, out, 1)
	assert.IsType(t, LogoutMsg{}, out[0])
}

func TestView_ShowsLayout(t *testing.T) {
	h := newHarness(t, route.NewChat, true)

	view := h.m.View()
	assert.Contains(t, view, "RAG Chat")
	assert.Contains(t, view, "ada@example.com")
	// The cursor covers the placeholder's first letter.
	assert.Contains(t, view, "sk a question...")
	assert.Contains(t, view, "Start a conversation")
	assert.Contains(t, view, "/chat")
}
