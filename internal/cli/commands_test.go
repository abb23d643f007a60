// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/apitest"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/files"
	"github.com/jeranaias/ragchat-tui/internal/folders"
	"github.com/jeranaias/ragchat-tui/internal/markdown"
	"github.com/jeranaias/ragchat-tui/internal/session"
	"github.com/jeranaias/ragchat-tui/internal/storage"
)

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	srv    *apitest.Server
	env    *Env
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	home   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("RAGCHAT_HOME", home)

	kv, err := storage.NewFileKV(filepath.Join(home, "state"))
	require.NoError(t, err)

	srv := apitest.New(t)
	h := &harness{
		srv:    srv,
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		home:   home,
	}
	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	h.env = &Env{
		Config:   cfg,
		Client:   api.New(srv.URL),
		Sessions: session.NewProvider(session.NewStore(kv, zerolog.Nop())),
		Log:      zerolog.Nop(),
		Stdin:    strings.NewReader(""),
		Stdout:   h.stdout,
		Stderr:   h.stderr,
	}
	return h
}

// login registers a user on the fake and stores its session.
func (h *harness) login(t *testing.T) string {
	t.Helper()
	id := h.srv.AddUser("ada@example.com", "secret", api.RoleStudent)
	require.NoError(t, h.env.Sessions.Save(api.Session{UserID: id, Email: "ada@example.com", Role: api.RoleStudent}))
	return id
}

func (h *harness) stdin(s string) {
	h.env.Stdin = strings.NewReader(s)
	h.env.in = nil
}

func (h *harness) run(t *testing.T, argv ...string) error {
	t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()
	cmd, args, err := Parse(argv)
	require.NoError(t, err)
	return Run(context.Background(), h.env, cmd, args)
}

func (h *harness) json(t *testing.T) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &resp), h.stdout.String())
	return resp
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

// =============================================================================
// AUTH
// =============================================================================

func TestLogin_FromPipedInput(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("ada@example.com", "secret", api.RoleTeacher)
	h.stdin("ada@example.com\nsecret\n")

	require.NoError(t, h.run(t, "login"))
	assert.Contains(t, h.stdout.String(), "ada@example.com (teacher)")
	assert.Contains(t, h.stderr.String(), "Email: ")

	sess, ok := h.env.Sessions.Current()
	require.True(t, ok)
	assert.Equal(t, "1", sess.UserID)
	assert.Equal(t, api.RoleTeacher, sess.Role)
}

func TestLogin_Rejected(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("ada@example.com", "secret", api.RoleStudent)
	h.stdin("wrong\n")

	err := h.run(t, "login", "--email", "ada@example.com")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.Equal(t, ExitAuthError, GetExitCode(err))
	assert.False(t, h.env.Sessions.Check())
}

func TestLogin_RequiresPassword(t *testing.T) {
	h := newHarness(t)
	h.stdin("\n")

	err := h.run(t, "login", "--email", "ada@example.com")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/api/auth/login"))
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	h.stdin("secret\n")

	require.NoError(t, h.run(t, "register", "--email", "new@example.com", "--role", "Teacher", "--json"))
	resp := h.json(t)
	assert.True(t, resp.Success)
	assert.Equal(t, "register", resp.Command)

	reqs := h.srv.RequestsTo(http.MethodPost, "/api/auth/register")
	require.Len(t, reqs, 1)
	assert.Equal(t, "teacher", reqs[0].JSON["role"])
	assert.True(t, h.env.Sessions.Check())
}

func TestRegister_InvalidRole(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, "register", "--email", "x@example.com", "--role", "janitor")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Usage, "student|teacher|admin")
}

func TestRegister_Duplicate(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("ada@example.com", "secret", api.RoleStudent)
	h.stdin("secret\n")

	err := h.run(t, "register", "--email", "ada@example.com")
	require.Error(t, err)
	assert.Equal(t, "User already exists", err.Error())
}

func TestWhoamiAndLogout(t *testing.T) {
	h := newHarness(t)

	err := h.run(t, "whoami")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)

	h.login(t)
	require.NoError(t, h.run(t, "whoami"))
	out := h.stdout.String()
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, h.srv.URL)

	require.NoError(t, h.run(t, "logout"))
	assert.Contains(t, h.stdout.String(), "Logged out")
	assert.False(t, h.env.Sessions.Check())

	require.NoError(t, h.run(t, "logout"))
	assert.Contains(t, h.stdout.String(), "Not logged in")
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_NotLoggedIn(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, "ask", "hello")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
	assert.Equal(t, ExitAuthError, GetExitCode(err))
	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/query"))
}

func TestAsk_PrintsAnswer(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	require.NoError(t, h.run(t, "ask", "what", "is", "rag"))
	assert.Contains(t, h.stdout.String(), "Answer: what is rag")
	assert.Contains(t, h.stderr.String(), "chat: ")
	assert.Equal(t, 1, h.srv.ThreadCount())

	reqs := h.srv.RequestsTo(http.MethodPost, "/query")
	require.Len(t, reqs, 1)
	assert.Nil(t, reqs[0].JSON["chat_id"])
	assert.Equal(t, []interface{}{}, reqs[0].JSON["selected_folders"])
}

func TestAsk_JSONWithChatAndFolders(t *testing.T) {
	h := newHarness(t)
	id := h.login(t)
	h.srv.AddThread("t1", "Earlier",
		api.Message{Type: api.TypeUser, Content: "hi"},
		api.Message{Type: api.TypeAssistant, Content: "hello"})

	f1 := h.srv.AddFolder(id, "Physics")
	f2 := h.srv.AddFolder(id, "Biology")

	require.NoError(t, h.run(t, "ask", "again", "--chat", "t1", "--folder", f1.FolderID, "--folder", f2.FolderID, "--json"))
	resp := h.json(t)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Answer: again", data["response"])
	assert.Equal(t, "t1", data["chat_id"])

	reqs := h.srv.RequestsTo(http.MethodPost, "/query")
	require.Len(t, reqs, 1)
	assert.Equal(t, "t1", reqs[0].JSON["chat_id"])
	assert.Equal(t, []interface{}{f1.FolderID, f2.FolderID}, reqs[0].JSON["selected_folders"])
}

func TestAsk_FolderIDsMustBeOwned(t *testing.T) {
	h := newHarness(t)
	id := h.login(t)
	mine := h.srv.AddFolder(id, "Physics")
	theirs := h.srv.AddFolder("99", "Other")

	require.NoError(t, h.run(t, "ask", "hi", "--folder", mine.FolderID, "--folder", theirs.FolderID, "--folder", mine.FolderID))

	reqs := h.srv.RequestsTo(http.MethodPost, "/query")
	require.Len(t, reqs, 1)
	assert.Equal(t, []interface{}{mine.FolderID}, reqs[0].JSON["selected_folders"])
	assert.Contains(t, h.stderr.String(), "no folder with id "+theirs.FolderID)
}

func TestAsk_FolderListFailure(t *testing.T) {
	h := newHarness(t)
	id := h.login(t)
	h.srv.Fail(http.MethodGet, "/api/folders/"+id, http.StatusInternalServerError, "db locked")

	require.Error(t, h.run(t, "ask", "hi", "--folder", "f1"))
	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/query"))
}

func TestAsk_PipedOutputIsPlainMarkdown(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	t.Setenv("FORCE_COLOR", "")
	h.env.Markdown = markdown.New(markdown.Options{Enabled: true, Style: "dark"})
	h.srv.Answer = func(string) string { return "**Retrieval** augmented" }

	require.NoError(t, h.run(t, "ask", "what", "is", "rag"))
	assert.NotContains(t, h.stdout.String(), "\x1b[")
	assert.Contains(t, h.stdout.String(), "**Retrieval** augmented")
}

func TestAsk_WithAttachmentIsMultipart(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	p := writeFile(t, "notes.txt", "some notes")

	require.NoError(t, h.run(t, "ask", "summarize", "--attach", p, "--no-markdown"))

	reqs := h.srv.RequestsTo(http.MethodPost, "/query")
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].IsMultipart())
	assert.Equal(t, "notes.txt", reqs[0].Files["file_0"])
	assert.Equal(t, []string{"summarize"}, reqs[0].Form["query"])
}

func TestAsk_Errors(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	err := h.run(t, "ask")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)

	err = h.run(t, "ask", "hi", "--attach", filepath.Join(h.home, "missing.pdf"))
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Message, "file not found")

	err = h.run(t, "ask", "hi", "--attach", h.home)
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Message, "not a file")

	h.srv.Fail(http.MethodPost, "/query", http.StatusInternalServerError, "index offline")
	err = h.run(t, "ask", "hi")
	require.Error(t, err)
	assert.Equal(t, ExitGeneralError, GetExitCode(err))
}

func TestAsk_ReadsStdin(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.stdin("piped question\n")

	require.NoError(t, h.run(t, "ask", "-"))
	assert.Contains(t, h.stdout.String(), "Answer: piped question")
}

// =============================================================================
// THREADS
// =============================================================================

func TestThreads_ListShowDelete(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	require.NoError(t, h.run(t, "threads"))
	assert.Contains(t, h.stdout.String(), "No chat history yet")

	h.srv.AddThread("t1", "Photosynthesis",
		api.Message{Type: api.TypeUser, Content: "explain"},
		api.Message{Type: api.TypeAssistant, Content: "plants"})

	require.NoError(t, h.run(t, "threads", "list"))
	assert.Contains(t, h.stdout.String(), "Photosynthesis")

	require.NoError(t, h.run(t, "threads", "show", "t1", "--no-markdown"))
	out := h.stdout.String()
	assert.Contains(t, out, "You:")
	assert.Contains(t, out, "explain")
	assert.Contains(t, out, "plants")

	err := h.run(t, "threads", "delete", "t1")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, 1, h.srv.ThreadCount())

	require.NoError(t, h.run(t, "threads", "delete", "--confirm", "t1"))
	assert.Contains(t, h.stdout.String(), "Chat deleted")
	assert.Equal(t, 0, h.srv.ThreadCount())
}

func TestThreads_ShowMissing(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	err := h.run(t, "threads", "show", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestThreads_InteractiveConfirm(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.env.Interactive = true
	h.srv.AddThread("t1", "Keep me")

	h.stdin("n\n")
	err := h.run(t, "threads", "delete", "t1")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 1, h.srv.ThreadCount())

	h.stdin("y\n")
	require.NoError(t, h.run(t, "threads", "delete", "t1"))
	assert.Contains(t, h.stderr.String(), "Are you sure you want to delete this chat?")
	assert.Equal(t, 0, h.srv.ThreadCount())
}

// =============================================================================
// FILES
// =============================================================================

func TestFiles_UploadListDelete(t *testing.T) {
	h := newHarness(t)
	userID := h.login(t)
	a := writeFile(t, "a.pdf", "%PDF")
	b := writeFile(t, "b.txt", "hello")

	require.NoError(t, h.run(t, "files"))
	assert.Contains(t, h.stdout.String(), "No files uploaded yet.")

	require.NoError(t, h.run(t, "files", "upload", a, b))
	assert.Contains(t, h.stdout.String(), "Files uploaded successfully!")
	reqs := h.srv.RequestsTo(http.MethodPost, "/api/file/upload/"+userID)
	require.Len(t, reqs, 1)
	assert.Equal(t, "a.pdf", reqs[0].Files["file_0"])
	assert.Equal(t, "b.txt", reqs[0].Files["file_1"])

	require.NoError(t, h.run(t, "files", "list", "--json"))
	resp := h.json(t)
	list := resp.Data.([]interface{})
	require.Len(t, list, 2)
	id := list[0].(map[string]interface{})["file_id"].(string)

	require.NoError(t, h.run(t, "files", "delete", id, "--confirm"))
	assert.Contains(t, h.stdout.String(), "File deleted successfully")

	require.NoError(t, h.run(t, "files", "list"))
	assert.NotContains(t, h.stdout.String(), id)
	assert.Contains(t, h.stdout.String(), "b.txt")
}

func TestFiles_UploadLimits(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	err := h.run(t, "files", "upload")
	assert.ErrorIs(t, err, files.ErrNoFiles)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	var paths []string
	for i := 0; i <= files.MaxUploadFiles; i++ {
		paths = append(paths, writeFile(t, "f.txt", "x"))
	}
	err = h.run(t, append([]string{"files", "upload"}, paths...)...)
	assert.ErrorIs(t, err, files.ErrTooManyFiles)
	assert.Empty(t, h.srv.Requests())
}

func TestFiles_Download(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	err := h.run(t, "files", "download", "x")
	assert.ErrorIs(t, err, files.ErrDownloadNotImplemented)
}

// =============================================================================
// FOLDERS
// =============================================================================

func TestFolders_Lifecycle(t *testing.T) {
	h := newHarness(t)
	userID := h.login(t)
	doc := writeFile(t, "syllabus.pdf", "%PDF")

	require.NoError(t, h.run(t, "folders"))
	assert.Contains(t, h.stdout.String(), "No folders yet.")

	require.NoError(t, h.run(t, "folders", "create", "Biology", "101", "--json"))
	resp := h.json(t)
	folder := resp.Data.(map[string]interface{})
	assert.Equal(t, "Biology 101", folder["folder_name"])
	id := folder["folder_id"].(string)

	err := h.run(t, "folders", "create", "Biology 101")
	require.Error(t, err)
	assert.Equal(t, "Folder name already exists", err.Error())

	require.NoError(t, h.run(t, "folders", "upload", id, doc))
	reqs := h.srv.RequestsTo(http.MethodPost, "/api/file/upload/"+userID)
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{id}, reqs[0].Form["folder_id"])

	require.NoError(t, h.run(t, "folders", "files", id))
	assert.Contains(t, h.stdout.String(), "syllabus.pdf")

	require.NoError(t, h.run(t, "folders", "list"))
	assert.Contains(t, h.stdout.String(), "1 files")

	require.NoError(t, h.run(t, "folders", "delete", id, "--confirm"))
	assert.Contains(t, h.stdout.String(), "Folder deleted successfully!")
	_, ok := h.srv.Folder(userID, id)
	assert.False(t, ok)
}

func TestFolders_CreateRequiresName(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	err := h.run(t, "folders", "create", "  ")
	assert.ErrorIs(t, err, folders.ErrEmptyName)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_SetGetPath(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "config", "path"))
	assert.Equal(t, filepath.Join(h.home, "config.toml"), strings.TrimSpace(h.stdout.String()))

	require.NoError(t, h.run(t, "config", "set", "ui.word_wrap", "72"))
	assert.Contains(t, h.stdout.String(), "Set ui.word_wrap = 72")

	cfg, err := config.ReadFile(filepath.Join(h.home, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, 72, cfg.UI.WordWrap)

	h.env.Config = nil
	require.NoError(t, h.run(t, "config", "get", "ui.word_wrap"))
	assert.Equal(t, "72", strings.TrimSpace(h.stdout.String()))
}

func TestConfig_SetRejectsInvalid(t *testing.T) {
	h := newHarness(t)

	err := h.run(t, "config", "set", "api.base_url", "ftp://nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	_, statErr := os.Stat(filepath.Join(h.home, "config.toml"))
	assert.True(t, os.IsNotExist(statErr))

	err = h.run(t, "config", "set", "no.such.key", "1")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)

	err = h.run(t, "config", "set", "ui.theme")
	require.ErrorAs(t, err, &usage)
}

func TestConfig_ShowJSON(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "config", "show", "--json"))
	resp := h.json(t)
	values := resp.Data.(map[string]interface{})
	assert.Equal(t, h.srv.URL, values["api.base_url"])
}

// =============================================================================
// CHAT REPL
// =============================================================================

func TestChat_ScriptedSession(t *testing.T) {
	h := newHarness(t)
	userID := h.login(t)
	f := h.srv.AddFolder(userID, "Physics")
	doc := writeFile(t, "lab.txt", "data")

	h.stdin(strings.Join([]string{
		"/help",
		"/folders",
		"/folder " + f.FolderID,
		"/folder nope",
		"/attach " + doc,
		"first question",
		"/threads",
		"/history",
		"/new",
		"/bogus",
		"/quit",
	}, "\n") + "\n")

	require.NoError(t, h.run(t, "chat", "--no-markdown"))
	out := h.stdout.String()
	assert.Contains(t, out, "RAG Chat")
	assert.Contains(t, out, "[ ] ")
	assert.Contains(t, out, "Selected Physics")
	assert.Contains(t, out, "Attached: lab.txt")
	assert.Contains(t, out, "Answer: first question")
	assert.Contains(t, out, "* ")
	assert.Contains(t, out, "Started a new chat")

	errOut := h.stderr.String()
	assert.Contains(t, errOut, "No folder with id nope")
	assert.Contains(t, errOut, "Unknown command /bogus")

	reqs := h.srv.RequestsTo(http.MethodPost, "/query")
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].IsMultipart())
	assert.Equal(t, []string{f.FolderID}, reqs[0].Form["selected_folders"])
	assert.Equal(t, "lab.txt", reqs[0].Files["file_0"])
}

func TestChat_OpenAndContinue(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.AddThread("t1", "Earlier",
		api.Message{Type: api.TypeUser, Content: "old question"},
		api.Message{Type: api.TypeAssistant, Content: "old answer"})

	h.stdin("/open missing\nfollow up\n")
	require.NoError(t, h.run(t, "chat", "--chat", "t1", "--no-markdown"))

	assert.Contains(t, h.stdout.String(), "old answer")
	assert.Contains(t, h.stdout.String(), "Answer: follow up")
	assert.Contains(t, h.stderr.String(), "Failed to load chat: Chat not found")

	reqs := h.srv.RequestsTo(http.MethodPost, "/query")
	require.Len(t, reqs, 1)
	assert.Equal(t, "t1", reqs[0].JSON["chat_id"])
}

func TestChat_FailedQueryStaysInLoop(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.Fail(http.MethodPost, "/query", http.StatusInternalServerError, "index offline")

	h.stdin("hello\nexit\n")
	require.NoError(t, h.run(t, "chat"))
	assert.Contains(t, h.stderr.String(), "[Error]")
}

func TestChat_RequiresLogin(t *testing.T) {
	h := newHarness(t)
	err := h.run(t, "chat")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
}

// =============================================================================
// MISC
// =============================================================================

func TestRun_VersionAndHelp(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "version", "--json"))
	resp := h.json(t)
	assert.Equal(t, Version, resp.Data.(map[string]interface{})["version"])

	require.NoError(t, h.run(t, "help"))
	assert.Contains(t, h.stdout.String(), "ragchat")

	err := Run(context.Background(), h.env, CmdTUI, Args{})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
}
