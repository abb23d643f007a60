// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat layout: thread sidebar, conversation
// viewport, input with attachments, and the files and folders panels.
//
// The model is a front end for the chat orchestrator. Commands run the
// network half of each operation; Update applies the results, so stale
// responses are discarded by the orchestrator and never reach the view.
package chat

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ragchat-tui/internal/api"
	core "github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/events"
	"github.com/jeranaias/ragchat-tui/internal/files"
	"github.com/jeranaias/ragchat-tui/internal/folders"
	"github.com/jeranaias/ragchat-tui/internal/markdown"
	"github.com/jeranaias/ragchat-tui/internal/route"
	"github.com/jeranaias/ragchat-tui/internal/ui/components"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// SessionSource is the part of the session provider the layout reads.
type SessionSource interface {
	Current() (api.Session, bool)
	UserID() (string, error)
}

// Deps carries the collaborators of the chat layout.
type Deps struct {
	Orchestrator *core.Orchestrator
	Files        *files.Manager
	FolderClient folders.Client
	// Selection is the folder selection owned by the caller. It outlives
	// the folders panel.
	Selection *folders.Selection
	Session   SessionSource
	Bus       *events.Bus
	Markdown  *markdown.Renderer
	Theme     *styles.Theme
	Log       zerolog.Logger

	ShowTimestamps bool
	// Open is the route the layout starts on.
	Open route.Route
}

// folderScope feeds the derived folder selection to the orchestrator. It
// keeps the last folder manager so the selection still applies after the
// panel is closed.
type folderScope struct {
	mu  sync.Mutex
	mgr *folders.Manager
}

func (s *folderScope) set(m *folders.Manager) {
	s.mu.Lock()
	s.mgr = m
	s.mu.Unlock()
}

func (s *folderScope) SelectedIDs() []string {
	s.mu.Lock()
	m := s.mgr
	s.mu.Unlock()
	if m == nil {
		return nil
	}
	return m.SelectedIDs()
}

// =============================================================================
// MODEL
// =============================================================================

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

type panel int

const (
	panelNone panel = iota
	panelFiles
	panelFolders
)

type prompt int

const (
	promptNone prompt = iota
	promptAttach
	promptUpload
	promptFolderName
	promptFolderUpload
)

// confirmAction is what a confirmed dialog deletes.
type confirmAction struct {
	kind string // "thread", "file" or "folder"
	id   string
}

// ToggleThemeMsg asks the root model to switch between dark and light.
type ToggleThemeMsg struct{}

// Model is the chat layout.
type Model struct {
	ctx   context.Context
	orch  *core.Orchestrator
	files *files.Manager
	fc    folders.Client
	sel   *folders.Selection
	sess  SessionSource
	bus   *events.Bus
	md    *markdown.Renderer
	theme *styles.Theme
	log   zerolog.Logger
	keys  KeyMap

	scope          *folderScope
	folders        *folders.Manager
	showTimestamps bool

	// Components
	viewport  viewport.Model
	input     textinput.Model
	promptIn  textinput.Model
	spinner   spinner.Model
	sidebar   *components.ThreadList
	fileList  *components.FileList
	folderLst *components.FolderList
	status    *components.StatusBar
	toasts    *components.ToastManager

	// Bus subscriptions
	threadEvents <-chan events.Event
	folderEvents <-chan events.Event
	fileEvents   <-chan events.Event
	unsubscribe  []func()

	// State
	width, height  int
	focus          focus
	panel          panel
	prompt         prompt
	promptFolderID string
	confirm        *components.Confirm
	pendingConfirm confirmAction
	loadingThread  bool
	boot           tea.Cmd
	cache          *conversationCache
	shown          int
}

// New creates the chat layout. When d.Open names a thread, Init loads it.
func New(d Deps) Model {
	theme := d.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeDark)
	}

	input := textinput.New()
	input.Placeholder = placeholderIdle
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.PlaceholderStyle = theme.Placeholder
	input.CharLimit = 0
	input.Focus()

	promptIn := textinput.New()
	promptIn.Prompt = "> "
	promptIn.PromptStyle = theme.InputPrompt

	sp := spinner.New()
	sp.Spinner = styles.DotsSpinner.Bubble()
	sp.Style = theme.Thinking

	m := Model{
		ctx:            context.Background(),
		orch:           d.Orchestrator,
		files:          d.Files,
		fc:             d.FolderClient,
		sel:            d.Selection,
		sess:           d.Session,
		bus:            d.Bus,
		md:             d.Markdown,
		theme:          theme,
		log:            d.Log.With().Str("component", "ui.chat").Logger(),
		keys:           DefaultKeyMap(),
		scope:          &folderScope{},
		showTimestamps: d.ShowTimestamps,
		viewport:       viewport.New(80, 20),
		input:          input,
		promptIn:       promptIn,
		spinner:        sp,
		sidebar:        components.NewThreadList(theme),
		fileList:       components.NewFileList(theme),
		folderLst:      components.NewFolderList(theme),
		status:         components.NewStatusBar(theme),
		toasts:         components.NewToastManager(),
		cache:          &conversationCache{},
		width:          80,
		height:         24,
	}
	if m.sel == nil {
		m.sel = folders.NewSelection()
	}
	m.orch.WithFolderScope(m.scope)

	if m.bus != nil {
		var cancel func()
		m.threadEvents, cancel = m.bus.Subscribe(events.TopicThreadsUpdated)
		m.unsubscribe = append(m.unsubscribe, cancel)
		m.folderEvents, cancel = m.bus.Subscribe(events.TopicFoldersUpdated)
		m.unsubscribe = append(m.unsubscribe, cancel)
		m.fileEvents, cancel = m.bus.Subscribe(events.TopicFilesUpdated)
		m.unsubscribe = append(m.unsubscribe, cancel)
	}

	if d.Open.Kind == route.Chat && d.Open.ChatID != "" {
		sw := m.orch.BeginSwitch(d.Open.ChatID)
		if !sw.Noop() {
			m.loadingThread = true
			m.boot = switchCmd(m.orch, sw)
		}
	}
	m.sidebar.ActiveID = m.orch.ActiveThreadID()

	m.layout()
	m.refreshConversation()
	return m
}

const (
	placeholderIdle    = "Ask a question..."
	placeholderLoading = "AI is thinking..."
)

// Init loads the thread list and starts listening on the bus.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.boot,
		refreshThreadsCmd(m.ctx, m.orch),
		waitForEvent(m.threadEvents),
		waitForEvent(m.folderEvents),
		waitForEvent(m.fileEvents),
		tea.SetWindowTitle(windowTitle(m.orch.Route())),
	)
}

// Close releases bus subscriptions. The model must not be used afterwards.
func (m Model) Close() {
	for _, cancel := range m.unsubscribe {
		cancel()
	}
}

// Route returns the route currently shown.
func (m Model) Route() route.Route {
	return m.orch.Route()
}

// Toasts returns the visible alerts.
func (m Model) Toasts() []components.Toast {
	return m.toasts.Toasts()
}

func windowTitle(r route.Route) string {
	return "ragchat " + r.String()
}
