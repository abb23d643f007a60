// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root Bubble Tea model. It boots through a loading
// phase, applies the route guard, and swaps between the login form and the
// chat layout as the session comes and goes.
package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ragchat-tui/internal/api"
	core "github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/events"
	"github.com/jeranaias/ragchat-tui/internal/files"
	"github.com/jeranaias/ragchat-tui/internal/folders"
	"github.com/jeranaias/ragchat-tui/internal/markdown"
	"github.com/jeranaias/ragchat-tui/internal/route"
	"github.com/jeranaias/ragchat-tui/internal/session"
	chatui "github.com/jeranaias/ragchat-tui/internal/ui/chat"
	"github.com/jeranaias/ragchat-tui/internal/ui/login"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// State represents the current application state.
type State int

const (
	StateLoading State = iota // Session not checked yet
	StateLogin                // Login or registration form
	StateChat                 // Chat layout
)

// Deps carries what the root model wires together.
type Deps struct {
	Client   *api.Client
	Sessions *session.Provider
	Bus      *events.Bus
	Markdown *markdown.Renderer
	Theme    *styles.Theme
	Log      zerolog.Logger

	// BaseURL appears in send failure messages.
	BaseURL        string
	ShowTimestamps bool
	// Open is the route requested on the command line.
	Open route.Route
}

// Model is the root model.
type Model struct {
	client   *api.Client
	sessions *session.Provider
	bus      *events.Bus
	md       *markdown.Renderer
	theme    *styles.Theme
	log      zerolog.Logger
	showTS   bool

	orch      *core.Orchestrator
	files     *files.Manager
	selection *folders.Selection

	ctx    context.Context
	cancel context.CancelFunc

	sessionEvents <-chan events.Event
	unsubscribe   func()

	state  State
	route  route.Route
	userID string
	login  login.Model
	chat   chatui.Model
	inChat bool

	width, height int
}

// New creates the root model. Call Close after the program exits.
func New(d Deps) *Model {
	theme := d.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeDark)
	}
	md := d.Markdown
	if md == nil {
		md = markdown.New(markdown.Options{Enabled: true, Style: theme.Mode()})
	}
	bus := d.Bus
	if bus == nil {
		bus = events.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	log := d.Log.With().Str("component", "app").Logger()

	m := &Model{
		client:    d.Client,
		sessions:  d.Sessions,
		bus:       bus,
		md:        md,
		theme:     theme,
		log:       log,
		showTS:    d.ShowTimestamps,
		orch:      core.New(d.Client, d.Sessions, bus, d.BaseURL).WithLogger(d.Log),
		files:     files.NewManager(d.Client, d.Sessions, bus).WithLogger(d.Log),
		selection: folders.NewSelection(),
		ctx:       ctx,
		cancel:    cancel,
		state:     StateLoading,
		route:     d.Open,
	}
	m.sessionEvents, m.unsubscribe = bus.Subscribe(events.TopicSessionChanged)
	return m
}

// Close stops the session watch and releases subscriptions.
func (m *Model) Close() {
	m.cancel()
	if m.inChat {
		m.chat.Close()
	}
	m.files.Close()
	m.unsubscribe()
}

// State returns the current application state.
func (m *Model) State() State { return m.state }

// Route returns the route currently shown.
func (m *Model) Route() route.Route { return m.route }

// =============================================================================
// MESSAGES
// =============================================================================

// sessionCheckedMsg ends the loading phase.
type sessionCheckedMsg struct {
	ok bool
}

// sessionEventMsg is a session change made by another process.
type sessionEventMsg struct {
	ch <-chan events.Event
}

func (m *Model) checkSession() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		return sessionCheckedMsg{ok: sessions.Check()}
	}
}

// watchSession forwards external changes of the stored record to the bus.
func (m *Model) watchSession() {
	bus, log := m.bus, m.log
	ok, err := m.sessions.Watch(m.ctx, func(sess api.Session, present bool) {
		log.Info().Bool("logged_in", present).Msg("session changed externally")
		bus.Publish(events.Event{Topic: events.TopicSessionChanged, Data: present})
	})
	if err != nil {
		log.Warn().Err(err).Msg("session watch unavailable")
	} else if !ok {
		log.Debug().Msg("storage backend does not support watching")
	}
}

func waitForSession(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return sessionEventMsg{ch: ch}
	}
}

// Init starts the session check.
func (m *Model) Init() tea.Cmd {
	m.watchSession()
	return tea.Batch(m.checkSession(), waitForSession(m.sessionEvents))
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		return m, m.forward(msg)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, m.forward(msg)

	case sessionCheckedMsg:
		return m, m.navigate(route.Guard(m.route, msg.ok))

	case sessionEventMsg:
		next := waitForSession(msg.ch)
		return m, tea.Batch(next, m.handleExternalSession())

	case login.LoggedInMsg:
		m.log.Info().Str("role", msg.Session.Role).Msg("logged in")
		return m, m.navigate(route.Guard(route.LoginRoute, true))

	case chatui.LogoutMsg:
		return m, m.logout()

	case chatui.RouteChangedMsg:
		m.route = msg.Route
		return m, nil

	case login.ToggleThemeMsg, chatui.ToggleThemeMsg:
		return m, m.toggleTheme()
	}

	return m, m.forward(msg)
}

// forward hands msg to the active screen.
func (m *Model) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.state {
	case StateLogin:
		m.login, cmd = m.login.Update(msg)
	case StateChat:
		m.chat, cmd = m.chat.Update(msg)
	}
	return cmd
}

// navigate shows the screen for r, which has already passed the guard.
func (m *Model) navigate(r route.Route) tea.Cmd {
	m.route = r
	if r.Kind == route.Login {
		return m.showLogin()
	}
	return m.showChat(r)
}

func (m *Model) showLogin() tea.Cmd {
	m.closeChat()
	m.state = StateLogin
	m.login = login.New(m.client, m.sessions, m.theme)
	cmds := []tea.Cmd{m.login.Init(), tea.SetWindowTitle("ragchat /login")}
	if m.width > 0 {
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *Model) showChat(r route.Route) tea.Cmd {
	m.closeChat()
	sess, _ := m.sessions.Current()
	m.userID = sess.UserID
	m.state = StateChat
	m.chat = chatui.New(chatui.Deps{
		Orchestrator:   m.orch,
		Files:          m.files,
		FolderClient:   m.client,
		Selection:      m.selection,
		Session:        m.sessions,
		Bus:            m.bus,
		Markdown:       m.md,
		Theme:          m.theme,
		Log:            m.log,
		ShowTimestamps: m.showTS,
		Open:           r,
	})
	m.inChat = true
	if m.width > 0 {
		m.chat, _ = m.chat.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	}
	return m.chat.Init()
}

func (m *Model) closeChat() {
	if m.inChat {
		m.chat.Close()
		m.inChat = false
	}
}

// logout clears the record and all chat state, then shows the login form.
func (m *Model) logout() tea.Cmd {
	if err := m.sessions.Clear(); err != nil {
		m.log.Error().Err(err).Msg("clear session")
	}
	m.resetState()
	m.log.Info().Msg("logged out")
	return m.navigate(route.LoginRoute)
}

func (m *Model) resetState() {
	m.closeChat()
	m.orch.Reset()
	m.files.Invalidate()
	m.selection.Clear()
	m.userID = ""
}

// handleExternalSession reacts to another process logging in or out.
func (m *Model) handleExternalSession() tea.Cmd {
	sess, ok := m.sessions.Current()
	switch {
	case !ok && m.state == StateChat:
		m.resetState()
		return m.navigate(route.LoginRoute)
	case ok && m.state == StateLogin:
		return m.navigate(route.NewChat)
	case ok && m.state == StateChat && sess.UserID != m.userID:
		m.resetState()
		return m.navigate(route.NewChat)
	}
	return nil
}

func (m *Model) toggleTheme() tea.Cmd {
	m.theme.Toggle()
	m.md.SetStyle(m.theme.Mode())
	if m.width == 0 {
		return nil
	}
	// Re-layout so cached renders pick up the new palette.
	return m.forward(tea.WindowSizeMsg{Width: m.width, Height: m.height})
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the current state.
func (m *Model) View() string {
	switch m.state {
	case StateLogin:
		return m.login.View()
	case StateChat:
		return m.chat.View()
	}
	text := m.theme.PanelMuted.Render("Loading...")
	if m.width == 0 {
		return text
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, text)
}
