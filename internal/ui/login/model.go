// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package login provides the sign-in and registration form.
package login

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// ERROR TEXT
// =============================================================================

const (
	// DefaultErrorText is shown when the backend rejects a request without
	// saying why.
	DefaultErrorText = "An error occurred"
	// NetworkErrorText is shown when the backend cannot be reached.
	NetworkErrorText = "Network error. Please check if the server is running."
	// RequiredText marks an empty required field.
	RequiredText = "Please fill out this field."
)

// ErrorText maps an auth failure to the message shown in the form.
func ErrorText(err error) string {
	if api.IsNetwork(err) {
		return NetworkErrorText
	}
	return api.ServerMessage(err, DefaultErrorText)
}

// =============================================================================
// MODEL
// =============================================================================

// Mode selects sign-in or registration.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

// Authenticator is the subset of the API client the form needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.Session, error)
	Register(ctx context.Context, email, password, role string) (api.Session, error)
}

// SessionSaver persists the session record.
type SessionSaver interface {
	Save(sess api.Session) error
}

type field int

const (
	fieldEmail field = iota
	fieldPassword
	fieldRole
	fieldSubmit
	fieldToggle
	fieldCount
)

// LoggedInMsg is sent once the session is saved.
type LoggedInMsg struct {
	Session api.Session
}

// ToggleThemeMsg asks the root model to switch dark mode.
type ToggleThemeMsg struct{}

type authResultMsg struct {
	session api.Session
	err     error
}

// Model is the Bubble Tea model for the form.
type Model struct {
	mode     Mode
	email    textinput.Model
	password textinput.Model
	role     int
	focus    field
	loading  bool
	err      string

	auth     Authenticator
	sessions SessionSaver
	theme    *styles.Theme
	spinner  spinner.Model

	width  int
	height int
}

// New creates the form in sign-in mode.
func New(auth Authenticator, sessions SessionSaver, theme *styles.Theme) Model {
	email := textinput.New()
	email.Placeholder = "Enter your email"
	email.Prompt = ""
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "Enter your password"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = styles.LineSpinner.Bubble()

	return Model{
		email:    email,
		password: password,
		auth:     auth,
		sessions: sessions,
		theme:    theme,
		spinner:  sp,
	}
}

// Mode returns the current mode.
func (m Model) Mode() Mode { return m.mode }

// Role returns the selected registration role.
func (m Model) Role() string { return api.Roles[m.role] }

// Err returns the error line, or "".
func (m Model) Err() string { return m.err }

// Loading reports whether a request is in flight.
func (m Model) Loading() bool { return m.loading }

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case authResultMsg:
		return m.handleResult(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return m.moveFocus(1), nil
	case "shift+tab", "up":
		return m.moveFocus(-1), nil
	case "ctrl+r":
		return m.toggleMode(), nil
	case "ctrl+t":
		return m, func() tea.Msg { return ToggleThemeMsg{} }
	case "left", "right":
		if m.focus == fieldRole {
			step := 1
			if msg.String() == "left" {
				step = len(api.Roles) - 1
			}
			m.role = (m.role + step) % len(api.Roles)
			return m, nil
		}
	case "enter":
		if m.focus == fieldToggle {
			return m.toggleMode(), nil
		}
		return m.submit()
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldEmail:
		m.email, cmd = m.email.Update(msg)
	case fieldPassword:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) visible(f field) bool {
	return f != fieldRole || m.mode == ModeRegister
}

func (m Model) moveFocus(step int) Model {
	next := m.focus
	for {
		next = (next + field(step) + fieldCount) % fieldCount
		if m.visible(next) {
			break
		}
	}
	return m.setFocus(next)
}

func (m Model) setFocus(f field) Model {
	m.focus = f
	m.email.Blur()
	m.password.Blur()
	switch f {
	case fieldEmail:
		m.email.Focus()
	case fieldPassword:
		m.password.Focus()
	}
	return m
}

// toggleMode switches modes and resets the form.
func (m Model) toggleMode() Model {
	if m.loading {
		return m
	}
	if m.mode == ModeLogin {
		m.mode = ModeRegister
	} else {
		m.mode = ModeLogin
	}
	m.err = ""
	m.email.SetValue("")
	m.password.SetValue("")
	m.role = 0
	return m.setFocus(fieldEmail)
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	if email == "" {
		m.err = RequiredText
		return m.setFocus(fieldEmail), nil
	}
	if password == "" {
		m.err = RequiredText
		return m.setFocus(fieldPassword), nil
	}

	m.err = ""
	m.loading = true
	auth, mode, role := m.auth, m.mode, m.Role()
	request := func() tea.Msg {
		ctx := context.Background()
		var (
			sess api.Session
			err  error
		)
		if mode == ModeRegister {
			sess, err = auth.Register(ctx, email, password, role)
		} else {
			sess, err = auth.Login(ctx, email, password)
		}
		return authResultMsg{session: sess, err: err}
	}
	return m, tea.Batch(request, m.spinner.Tick)
}

func (m Model) handleResult(msg authResultMsg) (Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.err = ErrorText(msg.err)
		return m, nil
	}
	if err := m.sessions.Save(msg.session); err != nil {
		m.err = fmt.Sprintf("Could not save session: %v", err)
		return m, nil
	}
	m.password.SetValue("")
	sess := msg.session
	return m, func() tea.Msg { return LoggedInMsg{Session: sess} }
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the form centered in the window.
func (m Model) View() string {
	t := m.theme
	subtitle := "Welcome back! Sign in to continue"
	button := "Sign In"
	toggle := "Don't have an account? Sign up"
	if m.mode == ModeRegister {
		subtitle = "Create your account to get started"
		button = "Create Account"
		toggle = "Already have an account? Sign in"
	}
	if m.loading {
		button = m.spinner.View() + " Processing..."
	}

	rows := []string{
		t.FormTitle.Render("RAG Chat"),
		t.FormLabel.Render(subtitle),
		"",
	}
	if m.err != "" {
		rows = append(rows, t.FormError.Render(m.err), "")
	}
	rows = append(rows,
		m.label("Email Address", fieldEmail),
		m.email.View(),
		"",
		m.label("Password", fieldPassword),
		m.password.View(),
	)
	if m.mode == ModeRegister {
		rows = append(rows, "", m.label("Role", fieldRole), m.roleView())
	}

	btn := t.Button
	if m.focus == fieldSubmit {
		btn = t.ButtonActive
	}
	link := t.LinkStyle
	if m.focus == fieldToggle {
		link = link.Bold(true)
	}
	rows = append(rows, "", btn.Render(button), "", link.Render(toggle), "",
		t.PanelMuted.Render("tab next field  enter submit  ctrl+r switch mode  ctrl+t theme"))

	box := t.FormBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) label(text string, f field) string {
	if m.focus == f {
		return m.theme.FormFocused.Render(text)
	}
	return m.theme.FormLabel.Render(text)
}

func (m Model) roleView() string {
	parts := make([]string, len(api.Roles))
	for i, r := range api.Roles {
		name := strings.ToUpper(r[:1]) + r[1:]
		if i == m.role {
			parts[i] = m.theme.FormFocused.Render("(" + name + ")")
		} else {
			parts[i] = m.theme.FormLabel.Render(" " + name + " ")
		}
	}
	return "< " + strings.Join(parts, " ") + " >"
}
