// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package login

import (
	"errors"
	"net/http"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/apitest"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

type memSessions struct {
	saved []api.Session
	err   error
}

func (s *memSessions) Save(sess api.Session) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, sess)
	return nil
}

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: k})
}

// drive runs cmd and feeds results back until no command is left. It
// returns the messages that escaped the form.
func drive(t *testing.T, m Model, cmd tea.Cmd) (Model, []tea.Msg) {
	t.Helper()
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case authResultMsg:
			var next tea.Cmd
			m, next = m.Update(msg)
			queue = append(queue, next)
		case nil:
		default:
			out = append(out, msg)
		}
	}
	return m, out
}

func loggedIn(msgs []tea.Msg) (api.Session, bool) {
	for _, msg := range msgs {
		if li, ok := msg.(LoggedInMsg); ok {
			return li.Session, true
		}
	}
	return api.Session{}, false
}

func newForm(t *testing.T) (Model, *apitest.Server, *memSessions) {
	t.Helper()
	srv := apitest.New(t)
	sessions := &memSessions{}
	return New(api.New(srv.URL), sessions, styles.NewTheme(styles.ModeDark)), srv, sessions
}

func fill(m Model, email, password string) Model {
	m = typeText(m, email)
	m, _ = press(m, tea.KeyTab)
	return typeText(m, password)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, NetworkErrorText, ErrorText(api.ErrNetwork))
	assert.Equal(t, "Invalid credentials", ErrorText(&api.Error{Status: 401, Message: "Invalid credentials"}))
	assert.Equal(t, DefaultErrorText, ErrorText(&api.Error{Status: 500}))
	assert.Equal(t, DefaultErrorText, ErrorText(errors.New("decode")))
}

func TestSubmit_RequiresFields(t *testing.T) {
	m, srv, _ := newForm(t)

	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, RequiredText, m.Err())

	m = typeText(m, "a@b.c")
	m, cmd = press(m, tea.KeyEnter)
	assert.Nil(t, cmd, "password still empty")
	assert.Equal(t, RequiredText, m.Err())
	assert.Empty(t, srv.Requests())
}

func TestLogin_Success(t *testing.T) {
	m, srv, sessions := newForm(t)
	id := srv.AddUser("a@b.c", "pw", api.RoleTeacher)

	m = fill(m, "a@b.c", "pw")
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.True(t, m.Loading())

	m, msgs := drive(t, m, cmd)
	assert.False(t, m.Loading())
	assert.Empty(t, m.Err())

	sess, ok := loggedIn(msgs)
	require.True(t, ok)
	assert.Equal(t, api.Session{UserID: id, Email: "a@b.c", Role: api.RoleTeacher}, sess)
	assert.Equal(t, []api.Session{sess}, sessions.saved)

	reqs := srv.RequestsTo(http.MethodPost, "/api/auth/login")
	require.Len(t, reqs, 1)
	assert.Equal(t, map[string]interface{}{"email": "a@b.c", "password": "pw"}, reqs[0].JSON)
}

func TestLogin_ServerError(t *testing.T) {
	m, srv, sessions := newForm(t)
	srv.AddUser("a@b.c", "pw", api.RoleStudent)

	m = fill(m, "a@b.c", "wrong")
	m, cmd := press(m, tea.KeyEnter)
	m, msgs := drive(t, m, cmd)

	_, ok := loggedIn(msgs)
	assert.False(t, ok)
	assert.Equal(t, "Invalid credentials", m.Err())
	assert.Empty(t, sessions.saved)
}

func TestLogin_BodyWithoutError(t *testing.T) {
	m, srv, _ := newForm(t)
	srv.Fail(http.MethodPost, "/api/auth/login", http.StatusInternalServerError, "")

	m = fill(m, "a@b.c", "pw")
	m, cmd := press(m, tea.KeyEnter)
	m, _ = drive(t, m, cmd)
	assert.Equal(t, DefaultErrorText, m.Err())
}

func TestLogin_NetworkError(t *testing.T) {
	srv := apitest.New(t)
	url := srv.URL
	srv.Close()

	m := New(api.New(url), &memSessions{}, styles.NewTheme(styles.ModeDark))
	m = fill(m, "a@b.c", "pw")
	m, cmd := press(m, tea.KeyEnter)
	m, _ = drive(t, m, cmd)
	assert.Equal(t, NetworkErrorText, m.Err())
}

func TestLogin_SaveFailure(t *testing.T) {
	m, srv, sessions := newForm(t)
	srv.AddUser("a@b.c", "pw", api.RoleStudent)
	sessions.err = errors.New("disk full")

	m = fill(m, "a@b.c", "pw")
	m, cmd := press(m, tea.KeyEnter)
	m, msgs := drive(t, m, cmd)
	_, ok := loggedIn(msgs)
	assert.False(t, ok)
	assert.Contains(t, m.Err(), "disk full")
}

func TestRegister_RoleCycling(t *testing.T) {
	m, srv, _ := newForm(t)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Equal(t, ModeRegister, m.Mode())
	assert.Equal(t, api.RoleStudent, m.Role())

	m = fill(m, "new@b.c", "pw")
	m, _ = press(m, tea.KeyTab) // role
	m, _ = press(m, tea.KeyRight)
	assert.Equal(t, api.RoleTeacher, m.Role())
	m, _ = press(m, tea.KeyLeft)
	m, _ = press(m, tea.KeyLeft)
	assert.Equal(t, api.RoleAdmin, m.Role(), "wraps around")

	m, cmd := press(m, tea.KeyEnter)
	_, msgs := drive(t, m, cmd)
	sess, ok := loggedIn(msgs)
	require.True(t, ok)
	assert.Equal(t, api.RoleAdmin, sess.Role)

	reqs := srv.RequestsTo(http.MethodPost, "/api/auth/register")
	require.Len(t, reqs, 1)
	assert.Equal(t, "admin", reqs[0].JSON["role"])
}

func TestRegister_DuplicateUser(t *testing.T) {
	m, srv, _ := newForm(t)
	srv.AddUser("a@b.c", "pw", api.RoleStudent)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = fill(m, "a@b.c", "pw")
	m, cmd := press(m, tea.KeyEnter)
	m, _ = drive(t, m, cmd)
	assert.Equal(t, "User already exists", m.Err())
}

func TestToggleMode_ResetsForm(t *testing.T) {
	m, _, _ := newForm(t)
	m, _ = press(m, tea.KeyEnter)
	require.NotEmpty(t, m.Err())
	m = typeText(m, "typed@b.c")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, ModeRegister, m.Mode())
	assert.Empty(t, m.Err())
	assert.Empty(t, m.email.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, ModeLogin, m.Mode())
}

func TestRoleFieldHiddenInLoginMode(t *testing.T) {
	m, _, _ := newForm(t)
	m, _ = press(m, tea.KeyTab)
	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, fieldSubmit, m.focus)

	m, _ = press(m, tea.KeyShiftTab)
	assert.Equal(t, fieldPassword, m.focus)
}

func TestView(t *testing.T) {
	m, _, _ := newForm(t)
	out := m.View()
	assert.Contains(t, out, "RAG Chat")
	assert.Contains(t, out, "Sign In")
	assert.NotContains(t, out, "Role")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	out = m.View()
	assert.Contains(t, out, "Create Account")
	assert.Contains(t, out, "Teacher")
}
