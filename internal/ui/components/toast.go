// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// TOASTS
// =============================================================================

// ToastKind is the type of notification.
type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastSuccess
	ToastError
)

const (
	// DefaultToastDuration applies to info and success toasts.
	DefaultToastDuration = 4 * time.Second
	// ErrorToastDuration is longer so errors can be read.
	ErrorToastDuration = 8 * time.Second
)

// Toast is a non-blocking alert that dismisses itself.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// Expired reports whether the toast's time is up at now.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// ToastManager keeps the visible toasts, newest first.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
	max    int
	now    func() time.Time
}

// NewToastManager creates a manager showing at most three toasts.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, max: 3, now: time.Now}
}

// Add shows message and returns its id.
func (m *ToastManager) Add(kind ToastKind, message string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := DefaultToastDuration
	if kind == ToastError {
		d = ErrorToastDuration
	}
	t := Toast{ID: m.nextID, Message: message, Kind: kind, CreatedAt: m.now(), Duration: d}
	m.nextID++

	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > m.max {
		m.toasts = m.toasts[:m.max]
	}
	return t.ID
}

// Success shows a success toast.
func (m *ToastManager) Success(message string) int { return m.Add(ToastSuccess, message) }

// Error shows an error toast.
func (m *ToastManager) Error(message string) int { return m.Add(ToastError, message) }

// Info shows an info toast.
func (m *ToastManager) Info(message string) int { return m.Add(ToastInfo, message) }

// Dismiss removes the newest toast.
func (m *ToastManager) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.toasts) > 0 {
		m.toasts = m.toasts[1:]
	}
}

// Tick drops expired toasts and reports whether any remain.
func (m *ToastManager) Tick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.Expired(now) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
	return len(m.toasts) > 0
}

// Toasts returns a copy of the visible toasts.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Toast(nil), m.toasts...)
}

// Clear removes all toasts.
func (m *ToastManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = nil
}

// ToastTickMsg drives expiry.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts every 250ms.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// RenderToasts renders the stack as right-aligned lines of the given width.
func RenderToasts(toasts []Toast, width int, theme *styles.Theme) string {
	if len(toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(toasts))
	for _, t := range toasts {
		var s string
		switch t.Kind {
		case ToastSuccess:
			s = theme.AlertSuccess.Render(styles.StatusIndicators.Success + " " + t.Message)
		case ToastError:
			s = theme.AlertError.Render(styles.StatusIndicators.Error + " " + t.Message)
		default:
			s = theme.AlertInfo.Render(styles.StatusIndicators.Info + " " + t.Message)
		}
		lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Right, lipgloss.NewStyle().MaxWidth(width).Render(s)))
	}
	return strings.Join(lines, "\n")
}
