// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the chat layout.
type KeyMap struct {
	Submit      key.Binding
	NewChat     key.Binding
	FocusSwitch key.Binding
	Attach      key.Binding
	ClearAttach key.Binding
	Files       key.Binding
	Folders     key.Binding
	Theme       key.Binding
	Logout      key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Close       key.Binding

	// Lists (sidebar and panels)
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Delete key.Binding

	// Panels
	Upload   key.Binding
	Download key.Binding
	Refresh  key.Binding
	Toggle   key.Binding
	Create   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		FocusSwitch: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "chats"),
		),
		Attach: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("C-a", "attach"),
		),
		ClearAttach: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "drop attachments"),
		),
		Files: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("C-f", "files"),
		),
		Folders: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "folders"),
		),
		Theme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "theme"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "logout"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload"),
		),
		Download: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "download"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		Create: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new folder"),
		),
	}
}

// hints returns status bar shortcuts for the chat screen.
func (k KeyMap) hints() []key.Binding {
	return []key.Binding{k.NewChat, k.FocusSwitch, k.Attach, k.Files, k.Folders, k.Theme, k.Logout}
}
