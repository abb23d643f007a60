// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package route models ragchat's navigable views and the session guard that
// decides which one is shown.
package route

import (
	"net/url"
	"strings"
)

// Kind identifies a view.
type Kind int

const (
	// Root is "/", which only ever redirects.
	Root Kind = iota
	Login
	// Chat is "/chat" (new thread) or "/chat/:id" (ChatID set).
	Chat
)

// Route is a parsed path.
type Route struct {
	Kind   Kind
	ChatID string
}

// Common routes.
var (
	RootRoute  = Route{Kind: Root}
	LoginRoute = Route{Kind: Login}
	NewChat    = Route{Kind: Chat}
)

// ChatRoute returns /chat/:id, or /chat when id is empty.
func ChatRoute(id string) Route {
	return Route{Kind: Chat, ChatID: id}
}

// Parse maps a path to a Route. Unknown paths resolve to Root.
func Parse(path string) Route {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "login":
		return LoginRoute
	case len(parts) == 1 && parts[0] == "chat":
		return NewChat
	case len(parts) == 2 && parts[0] == "chat" && parts[1] != "":
		id, err := url.PathUnescape(parts[1])
		if err != nil {
			return RootRoute
		}
		return ChatRoute(id)
	default:
		return RootRoute
	}
}

// String renders the path form.
func (r Route) String() string {
	switch r.Kind {
	case Login:
		return "/login"
	case Chat:
		if r.ChatID != "" {
			return "/chat/" + url.PathEscape(r.ChatID)
		}
		return "/chat"
	default:
		return "/"
	}
}

// Guard resolves r against session presence. Without a session everything
// but /login goes to /login; with one, /login and / go to /chat.
func Guard(r Route, authenticated bool) Route {
	if !authenticated {
		return LoginRoute
	}
	switch r.Kind {
	case Login, Root:
		return NewChat
	default:
		return r
	}
}
