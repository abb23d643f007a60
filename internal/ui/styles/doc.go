// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colors and lipgloss styles of the ragchat TUI.
//
// Colors are lipgloss.AdaptiveColor values, so the light or dark variant is
// picked from the renderer's background setting. Theme.Toggle flips that
// setting, which is how the chat layout's dark mode switch works.
package styles
