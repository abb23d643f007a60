// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the ragchat TUI.
//
// Components are plain structs with a View method. They hold no network
// state; the chat and login models feed them data and read back cursor
// positions.
package components
