// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves the ragchat configuration.
//
// Sources, lowest precedence first:
//   - Built-in defaults (Default)
//   - ~/.ragchat/config.toml
//   - .env files (current directory, then ~/.ragchat/.env)
//   - Process environment (RAGCHAT_API_URL, RAGCHAT_STORAGE, ...)
//
// Example config.toml:
//
//	[api]
//	base_url = "http://localhost:5001"
//	timeout_secs = 120
//
//	[storage]
//	backend = "sqlite"
//
//	[ui]
//	theme = "dark"
//	markdown = true
//
//	[log]
//	level = "info"
//
// Keys are addressed with dotted names (api.base_url) by Get and Set, which
// back the "ragchat config" subcommand.
package config
