// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across ragchat.
//
// # Key Functions
//
// File Operations:
//   - WriteFileAtomic: crash-safe file writing with fsync and rename
//
// Display Helpers:
//   - Truncate: display-width aware truncation with ellipsis
//   - OneLine: collapses whitespace so text fits a single list row
//   - HumanSize: byte counts as KB/MB for file listings
//   - PadRight: display-width aware padding for table columns
//
// # Usage
//
//	title := util.Truncate(util.OneLine(thread.Title), 28)
//	err := util.WriteFileAtomic(path, data, 0600)
package util
