// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persistent key-value store behind ragchat's
// client state.
//
// Two backends implement KV:
//
//   - FileKV: one JSON file per key, written atomically, watchable
//   - SQLiteKV: a single kv table in state.db (pure Go driver)
//
// # Usage
//
//	kv, err := storage.Open(cfg.Storage.Backend, stateDir)
//	defer kv.Close()
//
//	data, err := kv.Get("user")
//	if errors.Is(err, storage.ErrNotFound) {
//	    // not logged in
//	}
//
// FileKV also implements Watcher, reporting changes made by other ragchat
// processes sharing the directory.
package storage
