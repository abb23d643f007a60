// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session persists the authenticated-user record and hands it to
// the components that need it.
//
// Presence of a well-formed record is the only authentication signal; there
// is no token and no server-side validation.
//
// # Key Types
//
//   - Store: reads and writes the record under Key in a storage.KV
//   - Provider: caches the record and is what components receive
//
// # Usage
//
//	kv, _ := storage.Open("file", dir)
//	sessions := session.NewProvider(session.NewStore(kv, log))
//	if sess, ok := sessions.Current(); ok {
//	    fmt.Println(sess.Email)
//	}
//
// Watch reports logins and logouts made by another ragchat process when the
// backend supports it (the file backend does, through fsnotify).
package session
