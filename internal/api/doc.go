// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the RAG backend.
//
// Every endpoint is resolved against one base URL. Calls take a
// context.Context so the caller can abandon them when the view that issued
// them goes away.
//
// # Errors
//
//   - *Error: the backend answered with a non-2xx status, or a 2xx query
//     response without an answer. Message carries the body's "error" field.
//   - ErrNetwork: the request never got an HTTP response (wrapped).
//
// # Usage
//
//	client := api.New(cfg.API.BaseURL).WithTimeout(2 * time.Minute)
//	sess, err := client.Login(ctx, email, password)
//	resp, err := client.Query(ctx, api.QueryRequest{Query: "What is RAG?", UserID: sess.UserID})
package api
