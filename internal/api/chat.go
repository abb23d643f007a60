// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// FailedResponseMessage is used when a query answer has neither a
// response nor an error.
const FailedResponseMessage = "Failed to get response"

// Threads lists the thread summaries, most recently updated first.
func (c *Client) Threads(ctx context.Context) ([]Thread, error) {
	var out struct {
		Threads []Thread `json:"threads"`
	}
	if err := c.getJSON(ctx, "/chat/threads", &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

// Thread fetches one stored thread with its messages.
func (c *Client) Thread(ctx context.Context, chatID string) (ThreadDetail, error) {
	var out struct {
		Chat ThreadDetail `json:"chat"`
	}
	if err := c.getJSON(ctx, pathf("/chats/%s", chatID), &out); err != nil {
		return ThreadDetail{}, err
	}
	if out.Chat.ID == "" {
		out.Chat.ID = chatID
	}
	return out.Chat, nil
}

// DeleteThread removes a stored thread.
func (c *Client) DeleteThread(ctx context.Context, chatID string) error {
	return c.delete(ctx, pathf("/chats/%s", chatID))
}

// jsonQuery is the JSON encoding. ChatID is a pointer so a new thread
// serializes as null; SelectedFolders is never nil so it serializes as [].
type jsonQuery struct {
	Query           string   `json:"query"`
	ChatID          *string  `json:"chat_id"`
	UserID          string   `json:"user_id"`
	SelectedFolders []string `json:"selected_folders"`
}

type queryBody struct {
	Response string `json:"response"`
	ChatID   string `json:"chat_id"`
	Error    string `json:"error"`
}

// Query asks a question. With attachments the request is multipart form
// data, otherwise JSON; the endpoint is the same. A 2xx answer without a
// response is reported as *Error.
func (c *Client) Query(ctx context.Context, q QueryRequest) (QueryResponse, error) {
	var (
		body        *bytes.Buffer
		contentType string
	)

	if len(q.Attachments) > 0 {
		// The backend only starts a new thread when chat_id is absent; an
		// empty field would be stored as a thread named "".
		fields := []formField{{"query", q.Query}}
		if q.ChatID != "" {
			fields = append(fields, formField{"chat_id", q.ChatID})
		}
		fields = append(fields, formField{"user_id", q.UserID})
		for _, id := range q.SelectedFolders {
			fields = append(fields, formField{"selected_folders", id})
		}
		var err error
		body, contentType, err = buildMultipart(fields, q.Attachments)
		if err != nil {
			return QueryResponse{}, err
		}
	} else {
		jq := jsonQuery{
			Query:           q.Query,
			UserID:          q.UserID,
			SelectedFolders: append([]string{}, q.SelectedFolders...),
		}
		if q.ChatID != "" {
			id := q.ChatID
			jq.ChatID = &id
		}
		data, err := json.Marshal(jq)
		if err != nil {
			return QueryResponse{}, fmt.Errorf("failed to marshal request: %w", err)
		}
		body, contentType = bytes.NewBuffer(data), contentTypeJSON
	}

	var out queryBody
	if err := c.do(ctx, http.MethodPost, "/query", body, contentType, &out); err != nil {
		return QueryResponse{}, err
	}
	if out.Response == "" {
		msg := out.Error
		if msg == "" {
			msg = FailedResponseMessage
		}
		return QueryResponse{}, &Error{Status: http.StatusOK, Message: msg}
	}
	return QueryResponse{Response: out.Response, ChatID: out.ChatID}, nil
}
