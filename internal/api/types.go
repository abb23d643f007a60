// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// =============================================================================
// SESSION
// =============================================================================

// Roles offered at registration.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Roles lists the registration roles in display order.
var Roles = []string{RoleStudent, RoleTeacher, RoleAdmin}

// Session is the authenticated-user record returned by login/register.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// UnmarshalJSON accepts user_id as a JSON string or number.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID json.RawMessage `json:"user_id"`
		Email  string          `json:"email"`
		Role   string          `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := flexibleID(raw.UserID)
	if err != nil {
		return fmt.Errorf("user_id: %w", err)
	}
	*s = Session{UserID: id, Email: raw.Email, Role: raw.Role}
	return nil
}

// Valid reports whether the record identifies a user.
func (s Session) Valid() bool {
	return s.UserID != ""
}

func flexibleID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

// =============================================================================
// CHAT
// =============================================================================

// Message types.
const (
	TypeUser      = "user"
	TypeAssistant = "assistant"
)

// Message is one turn of a thread.
type Message struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// UnmarshalJSON accepts "type" or the stored form's "role"; type wins.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Type      string          `json:"type"`
		Role      string          `json:"role"`
		Content   string          `json:"content"`
		Timestamp string          `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := flexibleID(raw.ID)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	kind := raw.Type
	if kind == "" {
		kind = raw.Role
	}
	*m = Message{ID: id, Type: kind, Content: raw.Content, Timestamp: raw.Timestamp}
	return nil
}

// Thread is a thread summary from the listing endpoint.
type Thread struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	LastMessage string `json:"lastMessage,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// ThreadDetail is a full stored thread.
type ThreadDetail struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt string    `json:"created_at,omitempty"`
	UpdatedAt string    `json:"updated_at,omitempty"`
}

// QueryRequest is one question sent to /query.
type QueryRequest struct {
	Query string
	// ChatID is empty for a new thread.
	ChatID          string
	UserID          string
	SelectedFolders []string
	// Attachments switch the encoding from JSON to multipart.
	Attachments []Attachment
}

// QueryResponse is the backend's answer.
type QueryResponse struct {
	Response string `json:"response"`
	ChatID   string `json:"chat_id"`
}

// =============================================================================
// FILES AND FOLDERS
// =============================================================================

// File is an uploaded document.
type File struct {
	FileID       string `json:"file_id"`
	FileName     string `json:"file_name"`
	OriginalName string `json:"original_name"`
	FileSize     int64  `json:"file_size"`
	CreatedAt    string `json:"created_at"`
}

// DisplayName prefers the name the user uploaded.
func (f File) DisplayName() string {
	if f.OriginalName != "" {
		return f.OriginalName
	}
	return f.FileName
}

// Folder is a smart folder backed by its own vector index on the server.
type Folder struct {
	FolderID     string `json:"folder_id"`
	FolderName   string `json:"folder_name"`
	CreatedAt    string `json:"created_at"`
	FileCount    int    `json:"file_count"`
	VectorDBName string `json:"vector_db_name"`
}

// UploadResult is the body of a successful upload.
type UploadResult struct {
	Message string `json:"message"`
	Files   []File `json:"files"`
}
