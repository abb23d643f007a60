// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
)

// ErrNetwork wraps transport failures: refused connections, DNS errors,
// timeouts and unreadable bodies.
var ErrNetwork = errors.New("network error")

// ErrResponseTooLarge is returned when a body exceeds MaxResponseSize.
var ErrResponseTooLarge = errors.New("response exceeded maximum size")

// Error is a response the backend sent but the client cannot treat as success.
type Error struct {
	// Status is the HTTP status code.
	Status int
	// Message is the body's "error" field. Empty when the body had none.
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	return "unexpected response"
}

// ServerMessage returns the backend-provided message, or fallback when the
// body carried none. It handles any error, not only *Error.
func ServerMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}
