// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/files"
	"github.com/jeranaias/ragchat-tui/internal/folders"
	"github.com/jeranaias/ragchat-tui/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is invalid command usage. Usage holds the correct form.
type UsageError struct {
	Message string
	Usage   string
}

func (e *UsageError) Error() string {
	if e.Usage != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Message, e.Usage)
	}
	return e.Message
}

// ErrCancelled is returned when the user declines a confirmation.
var ErrCancelled = errors.New("cancelled")

func errMissingArgument(arg, usage string) error {
	return &UsageError{Message: "missing required argument: " + arg, Usage: usage}
}

// =============================================================================
// DISPLAY
// =============================================================================

// userMessage is the one-line text shown for err.
func userMessage(err error) string {
	var apiErr *api.Error
	var ae *authError
	switch {
	case errors.As(err, &ae):
		return ae.Error()
	case errors.Is(err, session.ErrNotLoggedIn):
		return "Not logged in. Run 'ragchat login' first."
	case api.IsNetwork(err):
		return "Network error. Please check if the server is running."
	case errors.As(err, &apiErr):
		return apiErr.Error()
	}
	return err.Error()
}

// DisplayError writes err to w. In JSON mode the error envelope goes to w
// unstyled.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse("", errors.New(userMessage(err)))
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), userMessage(err))
}

// GetExitCode maps an error to the process exit status.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) ||
		errors.Is(err, files.ErrTooManyFiles) || errors.Is(err, files.ErrNoFiles) ||
		errors.Is(err, folders.ErrEmptyName) {
		return ExitUsageError
	}

	var cfgErr config.ValidateErrors
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}

	if errors.Is(err, session.ErrNotLoggedIn) {
		return ExitAuthError
	}

	if api.IsNetwork(err) {
		return ExitNetworkError
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ExitAuthError
		case http.StatusNotFound:
			return ExitNotFoundError
		}
	}

	return ExitGeneralError
}
