// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/files"
	"github.com/jeranaias/ragchat-tui/internal/session"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "flag with value",
			args:    []string{"show", "--email", "ada@example.com"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "ada@example.com", p.Flag("email"))
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"--role=teacher"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "teacher", p.Flag("role"))
				assert.Equal(t, "teacher", p.Flag("--role"))
			},
		},
		{
			name:    "registered bool does not consume the next argument",
			args:    []string{"delete", "--confirm", "abc"},
			bools:   []string{"confirm"},
			wantSub: "delete",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("confirm"))
				assert.Equal(t, "abc", p.Positional(1))
			},
		},
		{
			name:    "explicit bool value",
			args:    []string{"--confirm=false"},
			bools:   []string{"confirm"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.False(t, p.BoolFlag("confirm"))
				assert.True(t, p.HasFlag("confirm"))
			},
		},
		{
			name:    "repeated flags keep order",
			args:    []string{"q", "--attach", "a.pdf", "--attach", "b.txt"},
			wantSub: "q",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, []string{"a.pdf", "b.txt"}, p.Flags("attach"))
				assert.Equal(t, "b.txt", p.Flag("attach"))
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"--", "--not-a-flag", "x"},
			wantSub: "--not-a-flag",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, 2, p.PositionalCount())
				assert.False(t, p.HasFlag("not-a-flag"))
			},
		},
		{
			name:    "lone dash is positional",
			args:    []string{"-"},
			wantSub: "-",
		},
		{
			name:    "trailing flag is boolean",
			args:    []string{"x", "--verbose"},
			wantSub: "x",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("verbose"))
				assert.Equal(t, "fallback", p.FlagOrDefault("missing", "fallback"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			assert.Equal(t, tt.wantSub, p.Subcommand())
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_PositionalBounds(t *testing.T) {
	p := NewArgParser([]string{"a", "b"})
	assert.Equal(t, "", p.Positional(-1))
	assert.Equal(t, "", p.Positional(2))
	assert.Equal(t, []string{"b"}, p.PositionalFrom(1))
	assert.Empty(t, p.PositionalFrom(5))
}

// =============================================================================
// PARSE TESTS (cli.go)
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		argv  []string
		want  Command
		check func(*testing.T, Args)
	}{
		{name: "no args starts the TUI", argv: nil, want: CmdTUI},
		{
			name: "bare open flag starts the TUI",
			argv: []string{"--open", "/chat/abc"},
			want: CmdTUI,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/chat/abc", a.Opts.Flag("open"))
			},
		},
		{
			name: "tui with open",
			argv: []string{"tui", "--open", "/chat/abc"},
			want: CmdTUI,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/chat/abc", a.Opts.Flag("open"))
			},
		},
		{
			name: "globals anywhere",
			argv: []string{"ask", "what", "is", "rag", "--json", "--api-url", "http://rag:5001"},
			want: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.JSON)
				assert.Equal(t, "http://rag:5001", a.APIURL)
				assert.Equal(t, []string{"what", "is", "rag"}, a.Opts.PositionalFrom(0))
			},
		},
		{
			name: "api url with equals",
			argv: []string{"--api-url=http://x:1", "-v", "--no-markdown", "whoami"},
			want: CmdWhoami,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "http://x:1", a.APIURL)
				assert.True(t, a.Verbose)
				assert.True(t, a.NoMarkdown)
			},
		},
		{
			name: "delete with confirm",
			argv: []string{"threads", "delete", "--confirm", "t1"},
			want: CmdThreads,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "delete", a.Subcommand)
				assert.Equal(t, "t1", a.Opts.Positional(1))
				assert.True(t, a.Opts.BoolFlag("confirm"))
			},
		},
		{name: "command is case insensitive", argv: []string{"FILES"}, want: CmdFiles},
		{name: "singular alias", argv: []string{"folder", "list"}, want: CmdFolders},
		{name: "help flag", argv: []string{"--help"}, want: CmdHelp},
		{name: "version flag", argv: []string{"--version"}, want: CmdVersion},
		{name: "register", argv: []string{"register", "--role", "teacher"}, want: CmdRegister},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
			require.NotNil(t, args.Opts)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, _, err := Parse([]string{"frobnicate"})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Message, "frobnicate")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, _, err = Parse([]string{"ask", "--api-url"})
	require.ErrorAs(t, err, &usage)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "ask", CmdAsk.String())
	assert.Equal(t, "Command(99)", Command(99).String())
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{&UsageError{Message: "bad"}, ExitUsageError},
		{files.ErrTooManyFiles, ExitUsageError},
		{config.ValidateErrors{{Field: "api.base_url", Message: "invalid"}}, ExitConfigError},
		{session.ErrNotLoggedIn, ExitAuthError},
		{fmt.Errorf("load: %w", &api.Error{Status: http.StatusUnauthorized}), ExitAuthError},
		{&api.Error{Status: http.StatusNotFound, Message: "Chat not found"}, ExitNotFoundError},
		{fmt.Errorf("%w: refused", api.ErrNetwork), ExitNetworkError},
		{&api.Error{Status: http.StatusInternalServerError}, ExitGeneralError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetExitCode(tt.err), "%v", tt.err)
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, session.ErrNotLoggedIn, false)
	assert.Contains(t, buf.String(), "Not logged in. Run 'ragchat login' first.")

	buf.Reset()
	DisplayError(&buf, &authError{fmt.Errorf("%w: dial", api.ErrNetwork)}, true)
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Network error. Please check if the server is running.", *resp.Error)

	buf.Reset()
	DisplayError(&buf, nil, false)
	assert.Empty(t, buf.String())
}
