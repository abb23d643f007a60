// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/markdown"
	"github.com/jeranaias/ragchat-tui/internal/session"
)

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Env is what every command runs against. main builds it once from the
// loaded configuration.
type Env struct {
	Config   *config.Config
	Client   *api.Client
	Sessions *session.Provider
	Markdown *markdown.Renderer
	Log      zerolog.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive allows prompting on Stdin.
	Interactive bool

	in *bufio.Reader
}

// Run executes every command except the TUI, which main starts itself.
func Run(ctx context.Context, env *Env, cmd Command, args Args) error {
	if args.Opts == nil {
		args.Opts = NewArgParser(nil)
	}
	switch cmd {
	case CmdLogin:
		return HandleLogin(ctx, env, args)
	case CmdRegister:
		return HandleRegister(ctx, env, args)
	case CmdLogout:
		return HandleLogout(env, args)
	case CmdWhoami:
		return HandleWhoami(env, args)
	case CmdAsk:
		return HandleAsk(ctx, env, args)
	case CmdChat:
		return HandleChat(ctx, env, args)
	case CmdThreads:
		return HandleThreads(ctx, env, args)
	case CmdFiles:
		return HandleFiles(ctx, env, args)
	case CmdFolders:
		return HandleFolders(ctx, env, args)
	case CmdConfig:
		return HandleConfig(env, args)
	case CmdVersion:
		if args.JSON {
			return NewJSONResponse("version", VersionData{
				Version: Version, GitCommit: GitCommit, BuildDate: BuildDate, GoVersion: runtime.Version(),
			}).Print(env.Stdout)
		}
		PrintVersion(env.Stdout)
		return nil
	case CmdHelp:
		PrintUsage(env.Stdout)
		return nil
	}
	return &UsageError{Message: fmt.Sprintf("%s cannot run here", cmd)}
}

// =============================================================================
// INPUT
// =============================================================================

func (e *Env) reader() *bufio.Reader {
	if e.in == nil {
		e.in = bufio.NewReader(e.Stdin)
	}
	return e.in
}

// readLine prompts on Stderr and reads one line from Stdin.
func (e *Env) readLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(e.Stderr, prompt)
	}
	line, err := e.reader().ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks before a destructive action. --confirm skips the prompt;
// without a terminal it is required.
func (e *Env) confirm(args Args, question string) error {
	if args.Opts.BoolFlag("confirm") {
		return nil
	}
	if args.JSON || !e.Interactive {
		return &UsageError{Message: "confirmation required: use --confirm"}
	}
	answer, err := e.readLine(question + " [y/N]: ")
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return ErrCancelled
}

// =============================================================================
// OUTPUT
// =============================================================================

// emit prints data as a JSON envelope, or calls human.
func (e *Env) emit(args Args, command string, data interface{}, human func(w io.Writer)) error {
	if args.JSON {
		return NewJSONResponse(command, data).Print(e.Stdout)
	}
	human(e.Stdout)
	return nil
}

// success prints a confirmation line unless JSON output was requested.
func (e *Env) success(args Args, command, text string, data interface{}) error {
	return e.emit(args, command, data, func(w io.Writer) {
		fmt.Fprintln(w, SuccessStyle.Render(text))
	})
}

// render formats an answer for the terminal. Output that is not going to
// a color terminal gets the markdown source.
func (e *Env) render(args Args, text string) string {
	if args.NoMarkdown || e.Markdown == nil || !e.colorOutput() {
		return text
	}
	width := terminalWidth(e.Stdout)
	if wrap := e.wordWrap(); wrap > 0 && wrap < width {
		width = wrap
	}
	return e.Markdown.Render(text, width)
}

// colorOutput honors NO_COLOR and FORCE_COLOR, then checks Stdout itself.
func (e *Env) colorOutput() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return isTerminal(e.Stdout)
}

func (e *Env) wordWrap() int {
	if e.Config == nil {
		return config.DefaultWordWrap
	}
	return e.Config.UI.WordWrap
}

func (e *Env) baseURL() string {
	if e.Client != nil {
		return e.Client.BaseURL()
	}
	if e.Config != nil {
		return e.Config.API.BaseURL
	}
	return config.DefaultBaseURL
}
