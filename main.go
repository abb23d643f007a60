// ragchat - A terminal client for a retrieval-augmented chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/cli"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/logging"
	"github.com/jeranaias/ragchat-tui/internal/markdown"
	"github.com/jeranaias/ragchat-tui/internal/route"
	"github.com/jeranaias/ragchat-tui/internal/session"
	"github.com/jeranaias/ragchat-tui/internal/storage"
	"github.com/jeranaias/ragchat-tui/internal/ui/app"
	"github.com/jeranaias/ragchat-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		return fail(err, args.JSON)
	}

	switch cmd {
	case cli.CmdHelp, cli.CmdVersion:
		return finish(cli.Run(context.Background(), &cli.Env{Stdout: os.Stdout, Stderr: os.Stderr}, cmd, args), args.JSON)
	}

	cfg, err := config.Load()
	if err != nil {
		// "config" must still work so a broken file can be repaired.
		if cmd != cli.CmdConfig {
			return fail(err, args.JSON)
		}
	}

	deps, cleanup, err := build(cfg, args)
	if err != nil {
		if cmd != cli.CmdConfig {
			return fail(err, args.JSON)
		}
	}
	defer cleanup()

	if cmd == cli.CmdTUI {
		return finish(runTUI(deps, args), false)
	}

	// The chat REPL handles Ctrl+C per question.
	ctx := context.Background()
	if cmd != cli.CmdChat {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	env := &cli.Env{
		Config:      cfg,
		Client:      deps.client,
		Sessions:    deps.sessions,
		Markdown:    deps.markdown,
		Log:         deps.log,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	return finish(cli.Run(ctx, env, cmd, args), args.JSON)
}

func finish(err error, jsonMode bool) int {
	if err == nil {
		return cli.ExitSuccess
	}
	return fail(err, jsonMode)
}

func fail(err error, jsonMode bool) int {
	cli.DisplayError(os.Stderr, err, jsonMode)
	return cli.GetExitCode(err)
}

// =============================================================================
// WIRING
// =============================================================================

type deps struct {
	client   *api.Client
	sessions *session.Provider
	markdown *markdown.Renderer
	theme    *styles.Theme
	log      zerolog.Logger
	baseURL  string
	showTS   bool
}

// build opens the logger and the state store and creates the API client.
// With a nil cfg only the logger is set up.
func build(cfg *config.Config, args cli.Args) (deps, func(), error) {
	d := deps{log: logging.Nop()}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if cfg == nil {
		return d, cleanup, nil
	}

	if args.APIURL != "" {
		cfg.API.BaseURL = args.APIURL
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return d, cleanup, err
		}
	}

	logPath, err := cfg.LogPath()
	if err != nil {
		return d, cleanup, err
	}
	opts := logging.Options{Level: cfg.Log.Level, File: logPath}
	if args.Verbose {
		opts.Console = os.Stderr
	}
	log, closeLog, err := logging.Open(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	} else {
		closers = append(closers, closeLog)
		d.log = log
	}

	dir, err := cfg.StateDir()
	if err != nil {
		return d, cleanup, err
	}
	kv, err := storage.Open(cfg.Storage.Backend, dir)
	if err != nil {
		return d, cleanup, fmt.Errorf("open state store: %w", err)
	}
	closers = append(closers, kv.Close)

	d.sessions = session.NewProvider(session.NewStore(kv, d.log))
	d.client = api.New(cfg.API.BaseURL).
		WithTimeout(time.Duration(cfg.API.TimeoutSecs) * time.Second).
		WithLogger(d.log)
	d.baseURL = cfg.API.BaseURL
	d.showTS = cfg.UI.ShowTimestamps
	d.theme = styles.NewTheme(cfg.UI.Theme)
	d.markdown = markdown.New(markdown.Options{
		Enabled: cfg.UI.Markdown && !args.NoMarkdown,
		Style:   d.theme.Mode(),
	})

	d.log.Debug().Str("base_url", d.baseURL).Str("storage", cfg.Storage.Backend).Msg("starting")
	return d, cleanup, nil
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(d deps, args cli.Args) error {
	m := app.New(app.Deps{
		Client:         d.client,
		Sessions:       d.sessions,
		Markdown:       d.markdown,
		Theme:          d.theme,
		Log:            d.log,
		BaseURL:        d.baseURL,
		ShowTimestamps: d.showTS,
		Open:           route.Parse(args.Opts.Flag("open")),
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		d.log.Error().Err(err).Msg("tui exited")
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
