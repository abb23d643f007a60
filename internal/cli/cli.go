// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdRegister
	CmdLogout
	CmdWhoami
	CmdAsk
	CmdChat
	CmdThreads
	CmdFiles
	CmdFolders
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:      "tui",
	CmdLogin:    "login",
	CmdRegister: "register",
	CmdLogout:   "logout",
	CmdWhoami:   "whoami",
	CmdAsk:      "ask",
	CmdChat:     "chat",
	CmdThreads:  "threads",
	CmdFiles:    "files",
	CmdFolders:  "folders",
	CmdConfig:   "config",
	CmdVersion:  "version",
	CmdHelp:     "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	APIURL     string
	JSON       bool
	NoMarkdown bool
	Verbose    bool

	// Subcommand is the first positional after the command.
	Subcommand string
	// Opts holds command-specific flags and positionals.
	Opts *ArgParser
}

// boolFlags lists, per command, the flags that take no value.
var boolFlags = map[Command][]string{
	CmdThreads: {"confirm"},
	CmdFiles:   {"confirm"},
	CmdFolders: {"confirm"},
}

const usageText = `ragchat - terminal client for the RAG chat backend

Usage:
  ragchat                          Start the TUI (default)
  ragchat tui [--open /chat/ID]    Start the TUI on a route
  ragchat login [--email E]        Sign in (password read without echo)
  ragchat register [--email E] [--role student|teacher|admin]
                                   Create an account and sign in
  ragchat logout                   Forget the stored session
  ragchat whoami                   Show the signed-in user

Chat:
  ragchat ask "question"           Ask one question in a new chat
    --chat ID                      Continue an existing chat
    --attach FILE                  Attach a file (repeatable)
    --folder ID                    Search a smart folder (repeatable)
  ragchat ask -                    Read the question from stdin
  ragchat chat [--chat ID]         Interactive chat (type /help inside)

History:
  ragchat threads [list]           List chats
  ragchat threads show ID          Print a chat
  ragchat threads delete ID        Delete a chat (--confirm to skip prompt)

Files:
  ragchat files [list]             List uploaded files
  ragchat files upload FILE...     Upload up to 5 files, 10MB each
  ragchat files delete ID          Delete a file (--confirm to skip prompt)

Smart folders:
  ragchat folders [list]           List folders
  ragchat folders create NAME      Create a folder
  ragchat folders delete ID        Delete a folder and its files
  ragchat folders upload ID FILE...
                                   Upload files into a folder
  ragchat folders files ID         List a folder's files

Configuration:
  ragchat config [show]            Show the effective configuration
  ragchat config get KEY           Print one value (e.g. api.base_url)
  ragchat config set KEY VALUE     Change a value in config.toml
  ragchat config path              Print the config file path

  ragchat version                  Show version information
  ragchat help                     Show this help

Global Flags:
  --api-url URL    Backend origin (overrides config and RAGCHAT_API_URL)
  --json           Machine-readable output
  --no-markdown    Print answers as plain text
  -v, --verbose    Also log to stderr

Environment:
  RAGCHAT_HOME       State and config directory (default ~/.ragchat)
  RAGCHAT_API_URL    Backend origin (VITE_API_URL is honored too)
  RAGCHAT_STORAGE    Session storage backend: file or sqlite
  RAGCHAT_LOG_LEVEL  trace, debug, info, warn, error, disabled
  RAGCHAT_THEME      dark, light or auto

Version: %s
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "ragchat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses argv (without the program name) into a command and args.
func Parse(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}

	cmd := CmdTUI
	// "ragchat --open /chat/ID" starts the TUI too.
	bareFlags := len(remaining) > 0 && strings.HasPrefix(remaining[0], "-") &&
		remaining[0] != "-h" && remaining[0] != "--help" && remaining[0] != "--version"
	if len(remaining) > 0 && !bareFlags {
		name := strings.ToLower(remaining[0])
		found := false
		for c, n := range commandNames {
			if n == name {
				cmd, found = c, true
				break
			}
		}
		if !found {
			switch name {
			case "-h", "--help":
				cmd, found = CmdHelp, true
			case "--version":
				cmd, found = CmdVersion, true
			case "thread":
				cmd, found = CmdThreads, true
			case "folder":
				cmd, found = CmdFolders, true
			}
		}
		if !found {
			return CmdHelp, args, &UsageError{Message: fmt.Sprintf("unknown command %q", remaining[0])}
		}
		remaining = remaining[1:]
	}

	args.Opts = NewArgParser(remaining, boolFlags[cmd]...)
	args.Subcommand = args.Opts.Subcommand()
	return cmd, args, nil
}

// parseGlobalFlags removes the global flags from argv wherever they appear.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var args Args
	remaining := make([]string, 0, len(argv))

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--":
			remaining = append(remaining, argv[i:]...)
			return remaining, args, nil
		case arg == "--json":
			args.JSON = true
		case arg == "--no-markdown":
			args.NoMarkdown = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--api-url":
			if i+1 >= len(argv) {
				return nil, args, &UsageError{Message: "--api-url requires a value"}
			}
			args.APIURL = argv[i+1]
			i++
		case strings.HasPrefix(arg, "--api-url="):
			args.APIURL = strings.TrimPrefix(arg, "--api-url=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args, nil
}
