// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler.
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new                Start a new chat
//   /threads            List chats
//   /open ID            Continue a chat
//   /history            Reprint the current chat
//   /attach FILE...     Attach files to the next question
//   /detach             Drop pending attachments
//   /folders            List folders and the selection
//   /folder ID          Toggle a folder in the selection
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the question in flight
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/ragchat-tui/internal/api"
	core "github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/folders"
	"github.com/jeranaias/ragchat-tui/internal/session"
)

// =============================================================================
// INPUT
// =============================================================================

// lineReader is where the REPL reads lines from.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// linerInput provides history and line editing on a terminal.
type linerInput struct {
	line        *liner.State
	historyFile string
}

func newLinerInput() *linerInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &linerInput{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (l *linerInput) Prompt(prompt string) (string, error) {
	input, err := l.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		l.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (l *linerInput) Close() error {
	if err := os.MkdirAll(filepath.Dir(l.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(l.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			l.line.WriteHistory(f)
			f.Close()
		}
	}
	return l.line.Close()
}

// plainInput reads lines from a pipe.
type plainInput struct {
	env *Env
}

func (p plainInput) Prompt(prompt string) (string, error) { return p.env.readLine(prompt) }
func (p plainInput) Close() error                        { return nil }

var newLineReader = func(env *Env) lineReader {
	if env.Interactive && isTerminal(env.Stdin) {
		return newLinerInput()
	}
	return plainInput{env: env}
}

// =============================================================================
// SESSION
// =============================================================================

type chatREPL struct {
	env     *Env
	args    Args
	out     io.Writer
	orch    *core.Orchestrator
	folders *folders.Manager
}

// HandleChat handles "ragchat chat [--chat ID]".
func HandleChat(ctx context.Context, env *Env, args Args) error {
	sess, ok := env.Sessions.Current()
	if !ok {
		return session.ErrNotLoggedIn
	}

	mgr := folders.NewManager(env.Client, env.Sessions, folders.NewSelection(), nil).WithLogger(env.Log)
	r := &chatREPL{
		env:     env,
		args:    args,
		out:     env.Stdout,
		orch:    newOrchestrator(env).WithFolderScope(mgr),
		folders: mgr,
	}

	fmt.Fprintln(r.out, TitleStyle.Render("RAG Chat")+"  "+MutedStyle.Render(sess.Email))
	fmt.Fprintln(r.out, MutedStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Fprintln(r.out)

	if id := args.Opts.Flag("chat"); id != "" {
		r.open(ctx, id)
	}

	in := newLineReader(env)
	defer in.Close()

	for {
		line, err := in.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}
		if strings.HasPrefix(line, "/") {
			if !r.command(ctx, line) {
				return nil
			}
			continue
		}
		if err := r.send(ctx, line); err != nil {
			return err
		}
	}
}

// send asks one question. Ctrl+C cancels it without leaving the REPL.
func (r *chatREPL) send(ctx context.Context, text string) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(r.out, MutedStyle.Render("AI is thinking..."))
	c, err := r.orch.Send(sctx, text)
	switch {
	case errors.Is(err, core.ErrStale):
		return nil
	case errors.Is(err, session.ErrNotLoggedIn):
		return err
	case err != nil:
		r.alert(err)
		return nil
	case c.Outcome == core.OutcomeFailed:
		r.alertText(c.Message.Content)
		return nil
	}

	fmt.Fprintln(r.out, AssistantLabelStyle.Render("Assistant:"))
	fmt.Fprintln(r.out, r.env.render(r.args, c.Message.Content))
	if c.AdoptedThreadID != "" {
		fmt.Fprintln(r.out, MutedStyle.Render("chat: "+c.AdoptedThreadID))
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *chatREPL) alert(err error) {
	r.alertText(userMessage(err))
}

func (r *chatREPL) alertText(text string) {
	fmt.Fprintf(r.env.Stderr, "%s %s\n", ErrorStyle.Render("[Error]"), text)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command runs a slash command and reports whether the REPL continues.
func (r *chatREPL) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name, rest := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/q", "/exit":
		return false

	case "/help", "/h", "/?":
		r.help()

	case "/new":
		r.orch.NewChat()
		fmt.Fprintln(r.out, MutedStyle.Render("Started a new chat"))

	case "/threads":
		threads, err := r.orch.RefreshThreads(ctx)
		if err != nil {
			r.alert(err)
			break
		}
		if len(threads) == 0 {
			fmt.Fprintln(r.out, MutedStyle.Render("No chat history yet"))
		}
		for _, t := range threads {
			marker := " "
			if t.ID == r.orch.ActiveThreadID() {
				marker = "*"
			}
			fmt.Fprintf(r.out, "%s %s  %s\n", marker, MutedStyle.Render(t.ID), t.Title)
		}

	case "/open":
		if len(rest) == 0 {
			r.alert(errMissingArgument("ID", "/open ID"))
			break
		}
		r.open(ctx, rest[0])

	case "/history":
		r.history()

	case "/attach":
		atts, err := attachmentsFromPaths(rest)
		if err != nil {
			r.alert(err)
			break
		}
		for _, a := range atts {
			r.orch.AddAttachment(a)
		}
		r.attachments()

	case "/detach":
		r.orch.SetAttachments(nil)
		fmt.Fprintln(r.out, MutedStyle.Render("Attachments cleared"))

	case "/folders":
		r.listFolders(ctx)

	case "/folder":
		if len(rest) == 0 {
			r.alert(errMissingArgument("ID", "/folder ID"))
			break
		}
		r.toggleFolder(ctx, rest[0])

	default:
		fmt.Fprintf(r.env.Stderr, "Unknown command %s. Type /help for commands.\n", name)
	}
	return true
}

func (r *chatREPL) help() {
	for _, h := range [][2]string{
		{"/new", "Start a new chat"},
		{"/threads", "List chats"},
		{"/open ID", "Continue a chat"},
		{"/history", "Reprint the current chat"},
		{"/attach FILE...", "Attach files to the next question"},
		{"/detach", "Drop pending attachments"},
		{"/folders", "List folders and the selection"},
		{"/folder ID", "Toggle a folder in the selection"},
		{"/quit", "Exit"},
	} {
		fmt.Fprintf(r.out, "  %s %s\n", PromptStyle.Render(fmt.Sprintf("%-16s", h[0])), h[1])
	}
}

func (r *chatREPL) open(ctx context.Context, id string) {
	if err := r.orch.SwitchThread(ctx, id); err != nil {
		r.alertText("Failed to load chat: " + api.ServerMessage(err, userMessage(err)))
		return
	}
	r.history()
}

func (r *chatREPL) history() {
	msgs := r.orch.Messages()
	if len(msgs) == 0 {
		fmt.Fprintln(r.out, MutedStyle.Render("Start a conversation"))
		return
	}
	for _, m := range msgs {
		printMessage(r.out, r.env, r.args, m)
	}
}

func (r *chatREPL) attachments() {
	atts := r.orch.Attachments()
	names := make([]string, len(atts))
	for i, a := range atts {
		names[i] = a.DisplayName()
	}
	fmt.Fprintf(r.out, "%s %s\n", LabelStyle.Render("Attached:"), strings.Join(names, ", "))
}

// loadFolders fetches the list once so the selection can be checked.
func (r *chatREPL) loadFolders(ctx context.Context) bool {
	if r.folders.Loaded() {
		return true
	}
	if _, err := r.folders.Load(ctx); err != nil {
		r.alert(err)
		return false
	}
	return true
}

func (r *chatREPL) listFolders(ctx context.Context) {
	if !r.loadFolders(ctx) {
		return
	}
	list := r.folders.Folders()
	if len(list) == 0 {
		fmt.Fprintln(r.out, MutedStyle.Render("No folders yet. Create one to organize your files."))
		return
	}
	sel := r.folders.Selection()
	for _, f := range list {
		box := "[ ]"
		if sel.Contains(f.FolderID) {
			box = "[x]"
		}
		fmt.Fprintf(r.out, "%s %s  %s\n", box, MutedStyle.Render(f.FolderID), f.FolderName)
	}
}

func (r *chatREPL) toggleFolder(ctx context.Context, id string) {
	if !r.loadFolders(ctx) {
		return
	}
	for _, f := range r.folders.Folders() {
		if f.FolderID != id {
			continue
		}
		state := "Deselected"
		if r.folders.Toggle(id) {
			state = "Selected"
		}
		fmt.Fprintf(r.out, "%s %s\n", MutedStyle.Render(state), f.FolderName)
		return
	}
	r.alertText("No folder with id " + id)
}
