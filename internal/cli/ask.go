// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/jeranaias/ragchat-tui/internal/api"
	core "github.com/jeranaias/ragchat-tui/internal/chat"
	"github.com/jeranaias/ragchat-tui/internal/folders"
)

const askUsage = `ragchat ask "question" [--chat ID] [--attach FILE]... [--folder ID]...`

// askResult is the JSON form of an answer.
type askResult struct {
	Response string `json:"response"`
	ChatID   string `json:"chat_id"`
}

// HandleAsk handles "ragchat ask".
func HandleAsk(ctx context.Context, env *Env, args Args) error {
	query := strings.Join(args.Opts.PositionalFrom(0), " ")
	if query == "-" {
		data, err := io.ReadAll(env.Stdin)
		if err != nil {
			return fmt.Errorf("read question: %w", err)
		}
		query = string(data)
	}
	if strings.TrimSpace(query) == "" {
		return errMissingArgument("question", askUsage)
	}

	atts, err := attachmentsFromPaths(args.Opts.Flags("attach"))
	if err != nil {
		return err
	}

	orch := newOrchestrator(env)
	if ids := args.Opts.Flags("folder"); len(ids) > 0 {
		scope, err := askScope(ctx, env, ids)
		if err != nil {
			return err
		}
		orch.WithFolderScope(scope)
	}
	if id := args.Opts.Flag("chat"); id != "" {
		if err := orch.SwitchThread(ctx, id); err != nil {
			return err
		}
	}
	orch.SetAttachments(atts)

	c, err := orch.Send(ctx, strings.TrimSpace(query))
	if err != nil {
		return err
	}
	if c.Outcome == core.OutcomeFailed {
		return c.Err
	}

	res := askResult{Response: c.Message.Content, ChatID: orch.ActiveThreadID()}
	return env.emit(args, "ask", res, func(w io.Writer) {
		fmt.Fprintln(w, env.render(args, res.Response))
		if c.AdoptedThreadID != "" {
			fmt.Fprintln(env.Stderr, MutedStyle.Render("chat: "+res.ChatID))
		}
	})
}

// askScope selects the requested folder ids against the user's folder
// list. Ids the user does not own are dropped with a warning.
func askScope(ctx context.Context, env *Env, ids []string) (*folders.Manager, error) {
	mgr := folders.NewManager(env.Client, env.Sessions, folders.NewSelection(), nil).WithLogger(env.Log)
	if _, err := mgr.Load(ctx); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if mgr.Selection().Contains(id) {
			continue
		}
		mgr.Toggle(id)
	}
	selected := mgr.SelectedIDs()
	for _, id := range ids {
		if !slices.Contains(selected, id) {
			fmt.Fprintln(env.Stderr, MutedStyle.Render("Warning: no folder with id "+id))
		}
	}
	return mgr, nil
}

func newOrchestrator(env *Env) *core.Orchestrator {
	return core.New(env.Client, env.Sessions, nil, env.baseURL()).WithLogger(env.Log)
}

// attachmentsFromPaths checks that every path is a regular file. Contents
// are read when the request is built.
func attachmentsFromPaths(paths []string) ([]api.Attachment, error) {
	atts := make([]api.Attachment, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &UsageError{Message: "file not found: " + p}
		}
		if info.IsDir() {
			return nil, &UsageError{Message: "not a file: " + p}
		}
		atts = append(atts, api.FileAttachment(p))
	}
	return atts, nil
}
