// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

const threadsUsage = "ragchat threads [list|show ID|delete ID [--confirm]]"

// HandleThreads handles "ragchat threads".
func HandleThreads(ctx context.Context, env *Env, args Args) error {
	switch args.Subcommand {
	case "", "list", "ls":
		return threadsList(ctx, env, args)
	case "show", "open":
		return threadsShow(ctx, env, args)
	case "delete", "rm":
		return threadsDelete(ctx, env, args)
	}
	return &UsageError{Message: fmt.Sprintf("unknown threads subcommand %q", args.Subcommand), Usage: threadsUsage}
}

func threadsList(ctx context.Context, env *Env, args Args) error {
	threads, err := newOrchestrator(env).RefreshThreads(ctx)
	if err != nil {
		return err
	}
	if threads == nil {
		threads = []api.Thread{}
	}
	return env.emit(args, "threads", threads, func(w io.Writer) {
		if len(threads) == 0 {
			fmt.Fprintln(w, MutedStyle.Render("No chat history yet"))
			return
		}
		for _, t := range threads {
			fmt.Fprintf(w, "%s  %s  %s\n",
				MutedStyle.Render(util.PadRight(t.ID, 36)),
				util.PadRight(util.Truncate(util.OneLine(t.Title), 40), 40),
				MutedStyle.Render(shortTime(t.UpdatedAt)))
		}
	})
}

func threadsShow(ctx context.Context, env *Env, args Args) error {
	id := args.Opts.Positional(1)
	if id == "" {
		return errMissingArgument("ID", "ragchat threads show ID")
	}
	detail, err := env.Client.Thread(ctx, id)
	if err != nil {
		return fmt.Errorf("load thread %s: %w", id, err)
	}
	return env.emit(args, "threads.show", detail, func(w io.Writer) {
		fmt.Fprintln(w, TitleStyle.Render(detail.Title))
		fmt.Fprintln(w)
		for _, m := range detail.Messages {
			printMessage(w, env, args, m)
		}
	})
}

func threadsDelete(ctx context.Context, env *Env, args Args) error {
	id := args.Opts.Positional(1)
	if id == "" {
		return errMissingArgument("ID", "ragchat threads delete ID [--confirm]")
	}
	if err := env.confirm(args, "Are you sure you want to delete this chat?"); err != nil {
		return err
	}
	if err := newOrchestrator(env).DeleteThread(ctx, id); err != nil {
		return err
	}
	return env.success(args, "threads.delete", "Chat deleted", map[string]string{"id": id})
}

// printMessage writes one transcript turn.
func printMessage(w io.Writer, env *Env, args Args, m api.Message) {
	if m.Type == api.TypeUser {
		fmt.Fprintln(w, UserLabelStyle.Render("You:"), m.Content)
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w, AssistantLabelStyle.Render("Assistant:"))
	fmt.Fprintln(w, env.render(args, m.Content))
	fmt.Fprintln(w)
}

// shortTime trims an RFC 3339 timestamp to minutes.
func shortTime(ts string) string {
	if len(ts) >= 16 {
		return ts[:10] + " " + ts[11:16]
	}
	return ts
}
