// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/files"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

const filesUsage = "ragchat files [list|upload FILE...|delete ID [--confirm]]"

// HandleFiles handles "ragchat files".
func HandleFiles(ctx context.Context, env *Env, args Args) error {
	mgr := files.NewManager(env.Client, env.Sessions, nil).WithLogger(env.Log)
	defer mgr.Close()

	switch args.Subcommand {
	case "", "list", "ls":
		list, err := mgr.List(ctx)
		if err != nil {
			return err
		}
		return printFiles(env, args, "files", list)

	case "upload":
		atts, err := attachmentsFromPaths(args.Opts.PositionalFrom(1))
		if err != nil {
			return err
		}
		res, err := mgr.Upload(ctx, atts)
		if err != nil {
			return err
		}
		return env.success(args, "files.upload", "Files uploaded successfully!", res)

	case "delete", "rm":
		id := args.Opts.Positional(1)
		if id == "" {
			return errMissingArgument("ID", "ragchat files delete ID [--confirm]")
		}
		if err := env.confirm(args, "Are you sure you want to delete this file?"); err != nil {
			return err
		}
		if _, err := mgr.Delete(ctx, id); err != nil {
			return err
		}
		return env.success(args, "files.delete", "File deleted successfully", map[string]string{"id": id})

	case "download":
		return mgr.Download(ctx, args.Opts.Positional(1))
	}
	return &UsageError{Message: fmt.Sprintf("unknown files subcommand %q", args.Subcommand), Usage: filesUsage}
}

// printFiles writes a file table, or the list as JSON.
func printFiles(env *Env, args Args, command string, list []api.File) error {
	if list == nil {
		list = []api.File{}
	}
	return env.emit(args, command, list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, MutedStyle.Render("No files uploaded yet."))
			return
		}
		for _, f := range list {
			fmt.Fprintf(w, "%s  %s  %s  %s\n",
				MutedStyle.Render(util.PadRight(f.FileID, 36)),
				util.PadRight(util.Truncate(f.DisplayName(), 40), 40),
				util.PadRight(util.HumanSize(f.FileSize), 9),
				MutedStyle.Render(shortTime(f.CreatedAt)))
		}
	})
}
