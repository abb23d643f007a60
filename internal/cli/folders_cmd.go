// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/folders"
	"github.com/jeranaias/ragchat-tui/internal/util"
)

const foldersUsage = "ragchat folders [list|create NAME|delete ID [--confirm]|upload ID FILE...|files ID]"

// HandleFolders handles "ragchat folders".
func HandleFolders(ctx context.Context, env *Env, args Args) error {
	mgr := folders.NewManager(env.Client, env.Sessions, nil, nil).WithLogger(env.Log)

	switch args.Subcommand {
	case "", "list", "ls":
		list, err := mgr.Load(ctx)
		if err != nil {
			return err
		}
		return printFolders(env, args, list)

	case "create", "new":
		name := strings.Join(args.Opts.PositionalFrom(1), " ")
		f, err := mgr.Create(ctx, name)
		if err != nil {
			return err
		}
		return env.emit(args, "folders.create", f, func(w io.Writer) {
			fmt.Fprintln(w, SuccessStyle.Render("Folder created successfully!"))
			printField(w, "ID", f.FolderID)
			printField(w, "Name", f.FolderName)
		})

	case "delete", "rm":
		id := args.Opts.Positional(1)
		if id == "" {
			return errMissingArgument("ID", "ragchat folders delete ID [--confirm]")
		}
		if err := env.confirm(args, folders.DeleteConfirmation); err != nil {
			return err
		}
		if err := mgr.Delete(ctx, id); err != nil {
			return err
		}
		return env.success(args, "folders.delete", "Folder deleted successfully!", map[string]string{"id": id})

	case "upload":
		id := args.Opts.Positional(1)
		if id == "" {
			return errMissingArgument("ID", "ragchat folders upload ID FILE...")
		}
		atts, err := attachmentsFromPaths(args.Opts.PositionalFrom(2))
		if err != nil {
			return err
		}
		res, err := mgr.UploadInto(ctx, id, atts)
		if err != nil {
			return err
		}
		return env.success(args, "folders.upload", "Files uploaded successfully!", res)

	case "files", "show":
		id := args.Opts.Positional(1)
		if id == "" {
			return errMissingArgument("ID", "ragchat folders files ID")
		}
		_, list, err := mgr.Expand(ctx, id)
		if err != nil {
			return err
		}
		return printFiles(env, args, "folders.files", list)
	}
	return &UsageError{Message: fmt.Sprintf("unknown folders subcommand %q", args.Subcommand), Usage: foldersUsage}
}

func printFolders(env *Env, args Args, list []api.Folder) error {
	if list == nil {
		list = []api.Folder{}
	}
	return env.emit(args, "folders", list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, MutedStyle.Render("No folders yet. Create one to organize your files."))
			return
		}
		for _, f := range list {
			fmt.Fprintf(w, "%s  %s  %s\n",
				MutedStyle.Render(util.PadRight(f.FolderID, 36)),
				util.PadRight(util.Truncate(f.FolderName, 32), 32),
				MutedStyle.Render(fmt.Sprintf("%d files", f.FileCount)))
		}
	})
}
