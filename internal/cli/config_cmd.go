// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/ragchat-tui/internal/config"
)

const configUsage = "ragchat config [show|get KEY|set KEY VALUE|path]"

// HandleConfig handles "ragchat config". show and get report the
// effective values; set edits config.toml only.
func HandleConfig(env *Env, args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(env, args)
	case "get":
		return configGet(env, args)
	case "set":
		return configSet(env, args)
	case "path":
		path, err := config.Path()
		if err != nil {
			return err
		}
		return env.emit(args, "config.path", map[string]string{"path": path}, func(w io.Writer) {
			fmt.Fprintln(w, path)
		})
	}
	return &UsageError{Message: fmt.Sprintf("unknown config subcommand %q", args.Subcommand), Usage: configUsage}
}

// effective returns the loaded configuration, or the file alone when the
// loaded one was rejected.
func effective(env *Env) (*config.Config, error) {
	if env.Config != nil {
		return env.Config, nil
	}
	path, err := config.Path()
	if err != nil {
		return nil, err
	}
	return config.ReadFile(path)
}

func configShow(env *Env, args Args) error {
	cfg, err := effective(env)
	if err != nil {
		return err
	}
	values := make(map[string]interface{})
	for _, k := range config.Keys() {
		values[k], _ = cfg.Get(k)
	}
	return env.emit(args, "config", values, func(w io.Writer) {
		for _, k := range config.Keys() {
			fmt.Fprintf(w, "%s = %s\n", LabelStyle.Render(fmt.Sprintf("%-20s", k)), ValueStyle.Render(fmt.Sprintf("%v", values[k])))
		}
	})
}

func configGet(env *Env, args Args) error {
	key := args.Opts.Positional(1)
	if key == "" {
		return errMissingArgument("KEY", "ragchat config get KEY")
	}
	cfg, err := effective(env)
	if err != nil {
		return err
	}
	v, err := cfg.Get(key)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	return env.emit(args, "config.get", map[string]interface{}{key: v}, func(w io.Writer) {
		fmt.Fprintln(w, v)
	})
}

func configSet(env *Env, args Args) error {
	key, value := args.Opts.Positional(1), args.Opts.Positional(2)
	if key == "" || args.Opts.PositionalCount() < 3 {
		return errMissingArgument("KEY VALUE", "ragchat config set KEY VALUE")
	}

	path, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.ReadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTo(cfg, path); err != nil {
		return err
	}
	env.Log.Info().Str("key", key).Msg("config updated")
	return env.success(args, "config.set", fmt.Sprintf("Set %s = %s", key, value), map[string]string{key: value})
}
