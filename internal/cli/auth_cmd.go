// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/session"
	"github.com/jeranaias/ragchat-tui/internal/ui/login"
)

// readPassword reads a line from a terminal without echo.
var readPassword = term.ReadPassword

// authError carries a rejected login or registration. Its text is what
// the sign-in form would show.
type authError struct {
	err error
}

func (e *authError) Error() string { return login.ErrorText(e.err) }
func (e *authError) Unwrap() error { return e.err }

// =============================================================================
// LOGIN / REGISTER
// =============================================================================

// HandleLogin handles "ragchat login [--email E]".
func HandleLogin(ctx context.Context, env *Env, args Args) error {
	email, password, err := credentials(env, args)
	if err != nil {
		return err
	}
	sess, err := env.Client.Login(ctx, email, password)
	if err != nil {
		env.Log.Info().Msg("login rejected")
		return &authError{err}
	}
	return finishAuth(env, args, "login", sess)
}

// HandleRegister handles "ragchat register [--email E] [--role R]".
func HandleRegister(ctx context.Context, env *Env, args Args) error {
	role := strings.ToLower(args.Opts.FlagOrDefault("role", api.RoleStudent))
	if !validRole(role) {
		return &UsageError{
			Message: fmt.Sprintf("invalid role %q", role),
			Usage:   "ragchat register --role " + strings.Join(api.Roles, "|"),
		}
	}
	email, password, err := credentials(env, args)
	if err != nil {
		return err
	}
	sess, err := env.Client.Register(ctx, email, password, role)
	if err != nil {
		env.Log.Info().Msg("registration rejected")
		return &authError{err}
	}
	return finishAuth(env, args, "register", sess)
}

func validRole(role string) bool {
	for _, r := range api.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// credentials collects the email (flag or prompt) and password. Both are
// required.
func credentials(env *Env, args Args) (string, string, error) {
	email := strings.TrimSpace(args.Opts.Flag("email"))
	if email == "" {
		line, err := env.readLine("Email: ")
		if err != nil {
			return "", "", err
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return "", "", &UsageError{Message: "email is required"}
	}

	password, err := env.password("Password: ")
	if err != nil {
		return "", "", err
	}
	if password == "" {
		return "", "", &UsageError{Message: "password is required"}
	}
	return email, password, nil
}

// password reads without echo from a terminal, or a plain line otherwise.
func (e *Env) password(prompt string) (string, error) {
	if f, ok := e.Stdin.(fileDescriptor); ok && isTerminal(e.Stdin) {
		fmt.Fprint(e.Stderr, prompt)
		b, err := readPassword(int(f.Fd()))
		fmt.Fprintln(e.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return e.readLine(prompt)
}

func finishAuth(env *Env, args Args, command string, sess api.Session) error {
	if err := env.Sessions.Save(sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	env.Log.Info().Str("role", sess.Role).Msg("logged in")
	return env.emit(args, command, sess, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s (%s)\n", SuccessStyle.Render("Logged in as"), sess.Email, sess.Role)
	})
}

// =============================================================================
// LOGOUT / WHOAMI
// =============================================================================

// HandleLogout handles "ragchat logout".
func HandleLogout(env *Env, args Args) error {
	_, wasIn := env.Sessions.Current()
	if err := env.Sessions.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	text := "Logged out"
	if !wasIn {
		text = "Not logged in"
	}
	return env.success(args, "logout", text, map[string]bool{"logged_out": wasIn})
}

// HandleWhoami handles "ragchat whoami".
func HandleWhoami(env *Env, args Args) error {
	sess, ok := env.Sessions.Current()
	if !ok {
		return session.ErrNotLoggedIn
	}
	return env.emit(args, "whoami", sess, func(w io.Writer) {
		printField(w, "Email", sess.Email)
		printField(w, "Role", sess.Role)
		printField(w, "User ID", sess.UserID)
		printField(w, "Backend", env.baseURL())
	})
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", LabelStyle.Render(fmt.Sprintf("%-10s", label+":")), ValueStyle.Render(value))
}
