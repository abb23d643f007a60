// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "context"

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Login exchanges credentials for a session record.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	err := c.postJSON(ctx, "/api/auth/login", credentials{Email: email, Password: password}, &s)
	return s, err
}

// Register creates an account and returns its session record.
func (c *Client) Register(ctx context.Context, email, password, role string) (Session, error) {
	var s Session
	err := c.postJSON(ctx, "/api/auth/register", credentials{Email: email, Password: password, Role: role}, &s)
	return s, err
}
