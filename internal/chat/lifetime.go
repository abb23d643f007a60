// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "context"

// lifetime is one view's epoch and context. Callers hold Orchestrator.mu.
type lifetime struct {
	epoch  uint64
	ctx    context.Context
	cancel context.CancelFunc
}

func newLifetime(parent context.Context) lifetime {
	ctx, cancel := context.WithCancel(parent)
	return lifetime{epoch: 1, ctx: ctx, cancel: cancel}
}

// next cancels the current lifetime and starts the following one.
func (l lifetime) next(parent context.Context) lifetime {
	l.cancel()
	ctx, cancel := context.WithCancel(parent)
	return lifetime{epoch: l.epoch + 1, ctx: ctx, cancel: cancel}
}
