// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/events"
	"github.com/jeranaias/ragchat-tui/internal/route"
)

// =============================================================================
// THREAD SWITCHING
// =============================================================================

// Switch is a thread load started by BeginSwitch.
type Switch struct {
	Epoch    uint64
	ThreadID string

	ctx context.Context

	// What CompleteSwitch restores when the load fails.
	prevID       string
	prevMessages []api.Message
	prevRoute    route.Route
}

// Noop reports whether the switch targets the thread already shown.
func (s Switch) Noop() bool { return s.ctx == nil }

// BeginSwitch starts a new view lifetime for thread id. The previous
// lifetime is cancelled, and the active thread is set with messages cleared
// until the fetch completes. Switching to the active thread is a no-op.
func (o *Orchestrator) BeginSwitch(id string) Switch {
	o.mu.Lock()
	defer o.mu.Unlock()

	if id == o.activeID {
		return Switch{Epoch: o.life.epoch, ThreadID: id}
	}

	s := Switch{
		ThreadID:     id,
		prevID:       o.activeID,
		prevMessages: o.messages,
		prevRoute:    o.current,
	}

	o.life = o.life.next(o.parent)
	o.activeID = id
	o.messages = nil
	o.loading = false
	o.current = route.ChatRoute(id)

	s.Epoch = o.life.epoch
	s.ctx = o.life.ctx
	return s
}

// FetchThread loads the messages for s. It touches no state.
func (o *Orchestrator) FetchThread(s Switch) (api.ThreadDetail, error) {
	return o.backend.Thread(s.ctx, s.ThreadID)
}

// CompleteSwitch replaces the messages wholesale with detail. On error the
// previous thread, messages and route come back under the new epoch. It
// returns false, changing nothing, when the view moved on in the meantime.
func (o *Orchestrator) CompleteSwitch(s Switch, detail api.ThreadDetail, err error) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s.Epoch != o.life.epoch || s.ThreadID != o.activeID {
		return false, nil
	}
	if err != nil {
		o.log.Warn().Err(err).Str("chat_id", s.ThreadID).Msg("thread load failed")
		o.activeID = s.prevID
		o.messages = s.prevMessages
		o.current = s.prevRoute
		return true, fmt.Errorf("load thread %s: %w", s.ThreadID, err)
	}
	o.messages = append([]api.Message(nil), detail.Messages...)
	return true, nil
}

// SwitchThread is the synchronous form of BeginSwitch + FetchThread +
// CompleteSwitch.
func (o *Orchestrator) SwitchThread(ctx context.Context, id string) error {
	s := o.BeginSwitch(id)
	if s.Noop() {
		return nil
	}

	reqCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	detail, err := o.backend.Thread(reqCtx, id)
	_, err = o.CompleteSwitch(s, detail, err)
	return err
}

// NewChat clears the active thread and messages, starts a new lifetime,
// and asks for a thread list refresh. Pending attachments are kept.
func (o *Orchestrator) NewChat() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetViewLocked()
	o.publish(events.TopicThreadsUpdated)
}

func (o *Orchestrator) resetViewLocked() {
	o.life = o.life.next(o.parent)
	o.activeID = ""
	o.messages = nil
	o.loading = false
	o.current = route.NewChat
}

// Reset discards all chat state. It is used on logout.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetViewLocked()
	o.attachments = nil
	o.threads = nil
}

// =============================================================================
// THREAD LIST
// =============================================================================

// RefreshThreads fetches the thread list and stores it.
func (o *Orchestrator) RefreshThreads(ctx context.Context) ([]api.Thread, error) {
	threads, err := o.backend.Threads(ctx)
	if err != nil {
		return nil, fmt.Errorf("load threads: %w", err)
	}
	o.mu.Lock()
	o.threads = append([]api.Thread(nil), threads...)
	o.mu.Unlock()
	return threads, nil
}

// DeleteThread deletes a stored thread. Deleting the active thread acts as
// NewChat.
func (o *Orchestrator) DeleteThread(ctx context.Context, id string) error {
	if err := o.backend.DeleteThread(ctx, id); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	kept := o.threads[:0:0]
	for _, t := range o.threads {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	o.threads = kept

	if o.activeID == id {
		o.resetViewLocked()
	}
	o.publish(events.TopicThreadsUpdated)
	return nil
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

// Attachments returns the pending attachments.
func (o *Orchestrator) Attachments() []api.Attachment {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]api.Attachment(nil), o.attachments...)
}

// SetAttachments replaces the pending attachments.
func (o *Orchestrator) SetAttachments(atts []api.Attachment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attachments = append([]api.Attachment(nil), atts...)
}

// AddAttachment appends one attachment.
func (o *Orchestrator) AddAttachment(a api.Attachment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attachments = append(o.attachments, a)
}

// RemoveAttachment drops the attachment at index i. Out-of-range is ignored.
func (o *Orchestrator) RemoveAttachment(i int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i < 0 || i >= len(o.attachments) {
		return
	}
	o.attachments = append(o.attachments[:i:i], o.attachments[i+1:]...)
}
