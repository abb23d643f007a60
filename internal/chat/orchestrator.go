// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/events"
	"github.com/jeranaias/ragchat-tui/internal/route"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyQuery is returned by Begin for blank input.
	ErrEmptyQuery = errors.New("message is empty")
	// ErrBusy is returned by Begin while a send is in flight.
	ErrBusy = errors.New("a message is already being sent")
	// ErrStale is returned by Send when the view changed before the answer.
	ErrStale = errors.New("response discarded: view changed")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the subset of the API client the orchestrator uses.
type Backend interface {
	Query(ctx context.Context, q api.QueryRequest) (api.QueryResponse, error)
	Threads(ctx context.Context) ([]api.Thread, error)
	Thread(ctx context.Context, chatID string) (api.ThreadDetail, error)
	DeleteThread(ctx context.Context, chatID string) error
}

// Identity supplies the current user id.
type Identity interface {
	UserID() (string, error)
}

// FolderScope supplies the folder ids that scope retrieval. Implementations
// return only ids present in the current folder list.
type FolderScope interface {
	SelectedIDs() []string
}

type noScope struct{}

func (noScope) SelectedIDs() []string { return nil }

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator owns the chat state. It is safe for concurrent use.
type Orchestrator struct {
	backend  Backend
	identity Identity
	scope    FolderScope
	bus      *events.Bus
	baseURL  string
	log      zerolog.Logger
	parent   context.Context

	mu          sync.Mutex
	life        lifetime
	activeID    string
	messages    []api.Message
	loading     bool
	attachments []api.Attachment
	threads     []api.Thread
	current     route.Route
}

// New creates an orchestrator. baseURL appears in error messages shown to
// the user.
func New(backend Backend, identity Identity, bus *events.Bus, baseURL string) *Orchestrator {
	parent := context.Background()
	return &Orchestrator{
		backend:  backend,
		identity: identity,
		scope:    noScope{},
		bus:      bus,
		baseURL:  baseURL,
		log:      zerolog.Nop(),
		parent:   parent,
		life:     newLifetime(parent),
		current:  route.NewChat,
	}
}

// WithLogger sets the logger.
func (o *Orchestrator) WithLogger(l zerolog.Logger) *Orchestrator {
	o.log = l.With().Str("component", "chat").Logger()
	return o
}

// WithFolderScope sets where selected folder ids come from.
func (o *Orchestrator) WithFolderScope(s FolderScope) *Orchestrator {
	if s == nil {
		s = noScope{}
	}
	o.scope = s
	return o
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// ActiveThreadID returns the active thread id, empty for a new chat.
func (o *Orchestrator) ActiveThreadID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeID
}

// Messages returns a copy of the message sequence.
func (o *Orchestrator) Messages() []api.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]api.Message(nil), o.messages...)
}

// Loading reports whether a send is in flight.
func (o *Orchestrator) Loading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// Threads returns the last fetched thread list.
func (o *Orchestrator) Threads() []api.Thread {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]api.Thread(nil), o.threads...)
}

// Route is where the view should be: /chat or /chat/:id.
func (o *Orchestrator) Route() route.Route {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Epoch identifies the current view lifetime.
func (o *Orchestrator) Epoch() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.life.epoch
}

// =============================================================================
// SENDING
// =============================================================================

// Pending is a send started by Begin.
type Pending struct {
	Epoch   uint64
	Request api.QueryRequest
	// UserMessage is the optimistic message already appended.
	UserMessage api.Message

	ctx context.Context
}

// Result is what Execute produced for a Pending.
type Result struct {
	Epoch    uint64
	Response api.QueryResponse
	Err      error
}

// Outcome classifies a completed send.
type Outcome int

const (
	// OutcomeAnswered appended the backend's answer.
	OutcomeAnswered Outcome = iota
	// OutcomeFailed appended an error message.
	OutcomeFailed
	// OutcomeStale discarded a result from an earlier view lifetime.
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeFailed:
		return "failed"
	default:
		return "stale"
	}
}

// Completion describes what Complete did.
type Completion struct {
	Outcome Outcome
	// Message is the appended assistant message (empty when stale).
	Message api.Message
	// AdoptedThreadID is set when a new thread got its id from the answer.
	AdoptedThreadID string
	// Err is the send error for OutcomeFailed.
	Err error
}

// Begin validates text, appends the optimistic user message, and marks the
// orchestrator as loading. Blank text and a send in flight are no-ops.
func (o *Orchestrator) Begin(text string) (Pending, error) {
	if strings.TrimSpace(text) == "" {
		return Pending{}, ErrEmptyQuery
	}

	// Resolve collaborators before taking the lock.
	userID, err := o.identity.UserID()
	if err != nil {
		return Pending{}, err
	}
	folders := o.scope.SelectedIDs()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.loading {
		return Pending{}, ErrBusy
	}

	msg := api.Message{
		ID:        uuid.NewString(),
		Type:      api.TypeUser,
		Content:   text,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	o.messages = append(o.messages, msg)
	o.loading = true

	p := Pending{
		Epoch: o.life.epoch,
		Request: api.QueryRequest{
			Query:           text,
			ChatID:          o.activeID,
			UserID:          userID,
			SelectedFolders: folders,
			Attachments:     append([]api.Attachment(nil), o.attachments...),
		},
		UserMessage: msg,
		ctx:         o.life.ctx,
	}

	o.log.Debug().
		Uint64("epoch", p.Epoch).
		Str("chat_id", p.Request.ChatID).
		Int("attachments", len(p.Request.Attachments)).
		Int("folders", len(folders)).
		Msg("send started")
	return p, nil
}

// Execute performs the HTTP call for p. It touches no state and may run
// on any goroutine.
func (o *Orchestrator) Execute(p Pending) Result {
	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := o.backend.Query(ctx, p.Request)
	return Result{Epoch: p.Epoch, Response: resp, Err: err}
}

// Complete applies r. Results from an earlier lifetime are discarded.
func (o *Orchestrator) Complete(r Result) Completion {
	o.mu.Lock()
	defer o.mu.Unlock()

	if r.Epoch != o.life.epoch {
		o.log.Debug().Uint64("epoch", r.Epoch).Uint64("current", o.life.epoch).Msg("discarding stale response")
		return Completion{Outcome: OutcomeStale}
	}
	o.loading = false

	if r.Err != nil {
		msg := api.Message{
			ID:        uuid.NewString(),
			Type:      api.TypeAssistant,
			Content:   o.failureText(r.Err),
			Timestamp: time.Now().Format(time.RFC3339),
		}
		o.messages = append(o.messages, msg)
		o.log.Warn().Err(r.Err).Msg("send failed")
		return Completion{Outcome: OutcomeFailed, Message: msg, Err: r.Err}
	}

	msg := api.Message{
		ID:        uuid.NewString(),
		Type:      api.TypeAssistant,
		Content:   r.Response.Response,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	o.messages = append(o.messages, msg)
	o.attachments = nil

	c := Completion{Outcome: OutcomeAnswered, Message: msg}
	if o.activeID == "" && r.Response.ChatID != "" {
		o.activeID = r.Response.ChatID
		o.current = route.ChatRoute(o.activeID)
		c.AdoptedThreadID = o.activeID
		o.publish(events.TopicThreadsUpdated)
	}
	return c
}

// failureText is the assistant message shown for a failed send.
func (o *Orchestrator) failureText(err error) string {
	return fmt.Sprintf("Sorry, I encountered an error: %s. Please make sure the backend is running at %s.",
		err.Error(), o.baseURL)
}

// Send is Begin, Execute and Complete in one call. ctx bounds the request
// in addition to the view lifetime. A result discarded as stale returns
// ErrStale.
func (o *Orchestrator) Send(ctx context.Context, text string) (Completion, error) {
	p, err := o.Begin(text)
	if err != nil {
		return Completion{}, err
	}

	reqCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	p.ctx = reqCtx

	c := o.Complete(o.Execute(p))
	if c.Outcome == OutcomeStale {
		return c, ErrStale
	}
	return c, nil
}

func (o *Orchestrator) publish(topic events.Topic) {
	if o.bus != nil {
		o.bus.Signal(topic)
	}
}
