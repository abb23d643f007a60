// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/storage"
)

// Key is the fixed storage key of the session record.
const Key = "user"

// ErrNotLoggedIn is returned by operations that need a session.
var ErrNotLoggedIn = errors.New("not logged in")

// Store reads and writes the record in a KV backend.
type Store struct {
	kv  storage.KV
	log zerolog.Logger
}

// NewStore wraps kv.
func NewStore(kv storage.KV, log zerolog.Logger) *Store {
	return &Store{kv: kv, log: log.With().Str("component", "session").Logger()}
}

// Load returns the stored record. Missing or malformed data both mean no
// session; malformed data is logged.
func (s *Store) Load() (api.Session, bool) {
	data, err := s.kv.Get(Key)
	if errors.Is(err, storage.ErrNotFound) {
		return api.Session{}, false
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("session read failed")
		return api.Session{}, false
	}

	var sess api.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.log.Warn().Err(err).Msg("ignoring malformed session record")
		return api.Session{}, false
	}
	if !sess.Valid() {
		s.log.Warn().Msg("ignoring session record without user_id")
		return api.Session{}, false
	}
	return sess, true
}

// Save persists sess.
func (s *Store) Save(sess api.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(Key, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the record.
func (s *Store) Clear() error {
	if err := s.kv.Delete(Key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// =============================================================================
// PROVIDER
// =============================================================================

// Provider is the injected session context. It caches the record so
// callers never touch storage directly.
type Provider struct {
	store *Store

	mu      sync.RWMutex
	current api.Session
	ok      bool
	loaded  bool
}

// NewProvider creates a provider. The record is read lazily on first use
// so boot can show a loading phase.
func NewProvider(store *Store) *Provider {
	return &Provider{store: store}
}

// Check reads the store (once) and reports whether a session exists.
func (p *Provider) Check() bool {
	_, ok := p.Current()
	return ok
}

// Current returns the cached record.
func (p *Provider) Current() (api.Session, bool) {
	p.mu.RLock()
	if p.loaded {
		defer p.mu.RUnlock()
		return p.current, p.ok
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		p.current, p.ok = p.store.Load()
		p.loaded = true
	}
	return p.current, p.ok
}

// UserID returns the current user id or ErrNotLoggedIn.
func (p *Provider) UserID() (string, error) {
	sess, ok := p.Current()
	if !ok {
		return "", ErrNotLoggedIn
	}
	return sess.UserID, nil
}

// Save persists sess and updates the cache.
func (p *Provider) Save(sess api.Session) error {
	if !sess.Valid() {
		return fmt.Errorf("save session: missing user_id")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Save(sess); err != nil {
		return err
	}
	p.current, p.ok, p.loaded = sess, true, true
	return nil
}

// Clear removes the record and empties the cache.
func (p *Provider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.store.Clear()
	// The cache is emptied even on failure so logout always takes effect
	// in this process.
	p.current, p.ok, p.loaded = api.Session{}, false, true
	return err
}

// Reload discards the cache and re-reads the store. It reports whether
// the session presence changed.
func (p *Provider) Reload() (changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.store.Load()
	changed = !p.loaded || ok != p.ok || sess != p.current
	p.current, p.ok, p.loaded = sess, ok, true
	return changed
}

// Watch calls onChange whenever another process modifies the record, if
// the backend supports watching. It returns false when it does not.
func (p *Provider) Watch(ctx context.Context, onChange func(api.Session, bool)) (bool, error) {
	w, ok := p.store.kv.(storage.Watcher)
	if !ok {
		return false, nil
	}
	changes, err := w.Watch(ctx, Key)
	if err != nil {
		return false, err
	}
	go func() {
		for range changes {
			if p.Reload() {
				sess, ok := p.Current()
				onChange(sess, ok)
			}
		}
	}()
	return true, nil
}
