// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package files manages the user's general (folder-less) document store.
//
// The list is read-through cached and invalidated by TopicFilesUpdated on
// the event bus, so an upload from any component refreshes every manager.
package files

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/events"
)

// MaxUploadFiles is how many files one upload may carry.
const MaxUploadFiles = 5

// SizeGuidance is shown next to upload prompts. Sizes are not checked
// client-side.
const SizeGuidance = "Max 5 files, 10MB each"

var (
	// ErrNoFiles is returned by Upload with an empty selection.
	ErrNoFiles = errors.New("no files selected")
	// ErrTooManyFiles is returned by Upload with more than MaxUploadFiles.
	ErrTooManyFiles = fmt.Errorf("at most %d files per upload", MaxUploadFiles)
	// ErrDownloadNotImplemented is returned by Download.
	ErrDownloadNotImplemented = errors.New("download is not implemented")
)

// Client is the subset of the API client the manager uses.
type Client interface {
	Files(ctx context.Context, userID string) ([]api.File, error)
	Upload(ctx context.Context, userID, folderID string, files []api.Attachment) (api.UploadResult, error)
	DeleteFile(ctx context.Context, userID, fileID string) error
}

// Identity supplies the current user id.
type Identity interface {
	UserID() (string, error)
}

// Manager is one file-list view's data source.
type Manager struct {
	client   Client
	identity Identity
	bus      *events.Bus
	log      zerolog.Logger

	updates     <-chan events.Event
	unsubscribe func()

	mu     sync.Mutex
	cached []api.File
	valid  bool
}

// NewManager subscribes to TopicFilesUpdated. Call Close when done.
func NewManager(client Client, identity Identity, bus *events.Bus) *Manager {
	m := &Manager{
		client:      client,
		identity:    identity,
		bus:         bus,
		log:         zerolog.Nop(),
		unsubscribe: func() {},
	}
	if bus != nil {
		m.updates, m.unsubscribe = bus.Subscribe(events.TopicFilesUpdated)
	}
	return m
}

// WithLogger sets the logger.
func (m *Manager) WithLogger(l zerolog.Logger) *Manager {
	m.log = l.With().Str("component", "files").Logger()
	return m
}

// Close unsubscribes from the bus.
func (m *Manager) Close() {
	m.unsubscribe()
}

// Invalidate drops the cached list.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.valid = false
	m.mu.Unlock()
}

// drainUpdates invalidates the cache if any update was published since
// the last call. Callers hold m.mu.
func (m *Manager) drainUpdates() {
	if m.updates == nil {
		return
	}
	for {
		select {
		case _, ok := <-m.updates:
			if !ok {
				m.updates = nil
				return
			}
			m.valid = false
		default:
			return
		}
	}
}

// Cached returns the last fetched list without a request.
func (m *Manager) Cached() ([]api.File, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drainUpdates()
	return append([]api.File(nil), m.cached...), m.valid
}

// List returns the cached list, fetching it when invalid.
func (m *Manager) List(ctx context.Context) ([]api.File, error) {
	m.mu.Lock()
	m.drainUpdates()
	if m.valid {
		files := append([]api.File(nil), m.cached...)
		m.mu.Unlock()
		return files, nil
	}
	m.mu.Unlock()
	return m.Refresh(ctx)
}

// Refresh always fetches. On failure the previous list is kept.
func (m *Manager) Refresh(ctx context.Context) ([]api.File, error) {
	userID, err := m.identity.UserID()
	if err != nil {
		return nil, err
	}
	files, err := m.client.Files(ctx, userID)
	if err != nil {
		m.log.Warn().Err(err).Msg("file list failed")
		return nil, fmt.Errorf("load files: %w", err)
	}

	m.mu.Lock()
	m.cached = append([]api.File(nil), files...)
	m.valid = true
	m.mu.Unlock()
	return files, nil
}

// Upload sends 1..MaxUploadFiles files to the general store and publishes
// TopicFilesUpdated.
func (m *Manager) Upload(ctx context.Context, atts []api.Attachment) (api.UploadResult, error) {
	if len(atts) == 0 {
		return api.UploadResult{}, ErrNoFiles
	}
	if len(atts) > MaxUploadFiles {
		return api.UploadResult{}, ErrTooManyFiles
	}
	userID, err := m.identity.UserID()
	if err != nil {
		return api.UploadResult{}, err
	}

	res, err := m.client.Upload(ctx, userID, "", atts)
	if err != nil {
		m.log.Warn().Err(err).Int("files", len(atts)).Msg("upload failed")
		return api.UploadResult{}, err
	}

	m.log.Info().Int("files", len(atts)).Msg("files uploaded")
	if m.bus != nil {
		m.bus.Signal(events.TopicFilesUpdated)
	} else {
		m.Invalidate()
	}
	return res, nil
}

// Delete removes fileID and returns the refetched list.
func (m *Manager) Delete(ctx context.Context, fileID string) ([]api.File, error) {
	userID, err := m.identity.UserID()
	if err != nil {
		return nil, err
	}
	if err := m.client.DeleteFile(ctx, userID, fileID); err != nil {
		return nil, err
	}
	return m.Refresh(ctx)
}

// Download is not supported by the backend contract.
func (m *Manager) Download(ctx context.Context, fileID string) error {
	return ErrDownloadNotImplemented
}
