// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package folders manages smart folders: named groups of files, each backed
// by its own vector index on the server, selectable as retrieval scope.
package folders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/events"
	"github.com/jeranaias/ragchat-tui/internal/files"
)

// DeleteConfirmation is asked before Delete.
const DeleteConfirmation = "Are you sure you want to delete this folder? This will also delete all files in it."

// ErrEmptyName is returned by Create for a blank name. Nothing is sent.
var ErrEmptyName = errors.New("folder name is empty")

// Client is the subset of the API client the manager uses.
type Client interface {
	Folders(ctx context.Context, userID string) ([]api.Folder, error)
	CreateFolder(ctx context.Context, userID, name string) (api.Folder, error)
	DeleteFolder(ctx context.Context, userID, folderID string) error
	FolderFiles(ctx context.Context, userID, folderID string) ([]api.File, error)
	Upload(ctx context.Context, userID, folderID string, files []api.Attachment) (api.UploadResult, error)
}

// Identity supplies the current user id.
type Identity interface {
	UserID() (string, error)
}

// Manager holds the folder list and per-folder file cache.
type Manager struct {
	client    Client
	identity  Identity
	selection *Selection
	bus       *events.Bus
	log       zerolog.Logger

	mu       sync.Mutex
	folders  []api.Folder
	loaded   bool
	expanded string
	contents map[string][]api.File
}

// NewManager creates a manager. selection is owned by the caller; pass
// nil for a manager that never scopes queries.
func NewManager(client Client, identity Identity, selection *Selection, bus *events.Bus) *Manager {
	if selection == nil {
		selection = NewSelection()
	}
	return &Manager{
		client:    client,
		identity:  identity,
		selection: selection,
		bus:       bus,
		log:       zerolog.Nop(),
		contents:  make(map[string][]api.File),
	}
}

// WithLogger sets the logger.
func (m *Manager) WithLogger(l zerolog.Logger) *Manager {
	m.log = l.With().Str("component", "folders").Logger()
	return m
}

// Selection returns the selection the manager updates.
func (m *Manager) Selection() *Selection {
	return m.selection
}

// Folders returns the last loaded list.
func (m *Manager) Folders() []api.Folder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]api.Folder(nil), m.folders...)
}

// Loaded reports whether Load has succeeded at least once.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// SelectedIDs is the derived selection: stored ids present in the list.
func (m *Manager) SelectedIDs() []string {
	return m.selection.Selected(m.Folders())
}

// Toggle flips id in the selection and reports whether it is now selected.
func (m *Manager) Toggle(id string) bool {
	return m.selection.Toggle(id)
}

// Load fetches the folder list. On failure the previous list is kept.
func (m *Manager) Load(ctx context.Context) ([]api.Folder, error) {
	userID, err := m.identity.UserID()
	if err != nil {
		return nil, err
	}
	list, err := m.client.Folders(ctx, userID)
	if err != nil {
		m.log.Warn().Err(err).Msg("folder list failed")
		return nil, fmt.Errorf("load folders: %w", err)
	}

	m.mu.Lock()
	m.folders = append([]api.Folder(nil), list...)
	m.loaded = true
	m.mu.Unlock()
	return list, nil
}

// NormalizeName trims and NFC-normalizes a folder name.
func NormalizeName(name string) string {
	return strings.TrimSpace(norm.NFC.String(name))
}

// Create adds a folder. A blank name returns ErrEmptyName without a
// request. The returned record is appended locally; the list is not
// refetched.
func (m *Manager) Create(ctx context.Context, name string) (api.Folder, error) {
	name = NormalizeName(name)
	if name == "" {
		return api.Folder{}, ErrEmptyName
	}
	userID, err := m.identity.UserID()
	if err != nil {
		return api.Folder{}, err
	}

	f, err := m.client.CreateFolder(ctx, userID, name)
	if err != nil {
		return api.Folder{}, err
	}

	m.mu.Lock()
	m.folders = append(m.folders, f)
	m.mu.Unlock()

	m.log.Info().Str("folder_id", f.FolderID).Msg("folder created")
	m.publish()
	return f, nil
}

// Delete removes a folder. The caller confirms with DeleteConfirmation
// first. On success the folder leaves the list, the selection and the
// file cache.
func (m *Manager) Delete(ctx context.Context, id string) error {
	userID, err := m.identity.UserID()
	if err != nil {
		return err
	}
	if err := m.client.DeleteFolder(ctx, userID, id); err != nil {
		return err
	}

	m.mu.Lock()
	kept := m.folders[:0:0]
	for _, f := range m.folders {
		if f.FolderID != id {
			kept = append(kept, f)
		}
	}
	m.folders = kept
	delete(m.contents, id)
	if m.expanded == id {
		m.expanded = ""
	}
	m.mu.Unlock()

	m.selection.Remove(id)
	m.log.Info().Str("folder_id", id).Msg("folder deleted")
	m.publish()
	return nil
}

// UploadInto uploads 1..files.MaxUploadFiles files into folder id, then
// refetches the whole folder list so file counts are current. A failed
// refetch is logged and keeps the old list; the upload still succeeded.
func (m *Manager) UploadInto(ctx context.Context, id string, atts []api.Attachment) (api.UploadResult, error) {
	if len(atts) == 0 {
		return api.UploadResult{}, files.ErrNoFiles
	}
	if len(atts) > files.MaxUploadFiles {
		return api.UploadResult{}, files.ErrTooManyFiles
	}
	userID, err := m.identity.UserID()
	if err != nil {
		return api.UploadResult{}, err
	}

	res, err := m.client.Upload(ctx, userID, id, atts)
	if err != nil {
		return api.UploadResult{}, err
	}

	// The cached listing for this folder no longer matches the server.
	m.mu.Lock()
	delete(m.contents, id)
	m.mu.Unlock()

	if _, err := m.Load(ctx); err != nil {
		m.log.Warn().Err(err).Str("folder_id", id).Msg("folder list stale after upload")
	}
	m.publish()
	return res, nil
}

// Expanded returns the expanded folder id, or "".
func (m *Manager) Expanded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expanded
}

// Expand toggles id as the one expanded folder. Expanding fetches the
// folder's files the first time and serves them from cache afterwards.
// It returns whether id is now expanded and, if so, its files.
func (m *Manager) Expand(ctx context.Context, id string) (bool, []api.File, error) {
	m.mu.Lock()
	if m.expanded == id {
		m.expanded = ""
		m.mu.Unlock()
		return false, nil, nil
	}
	m.expanded = id
	cached, ok := m.contents[id]
	m.mu.Unlock()

	if ok {
		return true, append([]api.File(nil), cached...), nil
	}

	userID, err := m.identity.UserID()
	if err != nil {
		return true, nil, err
	}
	list, err := m.client.FolderFiles(ctx, userID, id)
	if err != nil {
		return true, nil, fmt.Errorf("load folder files: %w", err)
	}

	m.mu.Lock()
	m.contents[id] = append([]api.File(nil), list...)
	m.mu.Unlock()
	return true, list, nil
}

// Contents returns cached files for id without a request. A cached empty
// folder returns a non-nil empty slice.
func (m *Manager) Contents(id string) ([]api.File, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list, ok := m.contents[id]
	if !ok {
		return nil, false
	}
	return append([]api.File{}, list...), true
}

func (m *Manager) publish() {
	if m.bus != nil {
		m.bus.Signal(events.TopicFoldersUpdated)
	}
}
