// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package folders

import (
	"sync"

	"github.com/jeranaias/ragchat-tui/internal/api"
)

// Selection is the set of folder ids chosen to scope retrieval, in the
// order they were picked. It belongs to the chat view, not the folder
// panel, so it survives the panel being closed and reopened.
//
// Stored ids are never shown raw: Selected intersects them with a folder
// list, so a folder deleted elsewhere silently drops out.
type Selection struct {
	mu  sync.Mutex
	ids []string
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Toggle adds or removes id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return false
		}
	}
	s.ids = append(s.ids, id)
	return true
}

// Remove deselects id.
func (s *Selection) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return
		}
	}
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.mu.Lock()
	s.ids = nil
	s.mu.Unlock()
}

// Contains reports whether id is stored as selected.
func (s *Selection) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Selected returns the stored ids that exist in folders, in selection order.
func (s *Selection) Selected(folders []api.Folder) []string {
	present := make(map[string]bool, len(folders))
	for _, f := range folders {
		present[f.FolderID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		if present[id] {
			out = append(out, id)
		}
	}
	return out
}
