// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// ErrInvalidKey is returned for keys outside [A-Za-z0-9_.-].
var ErrInvalidKey = errors.New("storage: invalid key")

// KV is a small persistent key-value store.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	Close() error
}

// Change is one externally observed modification of a key.
type Change struct {
	Key     string
	Deleted bool
}

// Watcher is implemented by backends that can report external changes.
type Watcher interface {
	// Watch reports changes to key until ctx is done. The channel is
	// closed when watching stops.
	Watch(ctx context.Context, key string) (<-chan Change, error)
}

// Open returns the backend named by backend ("file" or "sqlite") rooted at dir.
func Open(backend, dir string) (KV, error) {
	switch backend {
	case "", "file":
		return NewFileKV(dir)
	case "sqlite":
		return NewSQLiteKV(dir)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func validateKey(key string) error {
	// SECURITY: keys become file names; no separators or traversal
	if !keyPattern.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
