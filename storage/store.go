// Package storage archives serialized world snapshots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrNotFound is returned when a snapshot name is not in the store.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot describes one stored world save.
type Snapshot struct {
	Name    string
	Size    int
	Created time.Time
}

// Store persists opaque world snapshots under a name. Putting an existing
// name replaces it.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// Latest returns the most recently written snapshot.
	Latest(ctx context.Context) (string, []byte, error)
	// List returns snapshots oldest first.
	List(ctx context.Context) ([]Snapshot, error)
	Close() error
}

// Open creates a store of the given kind. path is a directory for "file" and
// a database file for "sqlite"; it is ignored for "memory".
func Open(ctx context.Context, kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// sortSnapshots orders oldest first, breaking ties by name.
func sortSnapshots(s []Snapshot) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].Created.Equal(s[j].Created) {
			return s[i].Created.Before(s[j].Created)
		}
		return s[i].Name < s[j].Name
	})
}
