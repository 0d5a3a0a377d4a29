// Package cachestore defines the storage contract for dependency finder
// results. A result is keyed by project root and finder mode and is only
// valid for the fingerprint it was computed under.
package cachestore

import (
	"context"
	"errors"
	"time"

	"github.com/vk/envbuild/internal/dag"
)

// ErrNotFound is returned by Get when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Key identifies a cached resolution.
type Key struct {
	ProjectRoot string
	Mode        string
}

// Entry is one cached resolution.
type Entry struct {
	Fingerprint string
	Graph       *dag.Snapshot
	CreatedAt   time.Time
}

// Store persists dependency finder results.
type Store interface {
	// Get returns the entry for key, or ErrNotFound.
	Get(ctx context.Context, key Key) (*Entry, error)
	// Put replaces the entry for key.
	Put(ctx context.Context, key Key, entry *Entry) error
	// Delete removes the entry for key. Deleting a missing entry is not an
	// error.
	Delete(ctx context.Context, key Key) error
	Close() error
}
