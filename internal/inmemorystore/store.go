// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the cachestore.Store interface.
//
// # Concurrency Model
//
// Entries are kept in a sync.Map keyed by cachestore.Key. Environments built
// concurrently use different modes or project roots most of the time, so
// keys are independent and there is no global lock.
//
// Stored entries are copied on the way in and out so callers cannot mutate
// what another environment later restores.
package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/envbuild/internal/cachestore"
	"github.com/vk/envbuild/internal/dag"
)

// Store is an in-memory implementation of cachestore.Store.
type Store struct {
	entries sync.Map // Key: cachestore.Key, Value: *cachestore.Entry
}

// New creates a new, empty in-memory store.
func New() cachestore.Store {
	return &Store{}
}

// Get retrieves the entry for key.
func (s *Store) Get(ctx context.Context, key cachestore.Key) (*cachestore.Entry, error) {
	v, ok := s.entries.Load(key)
	if !ok {
		return nil, cachestore.ErrNotFound
	}
	return clone(v.(*cachestore.Entry)), nil
}

// Put replaces the entry for key.
func (s *Store) Put(ctx context.Context, key cachestore.Key, entry *cachestore.Entry) error {
	s.entries.Store(key, clone(entry))
	return nil
}

// Delete removes the entry for key.
func (s *Store) Delete(ctx context.Context, key cachestore.Key) error {
	s.entries.Delete(key)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func clone(e *cachestore.Entry) *cachestore.Entry {
	cp := *e
	if e.Graph != nil {
		g := *e.Graph
		g.Libraries = append([]dag.SnapshotNode(nil), e.Graph.Libraries...)
		g.Edges = append([]dag.Edge(nil), e.Graph.Edges...)
		g.Dropped = append([]dag.Edge(nil), e.Graph.Dropped...)
		g.Unresolved = append([]dag.Unresolved(nil), e.Graph.Unresolved...)
		cp.Graph = &g
	}
	return &cp
}
