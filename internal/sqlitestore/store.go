// Package sqlitestore persists dependency finder results in a SQLite
// database so they survive between runs. It implements cachestore.Store.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/vk/envbuild/internal/cachestore"
	"github.com/vk/envbuild/internal/dag"

	_ "modernc.org/sqlite"
)

// DefaultFile is the cache database path relative to the user cache dir.
const DefaultFile = "envbuild/ldf.db"

const schema = `
CREATE TABLE IF NOT EXISTS ldf_cache (
	project_root TEXT NOT NULL,
	mode TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	graph TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (project_root, mode)
);
`

// Store is a SQLite-backed cachestore.Store.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the cache database location under the XDG cache
// directory, creating parent directories as needed.
func DefaultPath() (string, error) {
	return xdg.CacheFile(DefaultFile)
}

// Open opens or creates the database at path. An empty path uses
// DefaultPath.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, fmt.Errorf("failed to locate cache dir: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Environments may resolve concurrently; one connection serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Get retrieves the entry for key.
func (s *Store) Get(ctx context.Context, key cachestore.Key) (*cachestore.Entry, error) {
	var (
		fp, blob string
		created  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, graph, created_at FROM ldf_cache WHERE project_root = ? AND mode = ?`,
		key.ProjectRoot, key.Mode,
	).Scan(&fp, &blob, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cachestore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var snap dag.Snapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return nil, fmt.Errorf("cache entry for %s (%s) is corrupt: %w", key.ProjectRoot, key.Mode, err)
	}
	return &cachestore.Entry{
		Fingerprint: fp,
		Graph:       &snap,
		CreatedAt:   time.Unix(0, created).UTC(),
	}, nil
}

// Put replaces the entry for key.
func (s *Store) Put(ctx context.Context, key cachestore.Key, entry *cachestore.Entry) error {
	if entry == nil || entry.Graph == nil {
		return fmt.Errorf("cannot store an entry without a graph")
	}
	blob, err := json.Marshal(entry.Graph)
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ldf_cache (project_root, mode, fingerprint, graph, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(project_root, mode) DO UPDATE SET
		   fingerprint = excluded.fingerprint,
		   graph = excluded.graph,
		   created_at = excluded.created_at`,
		key.ProjectRoot, key.Mode, entry.Fingerprint, string(blob), entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (s *Store) Delete(ctx context.Context, key cachestore.Key) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ldf_cache WHERE project_root = ? AND mode = ?`, key.ProjectRoot, key.Mode)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ cachestore.Store = (*Store)(nil)
