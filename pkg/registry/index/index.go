// Package index persists registry version lists between invocations.
//
// The in-process cache in pkg/registry only lives for a single run; this
// store keeps fetched version lists in a local sqlite database under the
// stanza home directory so repeated invocations skip the network while the
// entry is fresh. Only registry metadata is cached here, never resolved
// plugin sets: resolution must observe current configuration every run.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// DefaultFileName is the database file inside the stanza home directory.
const DefaultFileName = "index.db"

// Store is a TTL cache of package version lists backed by sqlite.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	log *logrus.Logger
	now func() time.Time
}

// Open opens (or creates) the database at path.
func Open(path string, ttl time.Duration, log *logrus.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	return New(db, ttl, log)
}

// New wraps an existing database handle.
func New(db *sql.DB, ttl time.Duration, log *logrus.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if log == nil {
		log = logrus.New()
	}

	store := &Store{
		db:  db,
		ttl: ttl,
		log: log,
		now: time.Now,
	}

	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure package_versions table: %w", err)
	}

	return store, nil
}

// ensureTable creates the package_versions table if it doesn't exist
func (s *Store) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS package_versions (
		package TEXT PRIMARY KEY,
		versions TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_package_versions_fetched_at ON package_versions(fetched_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// Get returns the cached version list for a package. The second result is
// false when the package is absent or the entry has outlived the TTL.
func (s *Store) Get(ctx context.Context, packageName string) ([]string, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT versions, fetched_at FROM package_versions WHERE package = ?`, packageName)

	var raw string
	var fetchedAt int64
	if err := row.Scan(&raw, &fetchedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read index entry: %w", err)
	}

	if s.now().Sub(time.Unix(fetchedAt, 0)) > s.ttl {
		s.log.Debugf("Index entry for %s is stale", packageName)
		return nil, false, nil
	}

	var versions []string
	if err := json.Unmarshal([]byte(raw), &versions); err != nil {
		return nil, false, fmt.Errorf("corrupt index entry for %s: %w", packageName, err)
	}

	return versions, true, nil
}

// Put stores (or replaces) the version list for a package.
func (s *Store) Put(ctx context.Context, packageName string, versions []string) error {
	raw, err := json.Marshal(versions)
	if err != nil {
		return fmt.Errorf("failed to encode versions: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO package_versions (package, versions, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(package) DO UPDATE SET versions = excluded.versions, fetched_at = excluded.fetched_at`,
		packageName, string(raw), s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write index entry: %w", err)
	}

	return nil
}

// Prune deletes entries older than the TTL and reports how many went.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).Unix()
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM package_versions WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune index: %w", err)
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		s.log.Debugf("Pruned %d stale index entrie(s)", pruned)
	}
	return pruned, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
