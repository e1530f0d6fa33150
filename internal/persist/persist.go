// Package persist provides a small versioned key-value snapshot store on
// sqlite. Each key holds one JSON blob plus a schema version tag so stores
// can detect incompatible snapshots after an upgrade and start fresh.
package persist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no snapshot exists for a key.
	ErrNotFound = errors.New("snapshot not found")

	// ErrVersionMismatch is returned when a snapshot exists but was written
	// with a different schema version. Callers should treat this as "no
	// usable snapshot" and rebuild state.
	ErrVersionMismatch = errors.New("snapshot schema version mismatch")
)

// Store wraps a sqlite database holding one snapshot blob per key.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot db: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			key        TEXT PRIMARY KEY,
			version    INTEGER NOT NULL,
			data       TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}
	return nil
}

// Save marshals value and upserts it under key with the given schema version.
func (s *Store) Save(key string, version int, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %q: %w", key, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO snapshots (key, version, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET version = excluded.version,
			data = excluded.data, updated_at = excluded.updated_at`,
		key, version, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write snapshot %q: %w", key, err)
	}
	return nil
}

// Load unmarshals the snapshot under key into out. Returns ErrNotFound when
// the key is absent and ErrVersionMismatch when the stored schema version
// differs from the expected one.
func (s *Store) Load(key string, version int, out any) error {
	var (
		storedVersion int
		data          string
	)
	err := s.db.QueryRow(`SELECT version, data FROM snapshots WHERE key = ?`, key).
		Scan(&storedVersion, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot %q: %w", key, err)
	}
	if storedVersion != version {
		return fmt.Errorf("%w: key %q has version %d, want %d",
			ErrVersionMismatch, key, storedVersion, version)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot %q: %w", key, err)
	}
	return nil
}

// Delete removes the snapshot under key. Missing keys are a no-op.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete snapshot %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
