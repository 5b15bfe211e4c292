package settings

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is a durable key-value store for client-local flags, backed by an
// embedded sqlite database so values survive restarts. One database per
// profile, shared across wheels.
type Store struct {
	db *sql.DB
}

// Safe to run multiple times - uses IF NOT EXISTS.
const schema = `
CREATE TABLE IF NOT EXISTS setting (
    key TEXT PRIMARY KEY,
    value INTEGER NOT NULL DEFAULT 0
);
`

// Open creates or opens the settings database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings schema: %w", err)
	}
	return &Store{db: db}, nil
}

// GetBool reads a flag. A missing key reads as false.
func (s *Store) GetBool(key string) (bool, error) {
	var value int
	err := s.db.QueryRow(`SELECT value FROM setting WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read setting %q: %w", key, err)
	}
	return value != 0, nil
}

// SetBool writes a flag, creating or replacing it.
func (s *Store) SetBool(key string, value bool) error {
	v := 0
	if value {
		v = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO setting (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, v,
	)
	if err != nil {
		return fmt.Errorf("write setting %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
