// Package db opens bk's local store: one SQLite file holding the properties
// read from flyers and the outcome of their latest verification.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// dsnOptions apply to every pooled connection. The busy timeout lets the
// API server and a CLI run share the file.
const dsnOptions = "?_busy_timeout=5000&_foreign_keys=on"

// DefaultPath returns where bk keeps its store: ~/.config/bk/bukkaku.db,
// next to config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "bk", "bukkaku.db"), nil
}

// Open opens the store at path, creating the file and its directory on
// first use, and brings the schema up to date.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	store, err := sql.Open("sqlite3", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}

	if _, err := store.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, closeAfter(store, fmt.Errorf("enabling WAL on %s: %w", path, err))
	}
	if err := migrate(store); err != nil {
		return nil, closeAfter(store, fmt.Errorf("migrating store %s: %w", path, err))
	}

	return store, nil
}

// closeAfter closes store after a failed Open and returns err, noting a
// close failure too.
func closeAfter(store *sql.DB, err error) error {
	if closeErr := store.Close(); closeErr != nil {
		return fmt.Errorf("%w (also failed to close: %v)", err, closeErr)
	}
	return err
}
