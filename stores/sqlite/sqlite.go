// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package store implements the catalog store on SQLite. All failures that
// cross the package boundary are classified into model.StorageError kinds
// so callers never inspect error message text.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// CatalogStore is a SQLite-backed store for DAT catalog records.
// The connection is single-owner: during an import run only the session's
// consumer touches it.
type CatalogStore struct {
	db *sql.DB
}

// StoreConfig holds configuration for creating a CatalogStore.
type StoreConfig struct {
	// Path is the file path for file-based SQLite.
	// If empty, an in-memory database is used.
	Path string

	// InitSchema controls whether to run schema initialization on open.
	// Always applied for in-memory databases.
	InitSchema bool
}

// NewCatalogStore creates a new in-memory catalog store with schema loaded.
func NewCatalogStore() (*CatalogStore, error) {
	return NewCatalogStoreWithConfig(StoreConfig{InitSchema: true})
}

// NewCatalogStoreWithConfig creates a catalog store based on the provided
// configuration. File-based stores are created on first open if missing;
// the scan command owns the fresh-vs-resume decision, not the open.
func NewCatalogStoreWithConfig(cfg StoreConfig) (*CatalogStore, error) {
	var dsn string

	if cfg.Path == "" {
		dsn = "file::memory:?cache=shared&_pragma=foreign_keys(1)"
	} else {
		// Apply PRAGMA's per-connection via DSN so the pool always has them.
		// modernc.org/sqlite supports repeated _pragma=... parameters.
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
			cfg.Path,
		)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, classify("open", err)
	}

	if cfg.InitSchema || cfg.Path == "" {
		if _, err := db.Exec(schemaSQL); err != nil {
			db.Close()
			return nil, classify("init schema", err)
		}
	}

	return &CatalogStore{db: db}, nil
}

// InitDatabase creates a new SQLite database file and initializes the
// schema. Returns an error if the file already exists.
func InitDatabase(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("database file already exists: %s", path)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return classify("open", err)
	}
	defer db.Close()

	if _, err := db.Exec(schemaSQL); err != nil {
		return classify("init schema", err)
	}

	return nil
}

// CompactDatabase compacts a database file by checkpointing the WAL and
// running VACUUM, producing a single compact file suitable for backup.
func CompactDatabase(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("database file does not exist: %s", path)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return classify("open", err)
	}
	defer db.Close()

	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return classify("checkpoint WAL", err)
	}
	if _, err := db.Exec("VACUUM"); err != nil {
		return classify("vacuum", err)
	}

	return nil
}

// ConfigureThreads sets the SQLite auxiliary thread limit. It is a hint for
// bulk operations; zero leaves the engine default in place.
func (s *CatalogStore) ConfigureThreads(n int) error {
	if n <= 0 {
		return nil
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA threads = %d", n)); err != nil {
		return classify("configure threads", err)
	}
	return nil
}

// Close closes the database connection.
func (s *CatalogStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
