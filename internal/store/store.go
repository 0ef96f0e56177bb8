// Package store implements the persistence boundaries of postcouncil on SQLite.
//
// The engine reads campaigns, rosters and voice samples, inserts winning
// posts, and appends execution log entries. Everything else in the schema
// (seeding, listing) serves the CLI.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"postcouncil/internal/logging"
	"postcouncil/internal/types"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed implementation of every persistence interface.
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

var (
	_ types.CampaignReader = (*Store)(nil)
	_ types.PostWriter     = (*Store)(nil)
	_ types.PostReader     = (*Store)(nil)
	_ types.LogWriter      = (*Store)(nil)
	_ types.LogReader      = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	logging.Store("Opening store at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers; concurrent units queue here instead of hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			logging.StoreDebug("Failed to set %q: %v", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: path, now: time.Now}
	if _, err := s.Migrate(ctx); err != nil {
		logging.StoreError("Failed to migrate schema: %v", err)
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Database schema ready")

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// =============================================================================
// COLUMN HELPERS
// =============================================================================

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func marshalJSON(v any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "{}", nil
	}
	return string(data), nil
}

func unmarshalJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
