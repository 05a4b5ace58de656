package durable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteBackend stores payloads in a single `state` table of an SQLite file.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating when needed) the database file at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if path == "" {
		path = "cableshop.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps writers ordered without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

// Read returns the payload of bucket key.
func (s *SQLiteBackend) Read(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return payload, nil
}

// Write upserts the payload of bucket key.
func (s *SQLiteBackend) Write(ctx context.Context, key string, payload []byte) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO state(bucket, payload, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, payload,
	); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteBackend) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *SQLiteBackend) Path() string { return s.path }
