// Package profile holds the client's persisted state: cookies, local storage
// keys and the push subscription owned by this device.
package profile

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const fileName = "profile.db"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cookies (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		path TEXT NOT NULL,
		max_age INTEGER NOT NULL DEFAULT 0,
		expires_unix INTEGER NOT NULL DEFAULT 0,
		secure INTEGER NOT NULL DEFAULT 0,
		same_site INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS local_storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_unix INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS push_subscriptions (
		id TEXT PRIMARY KEY,
		endpoint TEXT NOT NULL UNIQUE,
		p256dh TEXT NOT NULL,
		auth TEXT NOT NULL,
		private_key BLOB NOT NULL,
		server_key TEXT NOT NULL,
		created_unix INTEGER NOT NULL
	)`,
}

// DB is the on-disk profile. A single connection serializes writers.
type DB struct {
	sql *sql.DB
}

// DefaultDir returns <user config dir>/sunstock/profile.
func DefaultDir() (string, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "sunstock", "profile"), nil
}

// Open creates dir if needed and opens (or initializes) the profile in it.
func Open(ctx context.Context, dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	return openPath(ctx, filepath.Join(dir, fileName))
}

func openPath(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("configure profile: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate profile: %w", err)
		}
	}
	return &DB{sql: conn}, nil
}

func (db *DB) Close() error {
	if db == nil || db.sql == nil {
		return nil
	}
	return db.sql.Close()
}
