package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("key not found")

// DB wraps a database connection
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the SQLite database at path and ensures the schema exists
func NewDB(path string) (*DB, error) {
	if path == "" {
		path = "sunnybloom.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv_store (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

// Get returns the value stored under key, or ErrNotFound
func (d *DB) Get(ctx context.Context, key string) (string, error) {
	if d == nil || d.DB == nil {
		return "", errors.New("database not initialized")
	}

	var value string
	err := d.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value
func (d *DB) Set(ctx context.Context, key, value string) error {
	if d == nil || d.DB == nil {
		return errors.New("database not initialized")
	}

	_, err := d.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Check pings the database, for health reporting
func (d *DB) Check(ctx context.Context) error {
	if d == nil || d.DB == nil {
		return errors.New("database not initialized")
	}
	return d.PingContext(ctx)
}
