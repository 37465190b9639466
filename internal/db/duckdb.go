// Package db opens the DuckDB database backing the snapshot archive and
// preferences.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration.
type Config struct {
	// DataDir holds the database file. Empty opens an in-memory database.
	DataDir string
	DBName  string
	// Extensions are installed and loaded after opening. Failures are
	// ignored since extensions may be unavailable offline.
	Extensions []string
}

// Open opens the database and creates the schema.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := cfg.DBName
		if name == "" {
			name = "intel"
		}
		dsn = filepath.Join(duckdbDir, name+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if dsn == "" {
		// every pooled connection to "" is a separate database
		conn.SetMaxOpenConns(1)
	}
	for _, ext := range cfg.Extensions {
		_, _ = conn.ExecContext(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext))
	}
	if err := Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id          VARCHAR PRIMARY KEY,
		kind        VARCHAR NOT NULL,
		item_count  INTEGER NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		payload     JSON
	)`,
	`CREATE TABLE IF NOT EXISTS prefs (
		key        VARCHAR PRIMARY KEY,
		value      VARCHAR NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}

// Migrate creates missing tables.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
