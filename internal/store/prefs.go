// Package store keeps the snapshot archive and user preferences.
package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/joeblew999/plat-intel/internal/errors"
)

// MemoryPrefs is an in-process preference store.
type MemoryPrefs struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryPrefs returns an empty store.
func NewMemoryPrefs() *MemoryPrefs {
	return &MemoryPrefs{values: map[string]string{}}
}

func (m *MemoryPrefs) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryPrefs) Set(_ context.Context, key, value string) error {
	if key == "" {
		return errors.NewValidationError("key", key, "preference key is required")
	}
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

// SQLPrefs stores preferences in the prefs table.
type SQLPrefs struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLPrefs returns a store over db. The prefs table must exist.
func NewSQLPrefs(db *sql.DB) *SQLPrefs {
	return &SQLPrefs{db: db, now: time.Now}
}

func (s *SQLPrefs) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapResource("get", "pref", key, err)
	}
	return v, true, nil
}

func (s *SQLPrefs) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.NewValidationError("key", key, "preference key is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO prefs (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, s.now().UTC())
	return errors.WrapResource("set", "pref", key, err)
}
