package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PreferenceStore keeps small key/value UI settings such as the last open page
type PreferenceStore struct {
	db *sql.DB
}

// NewPreferenceStore creates a new preference store
func NewPreferenceStore(store *Store) *PreferenceStore {
	return &PreferenceStore{db: store.DB()}
}

// Get returns the value for key; ok is false when it was never set
func (s *PreferenceStore) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key
func (s *PreferenceStore) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("preference key cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set preference %q: %w", key, err)
	}
	return nil
}
