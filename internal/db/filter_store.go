package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrFilterNotFound is returned when no saved filter has the requested name
var ErrFilterNotFound = errors.New("filter not found")

// SavedFilter is a named inbox filter preset
type SavedFilter struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Search    string `json:"search"`
	Priority  string `json:"priority"`
	CreatedAt int64  `json:"created_at"`
	LastUsed  int64  `json:"last_used"`
	UseCount  int    `json:"use_count"`
}

// FilterStore handles database operations for saved filters
type FilterStore struct {
	db *sql.DB
}

// NewFilterStore creates a new filter store
func NewFilterStore(store *Store) *FilterStore {
	return &FilterStore{
		db: store.DB(),
	}
}

// SaveFilter inserts f or replaces the filter with the same name
func (s *FilterStore) SaveFilter(ctx context.Context, f *SavedFilter) error {
	if f == nil || strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("filter name cannot be empty")
	}
	priority := strings.TrimSpace(f.Priority)
	if priority == "" {
		priority = "all"
	}

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_filters (name, search, priority, created_at, last_used, use_count)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(name) DO UPDATE SET
			search = excluded.search,
			priority = excluded.priority,
			last_used = excluded.last_used`,
		strings.TrimSpace(f.Name), f.Search, priority, now, now)
	if err != nil {
		return fmt.Errorf("failed to save filter: %w", err)
	}

	saved, err := s.GetFilter(ctx, f.Name)
	if err != nil {
		return err
	}
	*f = *saved
	return nil
}

// GetFilter retrieves a saved filter by name
func (s *FilterStore) GetFilter(ctx context.Context, name string) (*SavedFilter, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("filter name cannot be empty")
	}

	f := &SavedFilter{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, search, priority, created_at, last_used, use_count
		FROM saved_filters
		WHERE name = ?`,
		strings.TrimSpace(name)).Scan(
		&f.ID, &f.Name, &f.Search, &f.Priority, &f.CreatedAt, &f.LastUsed, &f.UseCount)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFilterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filter: %w", err)
	}
	return f, nil
}

// ListFilters returns every saved filter, most recently used first
func (s *FilterStore) ListFilters(ctx context.Context) ([]*SavedFilter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, search, priority, created_at, last_used, use_count
		FROM saved_filters
		ORDER BY last_used DESC, use_count DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	defer rows.Close()

	var filters []*SavedFilter
	for rows.Next() {
		f := &SavedFilter{}
		if err := rows.Scan(&f.ID, &f.Name, &f.Search, &f.Priority, &f.CreatedAt, &f.LastUsed, &f.UseCount); err != nil {
			return nil, fmt.Errorf("failed to scan filter: %w", err)
		}
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return filters, nil
}

// TouchFilter increments use count and updates the last used timestamp
func (s *FilterStore) TouchFilter(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE saved_filters
		SET use_count = use_count + 1, last_used = ?
		WHERE name = ?`,
		time.Now().Unix(), strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("failed to update filter usage: %w", err)
	}
	return expectOneRow(result)
}

// DeleteFilter removes a saved filter by name
func (s *FilterStore) DeleteFilter(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM saved_filters WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("failed to delete filter: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFilterNotFound
	}
	return nil
}
