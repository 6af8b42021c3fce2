package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/existflow/stockdash/internal/db"
)

// SQLStore keeps values in the kv_state table, one row per profile and key
type SQLStore struct {
	db      *db.DB
	profile string
}

// NewSQLStore wraps an opened database
func NewSQLStore(database *db.DB, profile string) *SQLStore {
	if profile == "" {
		profile = "default"
	}
	return &SQLStore{db: database, profile: profile}
}

// Get returns the value for key
func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT value FROM kv_state WHERE profile = ? AND key = ?`),
		s.profile, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Apply writes the batch in one transaction
func (s *SQLStore) Apply(ctx context.Context, b Batch) error {
	if b.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	del := s.db.Rebind(`DELETE FROM kv_state WHERE profile = ? AND key = ?`)
	for _, k := range b.Unset {
		if _, err := tx.ExecContext(ctx, del, s.profile, k); err != nil {
			return fmt.Errorf("failed to delete %s: %w", k, err)
		}
	}

	upsert := s.db.Rebind(`
		INSERT INTO kv_state (profile, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (profile, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`)
	for _, k := range b.keys() {
		if _, err := tx.ExecContext(ctx, upsert, s.profile, k, b.Set[k]); err != nil {
			return fmt.Errorf("failed to write %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
