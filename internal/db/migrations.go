package db

import (
	"context"
	"fmt"
)

// migrate runs all database migrations
func (db *DB) migrate(ctx context.Context) error {
	migrations := []string{migrationCreateKVStateSQLite}
	if db.Dialect == Postgres {
		migrations = []string{migrationCreateKVStatePostgres}
	}

	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const migrationCreateKVStateSQLite = `
CREATE TABLE IF NOT EXISTS kv_state (
    profile TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (profile, key)
);
`

const migrationCreateKVStatePostgres = `
CREATE TABLE IF NOT EXISTS kv_state (
    profile TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (profile, key)
);
`
