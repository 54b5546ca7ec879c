package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the sweep ledger.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sweeps (
		id           TEXT PRIMARY KEY,
		infile       TEXT NOT NULL,
		runs         INTEGER NOT NULL,
		policy       TEXT NOT NULL DEFAULT 'fixed',
		devices      TEXT NOT NULL DEFAULT '',
		state        TEXT NOT NULL DEFAULT 'PENDING',
		verdict      INTEGER NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL,
		completed_at TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS chunks (
		sweep_id     TEXT NOT NULL REFERENCES sweeps(id),
		run_start    INTEGER NOT NULL,
		run_end      INTEGER NOT NULL,
		slot         TEXT NOT NULL DEFAULT '',
		state        TEXT NOT NULL DEFAULT 'PENDING',
		exit_code    INTEGER,
		started_at   TEXT,
		completed_at TEXT,
		PRIMARY KEY (sweep_id, run_start)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sweeps_state ON sweeps(state)`,
	`CREATE INDEX IF NOT EXISTS idx_sweeps_created_at ON sweeps(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_sweep_id ON chunks(sweep_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_state ON chunks(state)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
