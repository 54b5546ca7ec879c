package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/bsweep/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Sweep CRUD ---

func (s *SQLiteStore) CreateSweep(ctx context.Context, sw *model.Sweep) error {
	s.logger.Debug("sql", "op", "insert", "table", "sweeps", "id", sw.ID)

	var completedAt *string
	if sw.CompletedAt != nil {
		v := sw.CompletedAt.Format(time.RFC3339Nano)
		completedAt = &v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sweeps (id, infile, runs, policy, devices, state, verdict, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sw.ID, sw.Infile, sw.Runs, sw.Policy, sw.Devices, string(sw.State), sw.Verdict,
		sw.CreatedAt.Format(time.RFC3339Nano), completedAt,
	)
	return err
}

func (s *SQLiteStore) GetSweep(ctx context.Context, id string) (*model.Sweep, error) {
	s.logger.Debug("sql", "op", "select", "table", "sweeps", "id", id)

	var sw model.Sweep
	var state, createdAt string
	var completedAt *string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, infile, runs, policy, devices, state, verdict, created_at, completed_at
		 FROM sweeps WHERE id = ?`, id,
	).Scan(&sw.ID, &sw.Infile, &sw.Runs, &sw.Policy, &sw.Devices, &state, &sw.Verdict,
		&createdAt, &completedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sw.State = model.SweepState(state)
	sw.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if completedAt != nil {
		t, _ := time.Parse(time.RFC3339Nano, *completedAt)
		sw.CompletedAt = &t
	}

	return &sw, nil
}

func (s *SQLiteStore) ListSweeps(ctx context.Context, opts model.ListOptions) ([]*model.Sweep, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "sweeps", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sweeps`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, infile, runs, policy, devices, state, verdict, created_at, completed_at
		 FROM sweeps ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sweeps []*model.Sweep
	for rows.Next() {
		var sw model.Sweep
		var state, createdAt string
		var completedAt *string

		if err := rows.Scan(&sw.ID, &sw.Infile, &sw.Runs, &sw.Policy, &sw.Devices, &state, &sw.Verdict,
			&createdAt, &completedAt); err != nil {
			return nil, 0, err
		}
		sw.State = model.SweepState(state)
		sw.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if completedAt != nil {
			t, _ := time.Parse(time.RFC3339Nano, *completedAt)
			sw.CompletedAt = &t
		}

		sweeps = append(sweeps, &sw)
	}
	return sweeps, total, rows.Err()
}

func (s *SQLiteStore) UpdateSweep(ctx context.Context, sw *model.Sweep) error {
	s.logger.Debug("sql", "op", "update", "table", "sweeps", "id", sw.ID)

	var completedAt *string
	if sw.CompletedAt != nil {
		v := sw.CompletedAt.Format(time.RFC3339Nano)
		completedAt = &v
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sweeps SET state=?, verdict=?, completed_at=? WHERE id=?`,
		string(sw.State), sw.Verdict, completedAt, sw.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("sweep %s not found", sw.ID)
	}
	return nil
}

// --- Chunk operations ---

func (s *SQLiteStore) CreateChunk(ctx context.Context, c *model.ChunkRecord) error {
	s.logger.Debug("sql", "op", "insert", "table", "chunks", "sweep_id", c.SweepID, "start", c.Start)

	startedAt, completedAt := optTimes(c.StartedAt, c.CompletedAt)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (sweep_id, run_start, run_end, slot, state, exit_code, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.SweepID, c.Start, c.End, c.Slot, string(c.State), c.ExitCode, startedAt, completedAt,
	)
	return err
}

// UpdateChunk updates a chunk row. Nil ExitCode/StartedAt/CompletedAt leave
// the stored values untouched, so a finish update cannot erase the start
// timestamp written earlier.
func (s *SQLiteStore) UpdateChunk(ctx context.Context, c *model.ChunkRecord) error {
	s.logger.Debug("sql", "op", "update", "table", "chunks", "sweep_id", c.SweepID, "start", c.Start)

	startedAt, completedAt := optTimes(c.StartedAt, c.CompletedAt)

	result, err := s.db.ExecContext(ctx,
		`UPDATE chunks SET slot=?, state=?,
		 exit_code=COALESCE(?, exit_code),
		 started_at=COALESCE(?, started_at),
		 completed_at=COALESCE(?, completed_at)
		 WHERE sweep_id=? AND run_start=?`,
		c.Slot, string(c.State), c.ExitCode, startedAt, completedAt,
		c.SweepID, c.Start,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("chunk %s/%d not found", c.SweepID, c.Start)
	}
	return nil
}

func (s *SQLiteStore) ListChunksBySweep(ctx context.Context, sweepID string) ([]*model.ChunkRecord, error) {
	s.logger.Debug("sql", "op", "list", "table", "chunks", "sweep_id", sweepID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT sweep_id, run_start, run_end, slot, state, exit_code, started_at, completed_at
		 FROM chunks WHERE sweep_id = ? ORDER BY run_start`, sweepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*model.ChunkRecord
	for rows.Next() {
		var c model.ChunkRecord
		var state string
		var startedAt, completedAt *string

		if err := rows.Scan(&c.SweepID, &c.Start, &c.End, &c.Slot, &state, &c.ExitCode,
			&startedAt, &completedAt); err != nil {
			return nil, err
		}

		c.State = model.ChunkState(state)
		if startedAt != nil {
			t, _ := time.Parse(time.RFC3339Nano, *startedAt)
			c.StartedAt = &t
		}
		if completedAt != nil {
			t, _ := time.Parse(time.RFC3339Nano, *completedAt)
			c.CompletedAt = &t
		}

		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func optTimes(started, completed *time.Time) (*string, *string) {
	var a, b *string
	if started != nil {
		v := started.Format(time.RFC3339Nano)
		a = &v
	}
	if completed != nil {
		v := completed.Format(time.RFC3339Nano)
		b = &v
	}
	return a, b
}
