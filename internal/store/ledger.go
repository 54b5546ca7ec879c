package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/bsweep/internal/partition"
	"github.com/me/bsweep/pkg/model"
)

// Ledger records chunk lifecycle transitions into the store. It satisfies
// the scheduler's observer interface; persistence failures are logged and
// never propagate back into scheduling.
type Ledger struct {
	store   Store
	sweepID string
	logger  *slog.Logger
}

// NewLedger creates a Ledger for one sweep.
func NewLedger(store Store, sweepID string, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:   store,
		sweepID: sweepID,
		logger:  logger.With("component", "ledger"),
	}
}

// Seed inserts a PENDING row for every chunk before scheduling begins, so
// the ledger shows the whole sweep even while most chunks wait in queue.
func (l *Ledger) Seed(ctx context.Context, chunks []partition.Chunk) error {
	for _, c := range chunks {
		rec := &model.ChunkRecord{
			SweepID: l.sweepID,
			Start:   c.Start,
			End:     c.End,
			State:   model.ChunkStatePending,
		}
		if err := l.store.CreateChunk(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) ChunkStarted(slot string, c partition.Chunk, at time.Time) {
	rec := &model.ChunkRecord{
		SweepID:   l.sweepID,
		Start:     c.Start,
		End:       c.End,
		Slot:      slot,
		State:     model.ChunkStateRunning,
		StartedAt: &at,
	}
	if err := l.store.UpdateChunk(context.Background(), rec); err != nil {
		l.logger.Error("record chunk start", "range", c.String(), "error", err)
	}
}

func (l *Ledger) ChunkFinished(slot string, c partition.Chunk, exitCode int, at time.Time) {
	state := model.ChunkStateSuccess
	if exitCode != 0 {
		state = model.ChunkStateFailed
	}
	rec := &model.ChunkRecord{
		SweepID:     l.sweepID,
		Start:       c.Start,
		End:         c.End,
		Slot:        slot,
		State:       state,
		ExitCode:    &exitCode,
		CompletedAt: &at,
	}
	if err := l.store.UpdateChunk(context.Background(), rec); err != nil {
		l.logger.Error("record chunk finish", "range", c.String(), "error", err)
	}
}
