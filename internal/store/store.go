package store

import (
	"context"

	"github.com/me/bsweep/pkg/model"
)

// Store defines the persistence layer for the sweep ledger.
type Store interface {
	// Sweep CRUD
	CreateSweep(ctx context.Context, sw *model.Sweep) error
	GetSweep(ctx context.Context, id string) (*model.Sweep, error)
	ListSweeps(ctx context.Context, opts model.ListOptions) ([]*model.Sweep, int, error)
	UpdateSweep(ctx context.Context, sw *model.Sweep) error

	// Chunk operations
	CreateChunk(ctx context.Context, c *model.ChunkRecord) error
	UpdateChunk(ctx context.Context, c *model.ChunkRecord) error
	ListChunksBySweep(ctx context.Context, sweepID string) ([]*model.ChunkRecord, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
