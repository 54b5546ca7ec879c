// Package worker implements the hidden worker mode: one process bound to
// one device slot, executing a contiguous range of run indices strictly in
// sequence. The scheduler spawns one of these per busy slot.
package worker

import (
	"context"
	"log/slog"

	"github.com/me/bsweep/internal/partition"
)

// Simulator runs the simulation engine for a single run index. Satisfied by
// engine.Toolchain; tests substitute a fake.
type Simulator interface {
	Simulate(ctx context.Context, infile string, totalRuns, index int, gpu string) (int, error)
}

// Config holds one worker's assignment.
type Config struct {
	Infile string
	Runs   int // total sweep run count, passed through to the engine
	GPU    string
	Chunk  partition.Chunk
}

// Run executes the chunk's run indices one at a time and returns the exit
// status the scheduler will observe: 0 when every index succeeded, or the
// first non-zero engine status. The remaining indices of the chunk are
// abandoned as soon as one fails.
func Run(ctx context.Context, sim Simulator, cfg Config, logger *slog.Logger) int {
	log := logger.With("component", "worker", "gpu", cfg.GPU)

	for i := cfg.Chunk.Start; i <= cfg.Chunk.End; i++ {
		log.Info("task starting", "task", i, "total", cfg.Runs)

		code, err := sim.Simulate(ctx, cfg.Infile, cfg.Runs, i, cfg.GPU)
		if err != nil {
			log.Error("engine could not be run", "task", i, "error", err)
			return 1
		}
		if code != 0 {
			log.Error("task failed, abandoning rest of range",
				"task", i, "exit_code", code, "range", cfg.Chunk.String())
			return code
		}
	}
	return 0
}
