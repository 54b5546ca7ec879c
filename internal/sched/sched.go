// Package sched owns the sweep control loop: it drains a FIFO queue of run
// chunks across a fixed pool of device slots, supervising one worker
// process per busy slot and re-assigning slots greedily as they free up.
package sched

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"

	"github.com/me/bsweep/internal/partition"
	"github.com/me/bsweep/pkg/model"
)

// Config holds scheduler configuration.
type Config struct {
	// Slots are the device identifiers available for assignment.
	Slots []string
	// PollInterval bounds how long a completed worker can sit unnoticed.
	PollInterval time.Duration
	// SweepID tags snapshots and observer callbacks.
	SweepID string
}

// DefaultPollInterval keeps scheduling latency a small constant fraction of
// any realistic chunk duration.
const DefaultPollInterval = 200 * time.Millisecond

// Observer receives chunk lifecycle transitions as they happen. Callbacks
// run on the control-loop goroutine and must not block; the run ledger
// hangs off this interface.
type Observer interface {
	ChunkStarted(slot string, c partition.Chunk, at time.Time)
	ChunkFinished(slot string, c partition.Chunk, exitCode int, at time.Time)
}

// Result is the outcome of a fully drained sweep.
type Result struct {
	// Verdict is the OR-reduction of every chunk exit status.
	Verdict Verdict
	// Statuses maps each chunk to its observed exit status.
	Statuses map[partition.Chunk]int
	// Timings records how long each slot held each chunk. Reporting only.
	Timings []model.TimingRecord
}

// assignment is one busy slot: the chunk it owns and the worker running it.
type assignment struct {
	chunk   partition.Chunk
	handle  Handle
	started time.Time
}

// Scheduler drains a chunk queue across the configured slots. All schedule
// state lives on the single Run goroutine; the only cross-goroutine surface
// is the immutable snapshot published after every state change.
//
// There is no per-chunk timeout or liveness probe: a hung worker occupies
// its slot until it exits on its own. Context cancellation stops the loop
// and any further assignment but does not kill running workers.
type Scheduler struct {
	launcher Launcher
	config   Config
	logger   *slog.Logger
	observer Observer

	snapshot atomic.Pointer[Snapshot]
}

// New creates a Scheduler. observer may be nil.
func New(launcher Launcher, cfg Config, observer Observer, logger *slog.Logger) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Scheduler{
		launcher: launcher,
		config:   cfg,
		logger:   logger.With("component", "scheduler"),
		observer: observer,
	}
}

// Run drains the chunk queue and returns the aggregate result. Chunks are
// assigned in strict FIFO order; whichever slot frees first takes the next
// chunk regardless of which slot it served before. Run returns early only
// when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, chunks []partition.Chunk) (*Result, error) {
	var pending deque.Deque[partition.Chunk]
	for _, c := range chunks {
		pending.PushBack(c)
	}

	active := make(map[string]*assignment, len(s.config.Slots))
	result := &Result{Statuses: make(map[partition.Chunk]int, len(chunks))}

	s.logger.Info("sweep scheduling started",
		"chunks", len(chunks),
		"slots", len(s.config.Slots),
		"poll_interval", s.config.PollInterval,
	)

	// Seed every slot in slot order; slots beyond the queue length stay
	// idle for the whole sweep.
	for _, slot := range s.config.Slots {
		if pending.Len() == 0 {
			break
		}
		s.assignNext(ctx, slot, &pending, active, result)
	}
	s.publish(&pending, active, result)

	for len(active) > 0 {
		changed := s.poll(ctx, &pending, active, result)
		if changed {
			s.publish(&pending, active, result)
			continue
		}
		select {
		case <-ctx.Done():
			s.logger.Warn("scheduling cancelled; running workers are left to finish on their own",
				"busy_slots", len(active), "pending", pending.Len())
			return result, ctx.Err()
		case <-time.After(s.config.PollInterval):
		}
	}

	s.publish(&pending, active, result)
	s.logger.Info("sweep drained",
		"chunks", len(chunks),
		"verdict", result.Verdict.Code(),
	)
	return result, nil
}

// poll performs one non-blocking status sweep over the busy slots, freeing
// and immediately re-assigning any slot whose worker exited. Reports
// whether any slot changed state.
func (s *Scheduler) poll(ctx context.Context, pending *deque.Deque[partition.Chunk], active map[string]*assignment, result *Result) bool {
	changed := false
	for slot, a := range active {
		done, code := a.handle.Poll()
		if !done {
			continue
		}
		changed = true
		now := time.Now().UTC()

		result.Statuses[a.chunk] = code
		result.Verdict.Absorb(code)
		result.Timings = append(result.Timings, model.TimingRecord{
			Slot:    slot,
			Start:   a.chunk.Start,
			End:     a.chunk.End,
			Started: a.started,
			Ended:   now,
			Elapsed: now.Sub(a.started),
		})
		if s.observer != nil {
			s.observer.ChunkFinished(slot, a.chunk, code, now)
		}

		if code == 0 {
			s.logger.Info("chunk completed", "gpu", slot, "range", a.chunk.String())
		} else {
			s.logger.Error("chunk failed", "gpu", slot, "range", a.chunk.String(), "exit_code", code)
		}
		delete(active, slot)

		s.assignNext(ctx, slot, pending, active, result)
	}
	return changed
}

// assignNext marks the slot busy with the next queued chunk. A launch
// failure counts as a failed chunk — its status is recorded and the slot
// moves on to the chunk after it, so no chunk is ever stranded in the queue.
func (s *Scheduler) assignNext(ctx context.Context, slot string, pending *deque.Deque[partition.Chunk], active map[string]*assignment, result *Result) {
	for pending.Len() > 0 {
		c := pending.PopFront()
		now := time.Now().UTC()
		if s.observer != nil {
			s.observer.ChunkStarted(slot, c, now)
		}

		h, err := s.launcher.Launch(ctx, slot, c)
		if err != nil {
			s.logger.Error("launch failed", "gpu", slot, "range", c.String(), "error", err)
			result.Statuses[c] = 1
			result.Verdict.Absorb(1)
			if s.observer != nil {
				s.observer.ChunkFinished(slot, c, 1, time.Now().UTC())
			}
			continue
		}

		active[slot] = &assignment{chunk: c, handle: h, started: now}
		s.logger.Debug("chunk assigned", "gpu", slot, "range", c.String())
		return
	}
}

// Snapshot returns the most recently published schedule snapshot, or nil
// before scheduling starts.
func (s *Scheduler) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

func (s *Scheduler) publish(pending *deque.Deque[partition.Chunk], active map[string]*assignment, result *Result) {
	s.snapshot.Store(buildSnapshot(s.config, pending, active, result))
}
