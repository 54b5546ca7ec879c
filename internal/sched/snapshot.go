package sched

import (
	"time"

	"github.com/gammazero/deque"

	"github.com/me/bsweep/internal/partition"
)

// SlotView is one slot's assignment state in a snapshot.
type SlotView struct {
	Slot  string           `json:"slot"`
	State string           `json:"state"` // "idle" or "busy"
	Chunk *partition.Chunk `json:"chunk,omitempty"`
	Since *time.Time       `json:"since,omitempty"`
}

// Snapshot is an immutable view of the schedule, published by the control
// loop after every state change and served by the status API. Readers never
// touch live scheduler state.
type Snapshot struct {
	SweepID   string     `json:"sweep_id,omitempty"`
	Pending   int        `json:"pending"`
	Completed int        `json:"completed"`
	Failed    int        `json:"failed"`
	Verdict   int        `json:"verdict"`
	Slots     []SlotView `json:"slots"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func buildSnapshot(cfg Config, pending *deque.Deque[partition.Chunk], active map[string]*assignment, result *Result) *Snapshot {
	snap := &Snapshot{
		SweepID:   cfg.SweepID,
		Pending:   pending.Len(),
		Verdict:   result.Verdict.Code(),
		Slots:     make([]SlotView, 0, len(cfg.Slots)),
		UpdatedAt: time.Now().UTC(),
	}

	for _, code := range result.Statuses {
		if code == 0 {
			snap.Completed++
		} else {
			snap.Failed++
		}
	}

	for _, slot := range cfg.Slots {
		view := SlotView{Slot: slot, State: "idle"}
		if a, ok := active[slot]; ok {
			c := a.chunk
			since := a.started
			view.State = "busy"
			view.Chunk = &c
			view.Since = &since
		}
		snap.Slots = append(snap.Slots, view)
	}
	return snap
}
