package model

import "time"

// Sweep is one scheduled parameter sweep: N runs of the simulation engine
// against a single input file, split across the configured device slots.
type Sweep struct {
	ID        string     `json:"id"`
	Infile    string     `json:"infile"`
	Runs      int        `json:"runs"`
	Policy    string     `json:"policy"`  // "fixed" or "weighted"
	Devices   string     `json:"devices"` // comma-separated slot ids
	State     SweepState `json:"state"`
	Verdict   int        `json:"verdict"` // OR-reduced chunk exit codes
	CreatedAt time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ChunkRecord is the persisted view of one chunk's scheduling lifecycle.
// Start and End are inclusive run indices.
type ChunkRecord struct {
	SweepID  string     `json:"sweep_id"`
	Start    int        `json:"start"`
	End      int        `json:"end"`
	Slot     string     `json:"slot,omitempty"` // device that executed the chunk
	State    ChunkState `json:"state"`
	ExitCode *int       `json:"exit_code,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TimingRecord captures how long one slot held one chunk. Reporting only;
// scheduling decisions never consult it.
type TimingRecord struct {
	Slot    string        `json:"slot"`
	Start   int           `json:"start"`
	End     int           `json:"end"`
	Started time.Time     `json:"started"`
	Ended   time.Time     `json:"ended"`
	Elapsed time.Duration `json:"elapsed"`
}

// ListOptions configures list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20}
}

// Clamp enforces limits (max 100, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}
