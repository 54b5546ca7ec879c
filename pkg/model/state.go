package model

// ChunkState represents the lifecycle state of a chunk.
type ChunkState string

const (
	ChunkStatePending ChunkState = "PENDING"
	ChunkStateRunning ChunkState = "RUNNING"
	ChunkStateSuccess ChunkState = "SUCCESS"
	ChunkStateFailed  ChunkState = "FAILED"
)

// String returns the string representation of the chunk state.
func (s ChunkState) String() string {
	return string(s)
}

// IsTerminal returns true if the chunk is in a final state.
func (s ChunkState) IsTerminal() bool {
	switch s {
	case ChunkStateSuccess, ChunkStateFailed:
		return true
	}
	return false
}

// ValidChunkTransitions defines the allowed state transitions for chunks.
// A chunk moves from the pending queue to exactly one slot, runs there, and
// terminates; it is never reassigned or retried.
var ValidChunkTransitions = map[ChunkState][]ChunkState{
	ChunkStatePending: {ChunkStateRunning},
	ChunkStateRunning: {ChunkStateSuccess, ChunkStateFailed},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s ChunkState) CanTransitionTo(next ChunkState) bool {
	for _, allowed := range ValidChunkTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SweepState represents the lifecycle state of a sweep.
type SweepState string

const (
	SweepStatePending   SweepState = "PENDING"
	SweepStateRunning   SweepState = "RUNNING"
	SweepStateCompleted SweepState = "COMPLETED"
	SweepStateFailed    SweepState = "FAILED"
)

// String returns the string representation of the sweep state.
func (s SweepState) String() string {
	return string(s)
}

// IsTerminal returns true if the sweep is in a final state.
func (s SweepState) IsTerminal() bool {
	switch s {
	case SweepStateCompleted, SweepStateFailed:
		return true
	}
	return false
}
