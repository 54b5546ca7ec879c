// Package partition splits the run range [1,N] of a sweep into contiguous,
// non-overlapping chunks that the scheduler hands out to device slots.
package partition

import "fmt"

// Chunk is a contiguous, inclusive sub-range of run indices.
type Chunk struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Size returns the number of run indices in the chunk.
func (c Chunk) Size() int {
	return c.End - c.Start + 1
}

// String formats the chunk as "start-end".
func (c Chunk) String() string {
	return fmt.Sprintf("%d-%d", c.Start, c.End)
}

// ParseChunk parses the "start-end" form produced by String.
func ParseChunk(s string) (Chunk, error) {
	var c Chunk
	if _, err := fmt.Sscanf(s, "%d-%d", &c.Start, &c.End); err != nil {
		return Chunk{}, fmt.Errorf("invalid run range %q: %w", s, err)
	}
	if c.Start < 1 || c.End < c.Start {
		return Chunk{}, fmt.Errorf("invalid run range %q", s)
	}
	return c, nil
}

// Policy produces the chunk list for a total run count. Implementations
// guarantee the result is a partition of [1,n]: every index belongs to
// exactly one chunk, chunks are ordered by Start and leave no gaps.
type Policy interface {
	// Partition splits [1,n] into chunks.
	Partition(n int) ([]Chunk, error)
	// Name identifies the policy in logs and the run ledger.
	Name() string
}

// FixedSize chunks the range into pieces of ChunkSize runs each; the last
// chunk takes the remainder.
type FixedSize struct {
	ChunkSize int
}

// Name returns "fixed".
func (FixedSize) Name() string { return "fixed" }

// Partition implements Policy.
func (p FixedSize) Partition(n int) ([]Chunk, error) {
	if n < 1 {
		return nil, fmt.Errorf("total runs must be >= 1, got %d", n)
	}
	if p.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be >= 1, got %d", p.ChunkSize)
	}

	chunks := make([]Chunk, 0, (n+p.ChunkSize-1)/p.ChunkSize)
	for s := 1; s <= n; s += p.ChunkSize {
		e := s + p.ChunkSize - 1
		if e > n {
			e = n
		}
		chunks = append(chunks, Chunk{Start: s, End: e})
	}
	return chunks, nil
}

// Weighted splits the range into one chunk per weight, sized proportionally.
// Shares are rounded to the nearest integer and the rounding error is
// corrected one run at a time in round-robin order so the shares sum exactly
// to n. A weight whose share rounds to zero yields no chunk at all; the
// caller must also drop that weight's slot from scheduling (SlotShares tells
// it which), or the chunk→slot pairing shifts onto the wrong devices.
type Weighted struct {
	Weights []float64
}

// Name returns "weighted".
func (Weighted) Name() string { return "weighted" }

// SlotShares returns the validated per-weight run counts for n, in weight
// order. A zero entry means that weight's slot receives no work.
func (p Weighted) SlotShares(n int) ([]int, error) {
	if n < 1 {
		return nil, fmt.Errorf("total runs must be >= 1, got %d", n)
	}
	if len(p.Weights) == 0 {
		return nil, fmt.Errorf("at least one weight required")
	}

	var total float64
	for i, w := range p.Weights {
		if w <= 0 {
			return nil, fmt.Errorf("weight %d must be positive, got %g", i, w)
		}
		total += w
	}
	return Shares(n, p.Weights, total), nil
}

// Partition implements Policy. The i-th returned chunk belongs to the i-th
// slot with a non-zero share.
func (p Weighted) Partition(n int) ([]Chunk, error) {
	shares, err := p.SlotShares(n)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, 0, len(shares))
	start := 1
	for _, sz := range shares {
		if sz <= 0 {
			continue
		}
		chunks = append(chunks, Chunk{Start: start, End: start + sz - 1})
		start += sz
	}
	return chunks, nil
}

// Shares computes the per-weight run counts. Exported for the weighted
// partition exactness tests; callers normally go through Partition.
func Shares(n int, weights []float64, totalWeight float64) []int {
	shares := make([]int, len(weights))
	sum := 0
	for i, w := range weights {
		shares[i] = roundHalfUp(float64(n) * w / totalWeight)
		sum += shares[i]
	}

	// Correct the rounding error one run at a time, round-robin. Shares
	// never go negative: subtraction skips shares that are already zero.
	diff := n - sum
	for i := 0; diff > 0; i++ {
		shares[i%len(shares)]++
		diff--
	}
	for i := 0; diff < 0; i++ {
		if shares[i%len(shares)] > 0 {
			shares[i%len(shares)]--
			diff++
		}
	}
	return shares
}

// roundHalfUp rounds to the nearest integer with .5 rounding up, matching
// how the shares were computed historically.
func roundHalfUp(x float64) int {
	return int(x + 0.5)
}
