package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/me/bsweep/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleSweep(id string) *model.Sweep {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Sweep{
		ID:        id,
		Infile:    "cylinder_Bscan.in",
		Runs:      60,
		Policy:    "fixed",
		Devices:   "0,1",
		State:     model.SweepStatePending,
		CreatedAt: now,
	}
}

func TestSweep_CreateGet(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	sw := sampleSweep("sweep-1")
	if err := st.CreateSweep(ctx, sw); err != nil {
		t.Fatalf("create sweep: %v", err)
	}

	got, err := st.GetSweep(ctx, "sweep-1")
	if err != nil {
		t.Fatalf("get sweep: %v", err)
	}
	if got == nil {
		t.Fatal("expected sweep, got nil")
	}
	if got.Infile != sw.Infile || got.Runs != sw.Runs || got.Policy != sw.Policy {
		t.Errorf("round trip mismatch: got %+v want %+v", got, sw)
	}
	if got.State != model.SweepStatePending {
		t.Errorf("state = %s, want PENDING", got.State)
	}
	if !got.CreatedAt.Equal(sw.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, sw.CreatedAt)
	}
}

func TestSweep_GetMissing(t *testing.T) {
	st := testStore(t)

	got, err := st.GetSweep(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get sweep: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing sweep, got %+v", got)
	}
}

func TestSweep_Update(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	sw := sampleSweep("sweep-1")
	if err := st.CreateSweep(ctx, sw); err != nil {
		t.Fatalf("create sweep: %v", err)
	}

	done := time.Now().UTC().Truncate(time.Millisecond)
	sw.State = model.SweepStateFailed
	sw.Verdict = 3
	sw.CompletedAt = &done
	if err := st.UpdateSweep(ctx, sw); err != nil {
		t.Fatalf("update sweep: %v", err)
	}

	got, err := st.GetSweep(ctx, "sweep-1")
	if err != nil {
		t.Fatalf("get sweep: %v", err)
	}
	if got.State != model.SweepStateFailed {
		t.Errorf("state = %s, want FAILED", got.State)
	}
	if got.Verdict != 3 {
		t.Errorf("verdict = %d, want 3", got.Verdict)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Errorf("completed_at = %v, want %v", got.CompletedAt, done)
	}
}

func TestSweep_UpdateMissing(t *testing.T) {
	st := testStore(t)

	if err := st.UpdateSweep(context.Background(), sampleSweep("ghost")); err == nil {
		t.Error("expected error updating missing sweep")
	}
}

func TestSweep_ListNewestFirst(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		sw := sampleSweep(fmt.Sprintf("sweep-%d", i))
		sw.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := st.CreateSweep(ctx, sw); err != nil {
			t.Fatalf("create sweep %d: %v", i, err)
		}
	}

	sweeps, total, err := st.ListSweeps(ctx, model.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("list sweeps: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(sweeps) != 2 {
		t.Fatalf("len = %d, want 2", len(sweeps))
	}
	if sweeps[0].ID != "sweep-2" || sweeps[1].ID != "sweep-1" {
		t.Errorf("order = [%s %s], want newest first", sweeps[0].ID, sweeps[1].ID)
	}
}

func TestChunk_Lifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.CreateSweep(ctx, sampleSweep("sweep-1")); err != nil {
		t.Fatalf("create sweep: %v", err)
	}
	if err := st.CreateChunk(ctx, &model.ChunkRecord{
		SweepID: "sweep-1", Start: 1, End: 10, State: model.ChunkStatePending,
	}); err != nil {
		t.Fatalf("create chunk: %v", err)
	}

	started := time.Now().UTC().Truncate(time.Millisecond)
	if err := st.UpdateChunk(ctx, &model.ChunkRecord{
		SweepID: "sweep-1", Start: 1, End: 10, Slot: "0",
		State: model.ChunkStateRunning, StartedAt: &started,
	}); err != nil {
		t.Fatalf("update chunk to running: %v", err)
	}

	code := 0
	done := started.Add(time.Second)
	if err := st.UpdateChunk(ctx, &model.ChunkRecord{
		SweepID: "sweep-1", Start: 1, End: 10, Slot: "0",
		State: model.ChunkStateSuccess, ExitCode: &code, CompletedAt: &done,
	}); err != nil {
		t.Fatalf("update chunk to success: %v", err)
	}

	chunks, err := st.ListChunksBySweep(ctx, "sweep-1")
	if err != nil {
		t.Fatalf("list chunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len = %d, want 1", len(chunks))
	}
	c := chunks[0]
	if c.State != model.ChunkStateSuccess {
		t.Errorf("state = %s, want SUCCESS", c.State)
	}
	if c.ExitCode == nil || *c.ExitCode != 0 {
		t.Errorf("exit_code = %v, want 0", c.ExitCode)
	}
	// The finish update carried no StartedAt; the earlier value must survive.
	if c.StartedAt == nil || !c.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", c.StartedAt, started)
	}
	if c.CompletedAt == nil || !c.CompletedAt.Equal(done) {
		t.Errorf("completed_at = %v, want %v", c.CompletedAt, done)
	}
}

func TestChunk_ListOrderedByStart(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.CreateSweep(ctx, sampleSweep("sweep-1")); err != nil {
		t.Fatalf("create sweep: %v", err)
	}
	for _, start := range []int{21, 1, 11} {
		if err := st.CreateChunk(ctx, &model.ChunkRecord{
			SweepID: "sweep-1", Start: start, End: start + 9, State: model.ChunkStatePending,
		}); err != nil {
			t.Fatalf("create chunk %d: %v", start, err)
		}
	}

	chunks, err := st.ListChunksBySweep(ctx, "sweep-1")
	if err != nil {
		t.Fatalf("list chunks: %v", err)
	}
	want := []int{1, 11, 21}
	for i, c := range chunks {
		if c.Start != want[i] {
			t.Errorf("chunks[%d].Start = %d, want %d", i, c.Start, want[i])
		}
	}
}

func TestChunk_UpdateMissing(t *testing.T) {
	st := testStore(t)

	err := st.UpdateChunk(context.Background(), &model.ChunkRecord{
		SweepID: "nope", Start: 1, End: 10, State: model.ChunkStateRunning,
	})
	if err == nil {
		t.Error("expected error updating missing chunk")
	}
}
