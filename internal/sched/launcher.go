package sched

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"

	"github.com/me/bsweep/internal/partition"
)

// Handle is the scheduler's view of one running worker process.
type Handle interface {
	// Poll reports without blocking whether the worker has exited and, if
	// so, its exit status.
	Poll() (done bool, exitCode int)
}

// Launcher starts one worker per chunk. The production implementation
// spawns OS processes; tests substitute a double that simulates timing and
// failures without any processes.
type Launcher interface {
	Launch(ctx context.Context, slot string, c partition.Chunk) (Handle, error)
}

// ProcessLauncher re-invokes the running bsweep binary in its hidden worker
// mode, binding the child to one device slot. The child executes its run
// range sequentially and exits with the first non-zero engine status.
type ProcessLauncher struct {
	exe    string
	infile string
	runs   int
	logger *slog.Logger
}

// NewProcessLauncher resolves the current executable and returns a launcher
// for the given sweep parameters.
func NewProcessLauncher(infile string, runs int, logger *slog.Logger) (*ProcessLauncher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	return &ProcessLauncher{
		exe:    exe,
		infile: infile,
		runs:   runs,
		logger: logger.With("component", "launcher"),
	}, nil
}

// Launch starts a worker process for the chunk. The process deliberately
// does not inherit ctx: cancelling the scheduler stops new assignments but
// never kills workers already running.
func (l *ProcessLauncher) Launch(_ context.Context, slot string, c partition.Chunk) (Handle, error) {
	cmd := exec.Command(l.exe, "worker",
		"--infile", l.infile,
		"--runs", strconv.Itoa(l.runs),
		"--gpu", slot,
		"--range", c.String(),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn worker for %s on gpu %s: %w", c, slot, err)
	}
	l.logger.Info("launched worker", "gpu", slot, "range", c.String(), "pid", cmd.Process.Pid)

	h := &processHandle{done: make(chan struct{})}
	// Reap in the background so Poll never blocks on the child.
	go func() {
		err := cmd.Wait()
		if ee, ok := err.(*exec.ExitError); ok {
			h.code = ee.ExitCode()
		} else if err != nil {
			h.code = 1
		}
		close(h.done)
	}()
	return h, nil
}

// processHandle publishes the exit status of a reaped child. The code is
// written before done is closed, so Poll may read it without locking once
// the channel is closed.
type processHandle struct {
	done chan struct{}
	code int
}

func (h *processHandle) Poll() (bool, int) {
	select {
	case <-h.done:
		return true, h.code
	default:
		return false, 0
	}
}
