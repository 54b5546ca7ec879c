// Package engine invokes the external collaborators of a sweep: the
// simulation engine itself plus the artifact merge and plot tools. All three
// are opaque commands configured as argv prefixes; bsweep only observes
// their exit codes and filesystem artifacts.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// RunFunc executes an argv and reports its exit code. A non-nil error means
// the command could not be run at all (e.g. binary not found); exit codes of
// commands that did run come back as (code, nil).
type RunFunc func(ctx context.Context, argv []string) (int, error)

// Toolchain builds and runs collaborator command lines.
type Toolchain struct {
	simulate []string
	merge    []string
	plot     []string
	run      RunFunc
	logger   *slog.Logger
}

// New creates a Toolchain from the configured command prefixes.
func New(simulate, merge, plot []string, logger *slog.Logger) *Toolchain {
	return &Toolchain{
		simulate: simulate,
		merge:    merge,
		plot:     plot,
		run:      execRun,
		logger:   logger.With("component", "engine"),
	}
}

// SetRunFunc replaces the process spawner. Test hook.
func (t *Toolchain) SetRunFunc(run RunFunc) {
	t.run = run
}

// Simulate runs the engine for a single run index on the given device. The
// engine writes its numbered artifact next to the input file and exits
// non-zero on failure.
func (t *Toolchain) Simulate(ctx context.Context, infile string, totalRuns, index int, gpu string) (int, error) {
	argv := append(append([]string{}, t.simulate...),
		infile,
		"-n", strconv.Itoa(totalRuns),
		"-task", strconv.Itoa(index),
		"-gpu", gpu,
	)
	t.logger.Info("running task", "gpu", gpu, "task", index, "total", totalRuns)
	return t.run(ctx, argv)
}

// Merge combines all per-run artifacts sharing the prefix into
// <prefix>_merged.out. removeInputs asks the collaborator to delete the
// per-run files after merging.
func (t *Toolchain) Merge(ctx context.Context, prefix string, removeInputs bool) (int, error) {
	argv := append(append([]string{}, t.merge...), prefix)
	if removeInputs {
		argv = append(argv, "--remove-files")
	}
	t.logger.Info("merging artifacts", "prefix", prefix)
	return t.run(ctx, argv)
}

// Plot renders the merged artifact for one field component. muteNS, when
// non-nil, is forwarded so the plot collaborator can blank the early-time
// direct wave.
func (t *Toolchain) Plot(ctx context.Context, merged, comp string, muteNS *float64) (int, error) {
	argv := append(append([]string{}, t.plot...), merged, comp)
	if muteNS != nil {
		argv = append(argv, "--mute_ns", fmt.Sprintf("%.3f", *muteNS))
	}
	t.logger.Info("plotting", "artifact", merged, "comp", comp)
	return t.run(ctx, argv)
}

// ArtifactPrefix derives the per-run artifact name prefix from the input
// file: the path with its extension removed.
func ArtifactPrefix(infile string) string {
	return strings.TrimSuffix(infile, filepath.Ext(infile))
}

// MergedArtifact returns the combined artifact path for a prefix.
func MergedArtifact(prefix string) string {
	return prefix + "_merged.out"
}

// execRun spawns argv, inheriting stdout/stderr so collaborator progress
// output reaches the terminal.
func execRun(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	switch err := cmd.Run().(type) {
	case nil:
		return 0, nil
	case *exec.ExitError:
		return err.ExitCode(), nil
	default:
		return 0, fmt.Errorf("run %s: %w", argv[0], err)
	}
}
