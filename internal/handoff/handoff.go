// Package handoff runs the post-sweep pipeline: merge the per-run
// artifacts, plot the merged B-scan, and optionally stage the merged
// artifact out. The whole stage is gated on the sweep verdict — a partial
// result set is never merged or plotted.
package handoff

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/me/bsweep/internal/engine"
	"github.com/me/bsweep/internal/mute"
	"github.com/me/bsweep/internal/stage"
)

// Tools is the slice of engine.Toolchain the pipeline needs.
type Tools interface {
	Merge(ctx context.Context, prefix string, removeInputs bool) (int, error)
	Plot(ctx context.Context, merged, comp string, muteNS *float64) (int, error)
}

// Config selects what the pipeline does for one sweep.
type Config struct {
	// Infile is the sweep input file; the artifact prefix derives from it.
	Infile string
	// Comp is the field component handed to the plot collaborator.
	Comp string
	// Mute auto-computes the early-time mute window from the infile and
	// forwards it to the plot collaborator.
	Mute bool
	// KeepArtifacts leaves the per-run artifacts in place after merging.
	KeepArtifacts bool
}

// CollaboratorError reports a merge or plot collaborator exiting non-zero.
// Its code becomes the process exit status.
type CollaboratorError struct {
	Step string
	Code int
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator exited with status %d", e.Step, e.Code)
}

// SkippedError reports that the handoff was suppressed by a failed sweep
// verdict. Its code is the aggregate verdict.
type SkippedError struct {
	Verdict int
}

func (e *SkippedError) Error() string {
	return fmt.Sprintf("sweep failed with aggregate status %d; merge and plot skipped", e.Verdict)
}

// Pipeline executes the merge→plot→stage sequence.
type Pipeline struct {
	tools  Tools
	stager stage.Stager
	logger *slog.Logger
}

// New creates a Pipeline. stager may be nil to skip staging entirely.
func New(tools Tools, stager stage.Stager, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		tools:  tools,
		stager: stager,
		logger: logger.With("component", "handoff"),
	}
}

// Run performs the handoff for a drained sweep. verdict is the aggregate
// chunk status: any non-zero verdict skips every downstream step and comes
// back as a SkippedError.
func (p *Pipeline) Run(ctx context.Context, verdict int, cfg Config) error {
	if verdict != 0 {
		p.logger.Error("suppressing merge and plot", "verdict", verdict)
		return &SkippedError{Verdict: verdict}
	}

	prefix := engine.ArtifactPrefix(cfg.Infile)

	code, err := p.tools.Merge(ctx, prefix, !cfg.KeepArtifacts)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	if code != 0 {
		return &CollaboratorError{Step: "merge", Code: code}
	}

	merged := engine.MergedArtifact(prefix)

	var muteNS *float64
	if cfg.Mute {
		muteNS = p.muteWindow(cfg.Infile)
	}

	code, err = p.tools.Plot(ctx, merged, cfg.Comp, muteNS)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	if code != 0 {
		return &CollaboratorError{Step: "plot", Code: code}
	}

	if p.stager != nil {
		location, err := p.stager.StageOut(ctx, merged)
		if err != nil {
			return fmt.Errorf("stage out: %w", err)
		}
		p.logger.Info("merged artifact staged", "location", location)
	}

	return nil
}

// muteWindow estimates the mute window from the infile. Estimation failures
// only cost the mute: the plot still happens, un-muted, as the sweep itself
// already succeeded.
func (p *Pipeline) muteWindow(infile string) *float64 {
	m, err := mute.ParseFile(infile)
	if err != nil {
		p.logger.Warn("mute estimation skipped", "error", err)
		return nil
	}
	res, err := mute.Recommend(m, mute.DefaultOptions())
	if err != nil {
		p.logger.Warn("mute estimation skipped", "error", err)
		return nil
	}

	ns := res.WindowEndNS()
	p.logger.Info("auto mute window", "mute_ns", fmt.Sprintf("%.3f", ns))
	return &ns
}
