package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/me/bsweep/internal/device"
	"github.com/me/bsweep/internal/engine"
	"github.com/me/bsweep/internal/handoff"
	"github.com/me/bsweep/internal/partition"
	"github.com/me/bsweep/internal/sched"
	"github.com/me/bsweep/internal/server"
	"github.com/me/bsweep/internal/stage"
	"github.com/me/bsweep/internal/store"
	"github.com/me/bsweep/pkg/model"
)

func newRunCmd() *cobra.Command {
	var (
		runs          int
		gpus          string
		chunkSize     int
		weights       string
		poll          time.Duration
		comp          string
		muteFlag      bool
		keepArtifacts bool
		stageTo       string
		dbPath        string
		statusAddr    string
	)

	cmd := &cobra.Command{
		Use:   "run <infile>",
		Short: "Run a B-scan parameter sweep across the available GPUs",
		Long: `Partitions runs 1..N of the input file into contiguous chunks, executes
each chunk as one sequential engine process bound to a GPU, and on an
all-success sweep merges the per-run artifacts and plots the B-scan.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infile := args[0]

			if runs < 1 {
				return invalidf("--runs must be >= 1, got %d", runs)
			}
			if _, err := os.Stat(infile); err != nil {
				return invalidf("input file: %v", err)
			}
			if chunkSize > 0 && weights != "" {
				return invalidf("--chunk-size and --weights are mutually exclusive")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slots, err := device.Detect(ctx, gpus)
			if err != nil {
				return invalidf("%v", err)
			}

			policy, slots, err := buildPolicy(chunkSize, weights, runs, slots)
			if err != nil {
				return err
			}
			chunks, err := policy.Partition(runs)
			if err != nil {
				return invalidf("%v", err)
			}

			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("status-addr") {
				cfg.StatusAddr = statusAddr
			}
			pollInterval := cfg.Poll.Std()
			if cmd.Flags().Changed("poll") {
				pollInterval = poll
			}

			return runSweep(ctx, cmd, sweepParams{
				infile:        infile,
				runs:          runs,
				chunks:        chunks,
				policyName:    policy.Name(),
				slots:         slots,
				pollInterval:  pollInterval,
				comp:          comp,
				mute:          muteFlag,
				keepArtifacts: keepArtifacts,
				stageTo:       stageTo,
			})
		},
	}

	cmd.Flags().IntVarP(&runs, "runs", "n", 0, "Total number of runs in the sweep (required)")
	cmd.Flags().StringVar(&gpus, "gpus", "", "Comma-separated GPU ids (default: autodetect via nvidia-smi)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Runs per chunk (default: split evenly across GPUs)")
	cmd.Flags().StringVar(&weights, "weights", "", "Comma-separated per-GPU weights for proportional chunking")
	cmd.Flags().DurationVar(&poll, "poll", sched.DefaultPollInterval, "Scheduler polling interval")
	cmd.Flags().StringVar(&comp, "comp", "Ez", "Field component to plot")
	cmd.Flags().BoolVar(&muteFlag, "mute", false, "Auto-compute an early-time mute window for the plot")
	cmd.Flags().BoolVar(&keepArtifacts, "keep-artifacts", false, "Keep per-run artifacts after merging")
	cmd.Flags().StringVar(&stageTo, "stage-to", "", "Stage the merged artifact to an s3:// URL")
	cmd.Flags().StringVar(&dbPath, "db", "", "Run-ledger SQLite path (empty disables the ledger)")
	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "Serve the live status API on this address")
	cmd.MarkFlagRequired("runs")

	return cmd
}

// buildPolicy selects the partition policy from the flags and returns the
// slots that will actually receive work. With neither --chunk-size nor
// --weights the range splits evenly, one chunk per slot. In weighted mode a
// slot whose share rounds to zero is dropped from the returned list so the
// scheduler seeds each chunk onto the slot its weight belongs to.
func buildPolicy(chunkSize int, weights string, runs int, slots []string) (partition.Policy, []string, error) {
	if weights != "" {
		ws, err := parseWeights(weights)
		if err != nil {
			return nil, nil, invalidf("%v", err)
		}
		if len(ws) != len(slots) {
			return nil, nil, invalidf("%d weights given for %d GPUs", len(ws), len(slots))
		}
		policy := partition.Weighted{Weights: ws}
		shares, err := policy.SlotShares(runs)
		if err != nil {
			return nil, nil, invalidf("%v", err)
		}
		active := make([]string, 0, len(slots))
		for i, sz := range shares {
			if sz > 0 {
				active = append(active, slots[i])
			}
		}
		return policy, active, nil
	}
	if chunkSize == 0 {
		chunkSize = (runs + len(slots) - 1) / len(slots)
	}
	return partition.FixedSize{ChunkSize: chunkSize}, slots, nil
}

func parseWeights(s string) ([]float64, error) {
	var ws []float64
	for _, part := range strings.Split(s, ",") {
		w, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q", part)
		}
		ws = append(ws, w)
	}
	return ws, nil
}

type sweepParams struct {
	infile        string
	runs          int
	chunks        []partition.Chunk
	policyName    string
	slots         []string
	pollInterval  time.Duration
	comp          string
	mute          bool
	keepArtifacts bool
	stageTo       string
}

func runSweep(ctx context.Context, cmd *cobra.Command, p sweepParams) error {
	sweepID := uuid.New().String()
	logger.Info("sweep starting",
		"id", sweepID,
		"infile", p.infile,
		"runs", p.runs,
		"chunks", len(p.chunks),
		"gpus", strings.Join(p.slots, ","),
		"policy", p.policyName,
	)

	// Ledger. A persistence failure here is a setup problem, not a sweep
	// failure, so it aborts before any worker starts.
	var (
		st       store.Store
		observer sched.Observer
	)
	if cfg.DBPath != "" {
		sqlStore, err := store.NewSQLiteStore(cfg.DBPath, logger)
		if err != nil {
			return invalidf("open ledger: %v", err)
		}
		defer sqlStore.Close()
		if err := sqlStore.Migrate(ctx); err != nil {
			return invalidf("migrate ledger: %v", err)
		}
		st = sqlStore

		sw := &model.Sweep{
			ID:        sweepID,
			Infile:    p.infile,
			Runs:      p.runs,
			Policy:    p.policyName,
			Devices:   strings.Join(p.slots, ","),
			State:     model.SweepStateRunning,
			CreatedAt: time.Now().UTC(),
		}
		if err := st.CreateSweep(ctx, sw); err != nil {
			return invalidf("record sweep: %v", err)
		}
		ledger := store.NewLedger(st, sweepID, logger)
		if err := ledger.Seed(ctx, p.chunks); err != nil {
			return invalidf("seed ledger: %v", err)
		}
		observer = ledger
	}

	launcher, err := sched.NewProcessLauncher(p.infile, p.runs, logger)
	if err != nil {
		return fmt.Errorf("prepare launcher: %w", err)
	}
	scheduler := sched.New(launcher, sched.Config{
		Slots:        p.slots,
		PollInterval: p.pollInterval,
		SweepID:      sweepID,
	}, observer, logger)

	if cfg.StatusAddr != "" {
		srv := server.New(scheduler.Snapshot, st, logger)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.StatusAddr); err != nil {
				logger.Error("status api stopped", "error", err)
			}
		}()
	}

	started := time.Now()
	result, runErr := scheduler.Run(ctx, p.chunks)

	if st != nil {
		finishSweep(st, sweepID, result.Verdict.Code())
	}
	printTimings(cmd, result, started)

	if runErr != nil {
		return fmt.Errorf("sweep interrupted: %w", runErr)
	}

	var stager stage.Stager
	if p.stageTo != "" {
		stager, err = stage.FromURL(ctx, p.stageTo)
		if err != nil {
			return invalidf("%v", err)
		}
	}

	tools := engine.New(cfg.Simulate, cfg.Merge, cfg.Plot, logger)
	pipeline := handoff.New(tools, stager, logger)
	if err := pipeline.Run(ctx, result.Verdict.Code(), handoff.Config{
		Infile:        p.infile,
		Comp:          p.comp,
		Mute:          p.mute,
		KeepArtifacts: p.keepArtifacts,
	}); err != nil {
		var skipped *handoff.SkippedError
		if errors.As(err, &skipped) {
			return exitWith(skipped.Verdict, "%v", skipped)
		}
		var collab *handoff.CollaboratorError
		if errors.As(err, &collab) {
			return exitWith(collab.Code, "%v", collab)
		}
		return err
	}
	return nil
}

// finishSweep records the terminal sweep state. Best effort: the verdict has
// already been decided and a ledger write failure must not change it.
func finishSweep(st store.Store, sweepID string, verdict int) {
	state := model.SweepStateCompleted
	if verdict != 0 {
		state = model.SweepStateFailed
	}
	now := time.Now().UTC()
	err := st.UpdateSweep(context.Background(), &model.Sweep{
		ID:          sweepID,
		State:       state,
		Verdict:     verdict,
		CompletedAt: &now,
	})
	if err != nil {
		logger.Error("record sweep completion", "id", sweepID, "error", err)
	}
}

func printTimings(cmd *cobra.Command, result *sched.Result, started time.Time) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%-6s  %-12s  %-8s  %s\n", "GPU", "RUNS", "STATUS", "ELAPSED")
	for _, tr := range result.Timings {
		status := "ok"
		if code, ok := result.Statuses[partition.Chunk{Start: tr.Start, End: tr.End}]; ok && code != 0 {
			status = fmt.Sprintf("exit %d", code)
		}
		fmt.Fprintf(out, "%-6s  %-12s  %-8s  %s\n",
			tr.Slot,
			fmt.Sprintf("%d-%d", tr.Start, tr.End),
			status,
			tr.Elapsed.Round(time.Millisecond),
		)
	}
	fmt.Fprintf(out, "\n%s chunks finished in %s\n",
		humanize.Comma(int64(len(result.Timings))),
		time.Since(started).Round(time.Millisecond),
	)
}
