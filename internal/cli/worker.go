package cli

import (
	"github.com/spf13/cobra"

	"github.com/me/bsweep/internal/engine"
	"github.com/me/bsweep/internal/partition"
	"github.com/me/bsweep/internal/worker"
)

// newWorkerCmd is the hidden worker mode the scheduler re-invokes: one
// process per chunk, bound to one GPU, executing its run range sequentially.
// The process exit status is the first non-zero engine status.
func newWorkerCmd() *cobra.Command {
	var (
		infile   string
		runs     int
		gpu      string
		runRange string
	)

	cmd := &cobra.Command{
		Use:    "worker",
		Hidden: true,
		Short:  "Execute one chunk of a sweep (internal)",
		RunE: func(cmd *cobra.Command, args []string) error {
			chunk, err := partition.ParseChunk(runRange)
			if err != nil {
				return invalidf("%v", err)
			}
			if runs < chunk.End {
				return invalidf("--runs %d is smaller than range end %d", runs, chunk.End)
			}

			tools := engine.New(cfg.Simulate, cfg.Merge, cfg.Plot, logger)
			code := worker.Run(cmd.Context(), tools, worker.Config{
				Infile: infile,
				Runs:   runs,
				GPU:    gpu,
				Chunk:  chunk,
			}, logger)
			if code != 0 {
				return exitWith(code, "chunk %s failed with status %d", chunk, code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&infile, "infile", "", "Sweep input file")
	cmd.Flags().IntVar(&runs, "runs", 0, "Total runs in the sweep")
	cmd.Flags().StringVar(&gpu, "gpu", "", "Device slot to bind to")
	cmd.Flags().StringVar(&runRange, "range", "", "Inclusive run range, as start-end")
	cmd.MarkFlagRequired("infile")
	cmd.MarkFlagRequired("runs")
	cmd.MarkFlagRequired("gpu")
	cmd.MarkFlagRequired("range")

	return cmd
}
