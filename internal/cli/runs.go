package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/bsweep/internal/store"
	"github.com/me/bsweep/pkg/model"
)

func newRunsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "runs [sweep-id]",
		Short: "List past sweeps from the run ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cfg.DBPath == "" {
				return invalidf("run ledger is disabled; set db_path or pass --db")
			}

			st, err := store.NewSQLiteStore(cfg.DBPath, logger)
			if err != nil {
				return invalidf("open ledger: %v", err)
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return invalidf("migrate ledger: %v", err)
			}

			if len(args) == 1 {
				return showSweep(cmd, st, args[0])
			}
			return listSweeps(cmd, st, model.ListOptions{Limit: limit, Offset: offset})
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Run-ledger SQLite path")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sweeps to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Sweeps to skip")

	return cmd
}

func listSweeps(cmd *cobra.Command, st store.Store, opts model.ListOptions) error {
	sweeps, total, err := st.ListSweeps(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("list sweeps: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(sweeps) == 0 {
		fmt.Fprintln(out, "No sweeps recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-10s  %-6s  %-8s  %-20s  %s\n",
		"ID", "STATE", "RUNS", "VERDICT", "CREATED", "INFILE")
	for _, sw := range sweeps {
		fmt.Fprintf(out, "%-36s  %-10s  %-6d  %-8d  %-20s  %s\n",
			sw.ID, sw.State, sw.Runs, sw.Verdict,
			sw.CreatedAt.Format("2006-01-02 15:04:05"), sw.Infile)
	}
	if total > len(sweeps) {
		fmt.Fprintf(out, "\n(%d of %d shown)\n", len(sweeps), total)
	}
	return nil
}

func showSweep(cmd *cobra.Command, st store.Store, id string) error {
	sw, err := st.GetSweep(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("get sweep: %w", err)
	}
	if sw == nil {
		return invalidf("sweep %s not found", id)
	}
	chunks, err := st.ListChunksBySweep(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sweep:    %s\n", sw.ID)
	fmt.Fprintf(out, "Infile:   %s\n", sw.Infile)
	fmt.Fprintf(out, "Runs:     %d (%s over GPUs %s)\n", sw.Runs, sw.Policy, sw.Devices)
	fmt.Fprintf(out, "State:    %s (verdict %d)\n", sw.State, sw.Verdict)
	fmt.Fprintf(out, "Created:  %s\n", sw.CreatedAt.Format("2006-01-02 15:04:05"))
	if sw.CompletedAt != nil {
		fmt.Fprintf(out, "Finished: %s\n", sw.CompletedAt.Format("2006-01-02 15:04:05"))
	}

	fmt.Fprintf(out, "\n%-12s  %-6s  %-10s  %s\n", "RUNS", "GPU", "STATE", "EXIT")
	for _, c := range chunks {
		exit := "-"
		if c.ExitCode != nil {
			exit = fmt.Sprintf("%d", *c.ExitCode)
		}
		slot := c.Slot
		if slot == "" {
			slot = "-"
		}
		fmt.Fprintf(out, "%-12s  %-6s  %-10s  %s\n",
			fmt.Sprintf("%d-%d", c.Start, c.End), slot, c.State, exit)
	}
	return nil
}
