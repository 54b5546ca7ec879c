// Package cli wires the bsweep commands: running a sweep, the hidden
// worker mode the scheduler re-invokes, the mute estimator, and the run
// ledger listing.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/bsweep/internal/config"
	"github.com/me/bsweep/internal/logging"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the bsweep CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bsweep",
		Short: "bsweep — GPU parameter-sweep scheduler for gprMax B-scans",
		Long: "bsweep partitions the runs of a B-scan simulation across the\n" +
			"available GPUs, supervises one engine process per device, and on\n" +
			"success merges and plots the combined result.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			explicit := cmd.Flags().Changed("config")
			path := flagConfig
			if path == "" {
				path = config.DefaultPath()
			}
			var err error
			cfg, err = config.Load(path, explicit)
			if err != nil {
				return invalidf("%v", err)
			}

			if cmd.Flags().Changed("log-level") || flagDebug {
				cfg.LogLevel = flagLogLevel
			}
			if flagDebug {
				cfg.LogLevel = "debug"
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = flagLogFormat
			}
			logger = logging.New(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.bsweep/config.yaml)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newWorkerCmd(),
		newMuteCmd(),
		newRunsCmd(),
	)

	return root
}
