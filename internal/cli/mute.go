package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/bsweep/internal/mute"
)

func newMuteCmd() *cobra.Command {
	var (
		epsilon     float64
		fc          float64
		k           float64
		pulseFactor float64
		dt          float64
	)

	cmd := &cobra.Command{
		Use:   "mute <infile>",
		Short: "Recommend an early-time mute window for a B-scan",
		Long: `Estimates the direct-wave arrival between Tx and Rx from the model
geometry and recommends muting everything up to the arrival plus a
fraction of the pulse main lobe.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mute.ParseFile(args[0])
			if err != nil {
				return invalidf("%v", err)
			}

			opts := mute.DefaultOptions()
			if cmd.Flags().Changed("epsilon") {
				opts.Epsilon = &epsilon
			}
			if cmd.Flags().Changed("fc") {
				opts.Fc = &fc
			}
			if cmd.Flags().Changed("k") {
				opts.K = k
			}
			if cmd.Flags().Changed("pulse-factor") {
				opts.PulseFactor = pulseFactor
			}
			if cmd.Flags().Changed("dt") {
				opts.Dt = &dt
			}

			res, err := mute.Recommend(m, opts)
			if err != nil {
				return invalidf("%v", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tx-Rx separation:    %.4f m\n", res.Distance)
			fmt.Fprintf(out, "Permittivity:        %.2f\n", res.Epsilon)
			fmt.Fprintf(out, "Wave velocity:       %.4e m/s\n", res.Velocity)
			fmt.Fprintf(out, "Centre frequency:    %.4e Hz\n", res.Fc)
			fmt.Fprintf(out, "Direct arrival:      %.4f ns\n", res.DirectTime*1e9)
			fmt.Fprintf(out, "Main lobe:           %.4f ns\n", res.MainLobe*1e9)
			fmt.Fprintf(out, "Mute window end:     %.4f ns\n", res.WindowEndNS())
			if res.Samples >= 0 {
				fmt.Fprintf(out, "Mute samples:        %d\n", res.Samples)
			}
			fmt.Fprintf(out, "\nPlot with: --mute_ns %.3f\n", res.WindowEndNS())
			return nil
		},
	}

	cmd.Flags().Float64Var(&epsilon, "epsilon", 0, "Override the inferred relative permittivity")
	cmd.Flags().Float64Var(&fc, "fc", 0, "Override the waveform centre frequency, Hz")
	cmd.Flags().Float64Var(&k, "k", 0.8, "Mute tail as a multiple of the main lobe")
	cmd.Flags().Float64Var(&pulseFactor, "pulse-factor", 1.0, "Main lobe estimate as pulse-factor/fc")
	cmd.Flags().Float64Var(&dt, "dt", 0, "Sampling interval, s (enables the sample count)")

	return cmd
}
