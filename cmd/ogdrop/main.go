package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "ogdrop"
	version = "v0.4.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = log.Output(os.Stderr)
	}

	rootCmd := &cobra.Command{
		Use:     "ogdrop",
		Short:   "OG airdrop dashboard: scenario projections and percentile banding",
		Version: version,
		Long: `ogdrop models a hypothetical OpenSea token airdrop for OG trading cohorts.

The serve command runs the dashboard API (HTTP + WebSocket). The remaining
commands run the same scenario and banding engine one-shot from the terminal,
against the cohort distribution snapshots the manifest points at.`,
	}

	// Serve command for the dashboard API
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP/WebSocket server",
		Long:  "Serves the scenario, band, wallet and share-card endpoints plus /metrics and /ws/scenario",
		RunE:  runServe,
	}

	serveCmd.Flags().String("host", "", "Listen host (overrides config)")
	serveCmd.Flags().Int("port", 0, "Listen port (overrides config)")

	// Scenario command for one-shot context builds
	scenarioCmd := &cobra.Command{
		Use:   "scenario",
		Short: "Compute a full scenario context",
		Long:  "Builds cohort cards, the share table, FDV sensitivity and reveal steps for one set of controls",
		RunE:  runScenario,
	}

	scenarioCmd.Flags().Float64("og-pool", 15, "OG pool allocation as % of total supply")
	scenarioCmd.Flags().Float64("fdv", 4, "Fully diluted valuation in $ billions")
	scenarioCmd.Flags().Int("cohort-size", 100000, "Assumed number of OG wallets")
	scenarioCmd.Flags().Float64("tier", 10, "Featured tier as top % of the cohort")
	scenarioCmd.Flags().Float64Slice("shares", []float64{20, 30, 40}, "Tier share percentages for the comparison table")
	scenarioCmd.Flags().Float64Slice("sensitivity", []float64{3, 4, 5}, "FDV values in $ billions for the sensitivity axis")
	scenarioCmd.Flags().String("cohort", "", "Primary cohort key (default from manifest)")
	scenarioCmd.Flags().Float64("wallet-usd", -1, "Wallet lifetime USD volume to place on the curve (omit to skip)")

	// Band command for one-shot percentile placement
	bandCmd := &cobra.Command{
		Use:   "band <total-usd>",
		Short: "Locate a USD volume inside a cohort's percentile distribution",
		Long:  "Walks the cohort's bucketed distribution and reports the top-X% band the volume lands in",
		Args:  cobra.ExactArgs(1),
		RunE:  runBand,
	}

	bandCmd.Flags().String("cohort", "", "Cohort key (default from manifest)")
	bandCmd.Flags().Int("cohort-size", 0, "Assumed cohort size (default: cohort estimate)")

	// Options command for the slider geometries
	optionsCmd := &cobra.Command{
		Use:   "options",
		Short: "Print the percentile and cohort-size control options",
		Long:  "Shows the tier percentile breakpoints and the cohort-size slider geometry for one cohort",
		RunE:  runOptions,
	}

	optionsCmd.Flags().String("cohort", "", "Cohort key for the size slider (default from manifest)")

	// Cohorts command for the manifest view
	cohortsCmd := &cobra.Command{
		Use:   "cohorts",
		Short: "List the configured cohorts and their distribution snapshots",
		RunE:  runCohorts,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", appName, version)
		},
	}

	// Common flags for every command that touches config or snapshots
	for _, c := range []*cobra.Command{serveCmd, scenarioCmd, bandCmd, optionsCmd, cohortsCmd} {
		c.Flags().String("config", "config/config.yaml", "Path to the application config YAML")
	}
	for _, c := range []*cobra.Command{scenarioCmd, bandCmd, optionsCmd, cohortsCmd} {
		c.Flags().Bool("json", false, "Emit JSON instead of formatted text")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(bandCmd)
	rootCmd.AddCommand(optionsCmd)
	rootCmd.AddCommand(cohortsCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
