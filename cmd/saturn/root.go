package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "saturn",
	Short: "Mercator Saturn - decision-table and SLA compliance engine",
	Long: `Mercator Saturn is a compliance engine that pairs a decision-table
evaluator with an SLA deadline and escalation tracker.

It provides:
  - Decision tables with FIRST, UNIQUE, ANY, COLLECT and RULE_ORDER hit policies
  - SLA tracking against business-hours calendars with pause/resume
  - Escalation ladders fired by a concurrent-safe scheduler
  - An append-only event log for every lifecycle transition

For more information, visit: https://github.com/mercator-hq/saturn`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
