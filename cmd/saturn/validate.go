package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/decision/source"
	"mercator-hq/saturn/pkg/sla"
)

var validateFlags struct {
	tablesPath      string
	definitionsPath string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate decision tables and SLA definitions",
	Long: `Validate decision table and SLA definition files without starting
the engine.

Each table is checked for structural errors (unknown operators, bad hit
policies, duplicate rule ids) and each SLA definition for configuration
errors (missing budgets, non-ascending escalation ladders, malformed
calendars).

Examples:
  # Validate decision tables
  saturn validate --tables tables.yaml

  # Validate both tables and definitions
  saturn validate --tables tables/ --definitions slas.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.tablesPath, "tables", "", "decision table file or directory")
	validateCmd.Flags().StringVar(&validateFlags.definitionsPath, "definitions", "", "SLA definition file or directory")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateFlags.tablesPath == "" && validateFlags.definitionsPath == "" {
		return fmt.Errorf("nothing to validate: pass --tables and/or --definitions")
	}

	logger := slog.Default()
	failed := false

	if validateFlags.tablesPath != "" {
		src := source.NewFileSource(validateFlags.tablesPath, logger)
		tables, err := src.LoadTables(context.Background())
		if err != nil {
			fmt.Printf("✗ Decision tables: %v\n", err)
			failed = true
		} else {
			fmt.Printf("✓ Decision tables valid (%d tables)\n", len(tables))
		}
	}

	if validateFlags.definitionsPath != "" {
		defs, err := sla.LoadDefinitions(validateFlags.definitionsPath)
		if err != nil {
			fmt.Printf("✗ SLA definitions: %v\n", err)
			failed = true
		} else {
			fmt.Printf("✓ SLA definitions valid (%d definitions)\n", len(defs))
		}
	}

	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}
