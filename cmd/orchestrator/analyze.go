package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetloop/orchestrator/internal/app"
	"github.com/fleetloop/orchestrator/internal/config"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a single workload analysis and print the snapshot as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		application, err := app.New(cfg, signals)
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}

		snapshot := application.AnalyzeOnce(cmd.Context())

		encoded, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

		return nil
	},
}
