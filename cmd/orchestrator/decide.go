package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetloop/orchestrator/internal/app"
	"github.com/fleetloop/orchestrator/internal/config"
	"github.com/fleetloop/orchestrator/internal/logic/decision"
)

type decideOutput struct {
	Actions        []decision.Action `json:"actions"`
	ShedCandidates []string          `json:"shedCandidates,omitempty"`
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Run one probe-analyze-decide pass and print the plan without applying it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		application, err := app.New(cfg, signals)
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}

		actions, shed := application.DecideOnce(cmd.Context())

		encoded, err := json.MarshalIndent(decideOutput{
			Actions:        actions,
			ShedCandidates: shed,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

		return nil
	},
}
