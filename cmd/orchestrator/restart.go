package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetloop/orchestrator/internal/config"
	"github.com/fleetloop/orchestrator/internal/infra/logging"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Stop any running orchestrator, then run in the foreground",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		if err := stopProcess(logging.New(cfg.LogFormat, cfg.LogLevel), cfg.PIDFile); err != nil {
			return fmt.Errorf("stop previous instance: %w", err)
		}

		return runStart(cmd)
	},
}
