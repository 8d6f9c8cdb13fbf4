package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetloop/orchestrator/internal/app"
	"github.com/fleetloop/orchestrator/internal/config"
	"github.com/fleetloop/orchestrator/internal/infra/instance"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the control loop in the foreground",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStart(cmd)
	},
}

func runStart(cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	application, err := app.New(cfg, signals)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	logger := application.Logger()

	lock := instance.NewLock(logger, cfg.PIDFile)
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, instance.ErrAlreadyRunning) {
			logger.Warn("another orchestrator holds the instance lock, nothing to do",
				"pid_file", cfg.PIDFile)

			return nil
		}

		return err
	}

	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release instance lock", "reason", err)
		}
	}()

	if err := application.Run(cmd.Context()); err != nil {
		return fmt.Errorf("run orchestrator: %w", err)
	}

	logger.Info("bye")

	return nil
}
