package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetloop/orchestrator/internal/config"
	"github.com/fleetloop/orchestrator/internal/infra/instance"
)

const (
	statusTimeout     = 3 * time.Second
	statusMaxBodySize = 64 * 1024
)

var errNotRunning = errors.New("orchestrator is not running")

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status report of the running orchestrator",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		pid, err := instance.ReadPID(cfg.PIDFile)
		if err != nil {
			return fmt.Errorf("%w: %w", errNotRunning, err)
		}

		if !instance.Alive(pid) {
			return fmt.Errorf("%w: stale pid file (pid %d)", errNotRunning, pid)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
		defer cancel()

		url := fmt.Sprintf("http://127.0.0.1:%s/-/status", cfg.HTTPPort)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build status request: %w", err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("query %s: %w", url, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, statusMaxBodySize))
		if err != nil {
			return fmt.Errorf("read status response: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(body))

		return nil
	},
}
