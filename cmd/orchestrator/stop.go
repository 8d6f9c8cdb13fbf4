package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/fleetloop/orchestrator/internal/config"
	"github.com/fleetloop/orchestrator/internal/infra/instance"
	"github.com/fleetloop/orchestrator/internal/infra/logging"
)

const (
	stopWait         = 10 * time.Second
	stopPollInterval = 200 * time.Millisecond
)

var errStopTimeout = errors.New("orchestrator did not stop in time")

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running orchestrator to shut down and wait for it to exit",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		return stopProcess(logging.New(cfg.LogFormat, cfg.LogLevel), cfg.PIDFile)
	},
}

// stopProcess terminates the orchestrator named by the PID file. A missing
// PID file or an already-dead process counts as success.
func stopProcess(logger *slog.Logger, pidFile string) error {
	pid, err := instance.ReadPID(pidFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("orchestrator is not running", "pid_file", pidFile)

			return nil
		}

		return err
	}

	if !instance.Alive(pid) {
		logger.Info("orchestrator is not running, removing stale pid file", "pid", pid)

		if err := os.Remove(pidFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale pid file: %w", err)
		}

		return nil
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}

	logger.Info("sent SIGTERM, waiting for shutdown", "pid", pid)

	deadline := time.Now().Add(stopWait)
	for time.Now().Before(deadline) {
		if !instance.Alive(pid) {
			logger.Info("orchestrator stopped", "pid", pid)

			return nil
		}

		time.Sleep(stopPollInterval)
	}

	return fmt.Errorf("pid %d: %w", pid, errStopTimeout)
}
