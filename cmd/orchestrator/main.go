package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fleetloop/orchestrator/internal/infra/shutdown"
)

func main() {
	// Start listening for signals immediately as first thing, before any other initialization
	signals = shutdown.Notify()
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to run", "reason", err)
		// Give the logger some time to flush
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}
}
