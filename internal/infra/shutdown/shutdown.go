package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultShutdownTimeout = 10 * time.Second
)

// Notify returns a channel receiving SIGTERM and SIGINT. Call it first in
// main() so signals arriving during startup are not dropped.
func Notify() <-chan os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)

	return signals
}

type Handler struct {
	logger *slog.Logger
	quiter quiter
}

// New creates a handler that translates signals into context cancellation.
func New(logger *slog.Logger, quiter quiter) *Handler {
	return &Handler{
		logger: logger,
		quiter: quiter,
	}
}

// HandleSignals blocks until a termination signal arrives, then cancels the
// run context. It exits silently when the context ends first.
func (h *Handler) HandleSignals(ctx context.Context, cancel func()) {
	select {
	case <-ctx.Done():
		return
	case <-h.quiter.Quit():
	}

	h.logger.InfoContext(ctx, "termination signal received, stopping")

	cancel()
}

// GracefulShutdown moves the app into the stopping state, shuts every
// registered component down in reverse registration order under a shared
// timeout, then marks the app stopped. Component failures are collected
// rather than aborting the sequence; the loop must always get its turn to
// persist state.
func GracefulShutdown(
	originCtx context.Context,
	logger *slog.Logger,
	appState appstater,
	shutdowners []Shutdowner,
) error {
	if err := appState.SetStopping(originCtx); err != nil {
		logger.ErrorContext(originCtx, "failed to set stopping state", "reason", err)

		return fmt.Errorf("set stopping application state: %w", err)
	}

	// The run context is usually already cancelled at this point; shutdown
	// gets its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(originCtx), defaultShutdownTimeout)
	defer cancel()

	var errs error

	for i := len(shutdowners) - 1; i >= 0; i-- {
		shutdowner := shutdowners[i]
		start := time.Now()

		if err := shutdowner.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "component shutdown failed",
				"component", shutdowner.Name(),
				"duration", time.Since(start),
				"reason", err,
			)

			errs = errors.Join(errs, fmt.Errorf("shutdown %s: %w", shutdowner.Name(), err))

			continue
		}

		logger.InfoContext(ctx, "component shutdown completed",
			"component", shutdowner.Name(),
			"duration", time.Since(start),
		)
	}

	if err := appState.Shutdown(ctx); err != nil {
		return errors.Join(errs, fmt.Errorf("shutdown application state: %w", err))
	}

	return errs
}
