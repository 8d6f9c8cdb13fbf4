// Package lifecycle executes decided actions against component drivers.
// Apply is idempotent: starting an already-healthy component and stopping an
// already-stopped one both succeed without touching the driver. Every start
// is verified with a fresh probe after a short grace period.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetloop/orchestrator/internal/infra/metrics"
	"github.com/fleetloop/orchestrator/internal/logic/decision"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
)

// Result reports what one applied action actually did.
type Result struct {
	Started         bool
	Stopped         bool
	VerifiedHealthy bool
}

// Manager applies lifecycle actions through per-component drivers.
type Manager struct {
	logger     *slog.Logger
	registry   *registry.Registry
	drivers    map[string]Driver
	maintainer Maintainer
	grace      time.Duration
}

// New creates a manager. grace is the wait between a successful start and
// its verification probe; maintainer may be nil when maintenance is disabled.
func New(
	logger *slog.Logger,
	reg *registry.Registry,
	drivers map[string]Driver,
	maintainer Maintainer,
	grace time.Duration,
) *Manager {
	return &Manager{
		logger:     logger,
		registry:   reg,
		drivers:    drivers,
		maintainer: maintainer,
		grace:      grace,
	}
}

// Apply executes one action. NoOp actions return an empty result. Errors
// from one action never affect other actions in the same cycle; the caller
// applies the rest regardless.
func (m *Manager) Apply(ctx context.Context, action decision.Action) (Result, error) {
	switch action.Op {
	case decision.OpNoOp:
		return Result{}, nil
	case decision.OpMaintain:
		return Result{}, m.maintain(ctx)
	case decision.OpStart:
		return m.start(ctx, action)
	case decision.OpStop:
		return m.stop(ctx, action)
	default:
		return Result{}, fmt.Errorf("apply action %q: unknown op %q", action.Component, action.Op)
	}
}

func (m *Manager) start(ctx context.Context, action decision.Action) (Result, error) {
	driver, comp, err := m.lookup(action.Component)
	if err != nil {
		return Result{}, fmt.Errorf("start %s: %w", action.Component, err)
	}

	if comp.Status == registry.StatusHealthy {
		m.logger.DebugContext(ctx, "start skipped, already healthy", "component", comp.Name)
		metrics.RecordAction(comp.Name, string(decision.OpStart), "skipped")

		return Result{VerifiedHealthy: true}, nil
	}

	m.logger.InfoContext(ctx, "starting component",
		"component", comp.Name,
		"reason", action.Reason,
	)

	if err := driver.Start(ctx, comp.Name); err != nil {
		metrics.RecordAction(comp.Name, string(decision.OpStart), "error")

		return Result{}, fmt.Errorf("start %s: %w", comp.Name, err)
	}

	if err := m.verify(ctx, driver, comp.Name); err != nil {
		metrics.RecordAction(comp.Name, string(decision.OpStart), "unverified")

		return Result{Started: true}, err
	}

	metrics.RecordAction(comp.Name, string(decision.OpStart), "ok")

	return Result{Started: true, VerifiedHealthy: true}, nil
}

// verify waits out the grace period and re-probes once. The registry is
// updated either way so the next cycle sees the actual outcome.
func (m *Manager) verify(ctx context.Context, driver Driver, name string) error {
	timer := time.NewTimer(m.grace)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return fmt.Errorf("verify %s: %w", name, ctx.Err())
	}

	if err := driver.Probe(ctx, name); err != nil {
		if updateErr := m.registry.UpdateStatus(name, registry.StatusUnhealthy); updateErr != nil {
			m.logger.WarnContext(ctx, "record verification result", "component", name, "reason", updateErr)
		}

		return fmt.Errorf("verify %s: %w: %w", name, ErrVerificationFailed, err)
	}

	if updateErr := m.registry.UpdateStatus(name, registry.StatusHealthy); updateErr != nil {
		m.logger.WarnContext(ctx, "record verification result", "component", name, "reason", updateErr)
	}

	return nil
}

func (m *Manager) stop(ctx context.Context, action decision.Action) (Result, error) {
	driver, comp, err := m.lookup(action.Component)
	if err != nil {
		return Result{}, fmt.Errorf("stop %s: %w", action.Component, err)
	}

	if comp.Status == registry.StatusStopped {
		m.logger.DebugContext(ctx, "stop skipped, already stopped", "component", comp.Name)
		metrics.RecordAction(comp.Name, string(decision.OpStop), "skipped")

		return Result{Stopped: true}, nil
	}

	m.logger.InfoContext(ctx, "stopping component",
		"component", comp.Name,
		"reason", action.Reason,
	)

	if err := driver.Stop(ctx, comp.Name); err != nil {
		metrics.RecordAction(comp.Name, string(decision.OpStop), "error")

		return Result{}, fmt.Errorf("stop %s: %w", comp.Name, err)
	}

	if updateErr := m.registry.UpdateStatus(comp.Name, registry.StatusStopped); updateErr != nil {
		m.logger.WarnContext(ctx, "record stop result", "component", comp.Name, "reason", updateErr)
	}

	metrics.RecordAction(comp.Name, string(decision.OpStop), "ok")

	return Result{Stopped: true}, nil
}

func (m *Manager) maintain(ctx context.Context) error {
	if m.maintainer == nil {
		return fmt.Errorf("maintain: %w", ErrNoMaintainer)
	}

	m.logger.InfoContext(ctx, "running maintenance")

	if err := m.maintainer.Maintain(ctx); err != nil {
		metrics.RecordAction("", string(decision.OpMaintain), "error")

		return fmt.Errorf("maintain: %w", err)
	}

	metrics.RecordAction("", string(decision.OpMaintain), "ok")

	return nil
}

func (m *Manager) lookup(name string) (Driver, registry.Component, error) {
	driver, exists := m.drivers[name]
	if !exists {
		return nil, registry.Component{}, ErrComponentUnknown
	}

	comp, err := m.registry.Get(name)
	if err != nil {
		return nil, registry.Component{}, err
	}

	return driver, comp, nil
}
