// Package orchestrator drives the control loop: sample resources, probe the
// fleet, analyze workload, decide actions, augment with calendar overrides
// and apply. Cycle work counts against the polling interval, so a loaded
// cycle shortens the following sleep instead of drifting the cadence.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fleetloop/orchestrator/internal/infra/metrics"
	"github.com/fleetloop/orchestrator/internal/logic/decision"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
	"github.com/fleetloop/orchestrator/internal/logic/workload"
)

// Service is the control loop driver.
type Service struct {
	logger    *slog.Logger
	registry  *registry.Registry
	prober    Prober
	analyzer  Analyzer
	sampler   Sampler
	decider   Decider
	augmenter Augmenter
	applier   Applier
	interval  time.Duration
	stateFile string

	ready      chan struct{}
	doneCh     chan struct{}
	inShutdown atomic.Bool

	mu         sync.RWMutex
	cycleCount uint64
	lastCycle  *CycleReport
}

// New creates the control loop service. A previous state file, when present
// and readable, seeds the cycle counter and last cycle report.
func New(
	logger *slog.Logger,
	reg *registry.Registry,
	prober Prober,
	analyzer Analyzer,
	sampler Sampler,
	decider Decider,
	augmenter Augmenter,
	applier Applier,
	interval time.Duration,
	stateFile string,
) *Service {
	s := &Service{
		logger:    logger,
		registry:  reg,
		prober:    prober,
		analyzer:  analyzer,
		sampler:   sampler,
		decider:   decider,
		augmenter: augmenter,
		applier:   applier,
		interval:  interval,
		stateFile: stateFile,
		ready:     make(chan struct{}),
		doneCh:    make(chan struct{}),
	}

	if stateFile != "" {
		state, err := loadState(stateFile)
		if err != nil {
			logger.Warn("previous state unreadable, starting fresh", "path", stateFile, "reason", err)
		} else {
			s.cycleCount = state.CycleCount
			s.lastCycle = state.LastCycle
		}
	}

	return s
}

// Name returns the name of the control loop component
func (s *Service) Name() string {
	return "control-loop"
}

// Start starts the control loop in a goroutine.
func (s *Service) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "control loop is shutting down, skipping start")

		return nil
	}

	go s.RunCommand(ctx)

	return nil
}

// Ready returns a channel that is closed once the first cycle has started.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Shutdown waits for the loop goroutine to exit. An in-flight cycle is
// allowed to finish applying its actions.
func (s *Service) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		s.logger.ErrorContext(ctx, "control loop is already shutting down, skipping shutdown")

		return nil
	}

	defer func() {
		s.logger.InfoContext(ctx, "control loop shut downed")
	}()

	s.logger.InfoContext(ctx, "shutting down control loop")

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before control loop exited: %w", ctx.Err())
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "control loop exited")
	}

	return nil
}

// RunCommand runs cycles until the context is cancelled. The sleep after a
// cycle is the interval minus the cycle's own duration, floored at zero.
func (s *Service) RunCommand(ctx context.Context) {
	defer close(s.doneCh)

	logger := s.logger.With("component", "control-loop")

	close(s.ready)

	for {
		if s.inShutdown.Load() {
			logger.InfoContext(ctx, "terminating control loop")

			return
		}

		start := time.Now()
		s.CycleCommand(ctx)
		elapsed := time.Since(start)

		overrun := elapsed > s.interval
		metrics.RecordCycle(elapsed, overrun)

		if overrun {
			logger.WarnContext(ctx, "cycle overran polling interval",
				"elapsed", elapsed,
				"interval", s.interval,
			)
		}

		sleep := s.interval - elapsed
		if sleep < 0 {
			sleep = 0
		}

		timer := time.NewTimer(sleep)

		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			logger.InfoContext(ctx, "terminating control loop")

			return
		}
	}
}

// CycleCommand runs one full cycle. A panic anywhere in the pipeline is
// recovered and logged; the loop carries on with the next cycle.
func (s *Service) CycleCommand(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordCyclePanic()
			s.logger.ErrorContext(ctx, "cycle panicked",
				"reason", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	cycleID := uuid.NewString()
	logger := s.logger.With("cycleID", cycleID)
	start := time.Now()

	logger.DebugContext(ctx, "cycle started")

	sample := s.sampler.Sample(ctx)
	if sample.Unavailable {
		logger.WarnContext(ctx, "resource sample unavailable this cycle")
	}

	s.prober.ProbeAll(ctx)

	snap := s.analyzer.Analyze(ctx)
	s.recordWorkload(snap)

	components := s.registry.All()

	actions, shed := s.decider.Decide(components, snap, sample, start)
	actions = s.augmenter.Augment(start, components, actions)

	if len(shed) > 0 {
		logger.InfoContext(ctx, "resource pressure, shed candidates",
			"cpuPercent", sample.CPUPercent,
			"candidates", shed,
		)
	}

	actionErrors := s.applyActions(ctx, logger, actions)

	report := CycleReport{
		ID:             cycleID,
		StartedAt:      start,
		Duration:       time.Since(start),
		Workload:       snap,
		Resources:      sample,
		Actions:        actions,
		ShedCandidates: shed,
		ActionErrors:   actionErrors,
	}

	s.finishCycle(ctx, logger, report)
}

// applyActions executes every non-noop action. One failed action never
// blocks the rest of the cycle's actions.
func (s *Service) applyActions(
	ctx context.Context,
	logger *slog.Logger,
	actions []decision.Action,
) []string {
	var actionErrors []string

	for _, action := range actions {
		if action.Op == decision.OpNoOp {
			continue
		}

		result, err := s.applier.Apply(ctx, action)
		if err != nil {
			logger.ErrorContext(ctx, "apply action",
				"component", action.Component,
				"op", string(action.Op),
				"reason", err,
			)

			actionErrors = append(actionErrors, err.Error())

			continue
		}

		logger.InfoContext(ctx, "action applied",
			"component", action.Component,
			"op", string(action.Op),
			"decisionReason", action.Reason,
			"started", result.Started,
			"stopped", result.Stopped,
			"verified", result.VerifiedHealthy,
		)
	}

	return actionErrors
}

func (s *Service) recordWorkload(snap workload.Snapshot) {
	metrics.RecordWorkload(snap.PendingWorkItems, snap.CriticalWorkItems, snap.ActiveWorkerTasks)

	for _, source := range snap.Degraded {
		metrics.RecordDegradedSource(source)
	}
}

func (s *Service) finishCycle(ctx context.Context, logger *slog.Logger, report CycleReport) {
	s.mu.Lock()
	s.cycleCount++
	s.lastCycle = &report
	count := s.cycleCount
	s.mu.Unlock()

	if s.stateFile != "" {
		state := persistedState{
			SavedAt:    time.Now(),
			CycleCount: count,
			LastCycle:  &report,
		}

		if err := saveState(s.stateFile, state); err != nil {
			logger.WarnContext(ctx, "persist cycle state", "path", s.stateFile, "reason", err)
		}
	}

	logger.DebugContext(ctx, "cycle finished",
		"duration", report.Duration,
		"actions", len(report.Actions),
	)
}

// Ping reports loop liveness: ready and with a cycle newer than two
// intervals.
func (s *Service) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ready:
	default:
		return fmt.Errorf("control loop is not ready")
	}

	s.mu.RLock()
	last := s.lastCycle
	s.mu.RUnlock()

	if last == nil {
		return nil
	}

	age := time.Since(last.StartedAt)
	if age > 2*s.interval {
		return fmt.Errorf("last cycle was too long ago: %s", age.Round(time.Second).String())
	}

	return nil
}

// CycleCount returns the number of completed cycles, including those
// restored from the state file.
func (s *Service) CycleCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cycleCount
}

// LastCycle returns the most recent cycle report, when one exists.
func (s *Service) LastCycle() (CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastCycle == nil {
		return CycleReport{}, false
	}

	return *s.lastCycle, true
}
