// Package prober fans health probes out to every registered component once
// per cycle. Probes run concurrently, each under its own timeout, so one
// stuck component cannot stall the rest of the sweep. After a probe the
// component is always classified Healthy or Unhealthy, never left Unknown.
package prober

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/fleetloop/orchestrator/internal/infra/metrics"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
)

// Service probes components through their drivers and records the results
// in the capability registry.
type Service struct {
	logger   *slog.Logger
	registry *registry.Registry
	timeout  time.Duration

	mu      sync.RWMutex
	drivers map[string]Driver
	stats   map[string]*stats
}

// New creates a prober with the given per-probe timeout.
func New(logger *slog.Logger, reg *registry.Registry, timeout time.Duration) *Service {
	return &Service{
		logger:   logger,
		registry: reg,
		timeout:  timeout,
		drivers:  make(map[string]Driver),
		stats:    make(map[string]*stats),
	}
}

// Register attaches a driver to a component name.
func (s *Service) Register(name string, driver Driver) error {
	if driver == nil {
		return fmt.Errorf("register driver %s: %w", name, ErrDriverNil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.drivers[name]; exists {
		return fmt.Errorf("register driver %s: %w", name, ErrDriverAlreadyRegistered)
	}

	s.drivers[name] = driver
	s.stats[name] = newStats()

	s.logger.Info("probe driver registered", "component", name)

	return nil
}

// ProbeAll probes every registered component concurrently and updates the
// registry. It returns when all probes have finished or timed out; the
// elapsed time of one sweep is therefore bounded by the per-probe timeout,
// not by the number of components.
func (s *Service) ProbeAll(ctx context.Context) {
	s.mu.RLock()
	drivers := make(map[string]Driver, len(s.drivers))
	maps.Copy(drivers, s.drivers)
	s.mu.RUnlock()

	if len(drivers) == 0 {
		return
	}

	var wg sync.WaitGroup

	for name, driver := range drivers {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wg.Add(1)

		go func(n string, d Driver) {
			defer wg.Done()

			s.probeOne(ctx, n, d)
		}(name, driver)
	}

	wg.Wait()
}

// probeOne runs a single probe under the per-probe timeout and classifies
// the component from the outcome.
func (s *Service) probeOne(ctx context.Context, name string, driver Driver) {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := driver.Probe(probeCtx, name)
	latency := time.Since(start)

	s.recordStats(name, latency, err)
	metrics.RecordProbe(name, latency, err != nil)

	if err != nil {
		s.logger.DebugContext(ctx, "probe failed",
			"component", name,
			"latency", latency,
			"reason", err,
		)

		if updateErr := s.registry.UpdateStatus(name, registry.StatusUnhealthy); updateErr != nil {
			s.logger.WarnContext(ctx, "record probe result", "component", name, "reason", updateErr)
		}

		return
	}

	s.logger.DebugContext(ctx, "probe succeeded",
		"component", name,
		"latency", latency,
	)

	load := s.loadHint(probeCtx, name, driver)

	if updateErr := s.registry.Update(name, registry.StatusHealthy, load); updateErr != nil {
		s.logger.WarnContext(ctx, "record probe result", "component", name, "reason", updateErr)
	}
}

// loadHint asks the driver for a load figure when it supports one. A failed
// hint degrades to zero load; the probe result itself is unaffected.
func (s *Service) loadHint(ctx context.Context, name string, driver Driver) float64 {
	hinter, ok := driver.(loadHinter)
	if !ok {
		return 0
	}

	load, err := hinter.LoadHint(ctx, name)
	if err != nil {
		s.logger.DebugContext(ctx, "load hint failed", "component", name, "reason", err)

		return 0
	}

	return load
}

func (s *Service) recordStats(name string, latency time.Duration, err error) {
	s.mu.RLock()
	st, exists := s.stats[name]
	s.mu.RUnlock()

	if !exists {
		return
	}

	st.record(time.Now(), latency, err)
}

// GetStats returns the probe history snapshot for one component.
func (s *Service) GetStats(name string) (Statistics, error) {
	s.mu.RLock()
	st, exists := s.stats[name]
	s.mu.RUnlock()

	if !exists {
		return Statistics{}, fmt.Errorf("get stats: %w: %s", ErrComponentUnknown, name)
	}

	return st.snapshot(), nil
}

// GetAllStats returns probe history snapshots for every registered component.
func (s *Service) GetAllStats() map[string]Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]Statistics, len(s.stats))
	for name, st := range s.stats {
		result[name] = st.snapshot()
	}

	return result
}
