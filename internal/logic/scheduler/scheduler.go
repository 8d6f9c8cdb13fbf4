// Package scheduler is the calendar-based heuristic layer on top of the
// decision engine. Peak windows force-start their listed components; a
// cron-specified maintenance schedule emits a maintenance side action.
// The whole layer is data-driven configuration and can be disabled.
package scheduler

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fleetloop/orchestrator/internal/logic/decision"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
)

// Window is one peak range: [StartHour, EndHour) on the listed weekdays
// (empty Weekdays means every day). EndHour < StartHour wraps past
// midnight.
type Window struct {
	Weekdays   []time.Weekday
	StartHour  int
	EndHour    int
	Components []string
}

// Contains reports whether the window covers the given time.
func (w Window) Contains(now time.Time) bool {
	if len(w.Weekdays) > 0 && !slices.Contains(w.Weekdays, now.Weekday()) {
		return false
	}

	hour := now.Hour()
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}

	// Overnight window, e.g. 22-6.
	return hour >= w.StartHour || hour < w.EndHour
}

// Scheduler augments base decisions with calendar overrides.
type Scheduler struct {
	logger  *slog.Logger
	enabled bool
	windows []Window

	mu              sync.Mutex
	maintenance     *maintenanceSchedule
	lastMaintenance time.Time
}

// New creates a scheduler. maintenanceSpec is a standard cron expression
// ("" disables maintenance); tz is the IANA zone the spec is evaluated in.
func New(
	logger *slog.Logger,
	enabled bool,
	windows []Window,
	maintenanceSpec string,
	tz string,
	now time.Time,
) (*Scheduler, error) {
	s := &Scheduler{
		logger:          logger,
		enabled:         enabled,
		windows:         windows,
		lastMaintenance: now,
	}

	if maintenanceSpec != "" {
		schedule, err := parseMaintenanceSchedule(maintenanceSpec, tz)
		if err != nil {
			return nil, err
		}

		s.maintenance = schedule
	}

	return s, nil
}

// Augment applies the calendar overrides to the base action set. Peak
// windows replace the action of a listed, not-Healthy component with Start;
// a due maintenance occurrence appends one Maintain side action. Disabled
// schedulers return the base set untouched.
func (s *Scheduler) Augment(
	now time.Time,
	components []registry.Component,
	base []decision.Action,
) []decision.Action {
	if !s.enabled {
		return base
	}

	actions := slices.Clone(base)

	forced := s.peakComponents(now)
	if len(forced) > 0 {
		statusByName := make(map[string]registry.Status, len(components))
		for i := range components {
			statusByName[components[i].Name] = components[i].Status
		}

		for i := range actions {
			action := &actions[i]
			if action.Op == decision.OpStart {
				continue
			}

			if _, ok := forced[action.Component]; !ok {
				continue
			}

			if statusByName[action.Component] == registry.StatusHealthy {
				continue
			}

			s.logger.Info("peak window override",
				"component", action.Component,
				"baseOp", string(action.Op),
			)

			action.Op = decision.OpStart
			action.Reason = decision.ReasonPeakWindow
		}
	}

	if s.maintenanceDue(now) {
		actions = append(actions, decision.Action{
			Op:     decision.OpMaintain,
			Reason: decision.ReasonMaintenanceWindow,
		})
	}

	return actions
}

// peakComponents collects the component names forced by windows covering now.
func (s *Scheduler) peakComponents(now time.Time) map[string]struct{} {
	var forced map[string]struct{}

	for _, w := range s.windows {
		if !w.Contains(now) {
			continue
		}

		if forced == nil {
			forced = make(map[string]struct{})
		}

		for _, name := range w.Components {
			forced[name] = struct{}{}
		}
	}

	return forced
}

// maintenanceDue reports whether a maintenance occurrence has passed since
// the last emitted one. At most one Maintain action per occurrence.
func (s *Scheduler) maintenanceDue(now time.Time) bool {
	if s.maintenance == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.maintenance.NextAfter(s.lastMaintenance)
	if next.After(now) {
		return false
	}

	s.lastMaintenance = now

	return true
}
