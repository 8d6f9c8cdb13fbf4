// Package decision holds the pure rule engine: given a registry snapshot, a
// workload snapshot, a resource sample and the current time, it produces one
// lifecycle action per component. It performs no I/O and keeps no state, so
// identical inputs always yield identical output.
package decision

import (
	"time"

	"github.com/fleetloop/orchestrator/internal/infra/resources"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
	"github.com/fleetloop/orchestrator/internal/logic/workload"
)

// Op is a lifecycle operation on one component.
type Op string

const (
	OpStart    Op = "start"
	OpStop     Op = "stop"
	OpNoOp     Op = "noop"
	OpMaintain Op = "maintain"
)

// Action is one decided instruction. Actions are transient: produced by the
// engine, consumed by the lifecycle manager within the same cycle.
// OpMaintain is a side action and carries no component.
type Action struct {
	Component string `json:"component,omitempty"`
	Op        Op     `json:"op"`
	Reason    string `json:"reason"`
}

// Decision reasons. The engine never emits OpStop: shutdown is
// operator-driven, not automatic, to avoid oscillation without hysteresis.
const (
	ReasonDemandUnhealthyCore = "demand-with-unhealthy-core"
	ReasonHighDashboardDemand = "high-dashboard-demand"
	ReasonHighWorkerDemand    = "high-worker-demand"
	ReasonWorkerSupervision   = "worker-running-without-supervisor"
	ReasonInferenceDemand     = "inference-demand"
	ReasonNoTrigger           = "no trigger condition met"
	ReasonPeakWindow          = "peak-window-override"
	ReasonMaintenanceWindow   = "maintenance-window"
)

// Thresholds are the demand knobs of the rule set.
type Thresholds struct {
	HighDashboard  int
	HighWorker     int
	Inference      int
	CPUShedPercent float64
}

// Engine evaluates the fixed-order rule set.
type Engine struct {
	thresholds Thresholds
}

// New creates an engine with the given thresholds.
func New(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// Decide returns one action per component, in registry order, plus the
// names of components that are candidates for load-shedding under resource
// pressure. Shed candidates are advisory only: the caller logs them, no
// rule stops a component on resource pressure alone.
func (e *Engine) Decide(
	components []registry.Component,
	snap workload.Snapshot,
	sample resources.Sample,
	_ time.Time,
) ([]Action, []string) {
	workerHealthy := capabilityHealthy(components, registry.CapabilityWorker)

	actions := make([]Action, 0, len(components))
	for i := range components {
		actions = append(actions, e.decideComponent(&components[i], snap, workerHealthy))
	}

	return actions, e.shedCandidates(components, sample)
}

// decideComponent applies the rules in fixed order; the first matching rule
// determines the component's action.
func (e *Engine) decideComponent(
	comp *registry.Component,
	snap workload.Snapshot,
	workerHealthy bool,
) Action {
	healthy := comp.Status == registry.StatusHealthy

	// Rule 1: any demand requires a healthy coordination core.
	if comp.HasCapability(registry.CapabilityCoordination) && !healthy {
		if snap.PendingWorkItems > 0 || snap.ActiveWorkerTasks > 0 {
			return Action{Component: comp.Name, Op: OpStart, Reason: ReasonDemandUnhealthyCore}
		}
	}

	// Rule 2: visible backlog or any critical item wants the dashboard up.
	if comp.HasCapability(registry.CapabilityDashboard) && !healthy {
		if snap.PendingWorkItems > e.thresholds.HighDashboard || snap.CriticalWorkItems > 0 {
			return Action{Component: comp.Name, Op: OpStart, Reason: ReasonHighDashboardDemand}
		}
	}

	// Rule 3: deep backlog or multiple critical items want workers.
	if comp.HasCapability(registry.CapabilityWorker) && !healthy {
		if snap.PendingWorkItems > e.thresholds.HighWorker || snap.CriticalWorkItems > 1 {
			return Action{Component: comp.Name, Op: OpStart, Reason: ReasonHighWorkerDemand}
		}
	}

	// Rule 4: a running worker implies its supervisor should run too.
	if comp.HasCapability(registry.CapabilityLifecycleMonitor) && !healthy && workerHealthy {
		return Action{Component: comp.Name, Op: OpStart, Reason: ReasonWorkerSupervision}
	}

	// Rule 5: projected workload requires inference.
	if comp.HasCapability(registry.CapabilityInference) && !healthy {
		if snap.CriticalWorkItems > 0 || snap.PendingWorkItems > e.thresholds.Inference {
			return Action{Component: comp.Name, Op: OpStart, Reason: ReasonInferenceDemand}
		}
	}

	return Action{Component: comp.Name, Op: OpNoOp, Reason: ReasonNoTrigger}
}

// shedCandidates lists healthy non-coordination components when CPU exceeds
// the shed threshold. Skipped entirely on the unavailable sentinel: no
// resource reading means no resource-pressure opinions this cycle.
func (e *Engine) shedCandidates(components []registry.Component, sample resources.Sample) []string {
	if sample.Unavailable || sample.CPUPercent <= e.thresholds.CPUShedPercent {
		return nil
	}

	var candidates []string

	for i := range components {
		comp := &components[i]
		if comp.Status != registry.StatusHealthy {
			continue
		}

		if comp.HasCapability(registry.CapabilityCoordination) {
			continue
		}

		candidates = append(candidates, comp.Name)
	}

	return candidates
}

func capabilityHealthy(components []registry.Component, capability registry.Capability) bool {
	for i := range components {
		if components[i].HasCapability(capability) && components[i].Status == registry.StatusHealthy {
			return true
		}
	}

	return false
}
