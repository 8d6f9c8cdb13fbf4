package orchestrator

import (
	"context"
	"time"

	"github.com/fleetloop/orchestrator/internal/infra/resources"
	"github.com/fleetloop/orchestrator/internal/logic/decision"
	"github.com/fleetloop/orchestrator/internal/logic/lifecycle"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
	"github.com/fleetloop/orchestrator/internal/logic/workload"
)

// Prober sweeps health probes over the fleet and updates the registry.
type Prober interface {
	ProbeAll(ctx context.Context)
}

// Analyzer produces the workload snapshot for one cycle.
type Analyzer interface {
	Analyze(ctx context.Context) workload.Snapshot
}

// Sampler reads host resource usage for one cycle.
type Sampler interface {
	Sample(ctx context.Context) resources.Sample
}

// Decider evaluates the rule set over the cycle's inputs.
type Decider interface {
	Decide(
		components []registry.Component,
		snap workload.Snapshot,
		sample resources.Sample,
		now time.Time,
	) ([]decision.Action, []string)
}

// Augmenter applies calendar overrides to the decided actions.
type Augmenter interface {
	Augment(now time.Time, components []registry.Component, base []decision.Action) []decision.Action
}

// Applier executes one decided action.
type Applier interface {
	Apply(ctx context.Context, action decision.Action) (lifecycle.Result, error)
}
