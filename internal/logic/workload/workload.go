// Package workload captures one demand snapshot per cycle from the
// coordination server's work-item and worker-task telemetry. Every source
// is queried defensively: a failing source degrades its field to zero with
// a logged warning so the decision engine can still act on whatever
// information remains.
package workload

import (
	"context"
	"log/slog"
	"time"
)

// Source names reported in Snapshot.Degraded.
const (
	SourceWorkStore        = "work-store"
	SourceTaskRegistry     = "task-registry"
	SourceCoordinationLoad = "coordination-load"
)

// Snapshot is the immutable workload value captured once per cycle.
// Invariant: CriticalWorkItems <= PendingWorkItems.
type Snapshot struct {
	PendingWorkItems  int       `json:"pendingWorkItems"`
	CriticalWorkItems int       `json:"criticalWorkItems"`
	ActiveWorkerTasks int       `json:"activeWorkerTasks"`
	CoordinationLoad  float64   `json:"coordinationLoad"`
	Timestamp         time.Time `json:"timestamp"`

	// Degraded names the sources whose query failed this cycle.
	Degraded []string `json:"degraded,omitempty"`
}

// WorkCounts is the work-item store's answer.
type WorkCounts struct {
	Pending  int
	Critical int
}

// WorkStore is the port to the queued work-item store.
type WorkStore interface {
	PendingWorkQuery(ctx context.Context) (WorkCounts, error)
}

// TaskRegistry is the port to the worker-task registry.
type TaskRegistry interface {
	ActiveTasksQuery(ctx context.Context) (int, error)
}

// LoadReporter is the port to the coordination server's own load telemetry.
type LoadReporter interface {
	LoadQuery(ctx context.Context) (float64, error)
}

// Analyzer gathers one Snapshot per cycle.
type Analyzer struct {
	logger       *slog.Logger
	store        WorkStore
	tasks        TaskRegistry
	load         LoadReporter
	queryTimeout time.Duration
}

// New creates an analyzer. Each source query gets its own queryTimeout so
// one stalled source cannot stall the whole cycle.
func New(
	logger *slog.Logger,
	store WorkStore,
	tasks TaskRegistry,
	load LoadReporter,
	queryTimeout time.Duration,
) *Analyzer {
	return &Analyzer{
		logger:       logger,
		store:        store,
		tasks:        tasks,
		load:         load,
		queryTimeout: queryTimeout,
	}
}

// Analyze captures a snapshot. It never fails: unavailable sources yield
// zero fields and are listed in Snapshot.Degraded.
func (a *Analyzer) Analyze(ctx context.Context) Snapshot {
	snapshot := Snapshot{Timestamp: time.Now()}

	counts, err := a.queryWork(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "work-item store unavailable, degrading snapshot", "reason", err)

		snapshot.Degraded = append(snapshot.Degraded, SourceWorkStore)
	} else {
		snapshot.PendingWorkItems = counts.Pending
		snapshot.CriticalWorkItems = counts.Critical
	}

	active, err := a.queryTasks(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "worker-task registry unavailable, degrading snapshot", "reason", err)

		snapshot.Degraded = append(snapshot.Degraded, SourceTaskRegistry)
	} else {
		snapshot.ActiveWorkerTasks = active
	}

	load, err := a.queryLoad(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "coordination load unavailable, degrading snapshot", "reason", err)

		snapshot.Degraded = append(snapshot.Degraded, SourceCoordinationLoad)
	} else {
		snapshot.CoordinationLoad = load
	}

	// A source may report more critical than pending items during a race;
	// clamp to keep the snapshot invariant.
	if snapshot.CriticalWorkItems > snapshot.PendingWorkItems {
		snapshot.CriticalWorkItems = snapshot.PendingWorkItems
	}

	return snapshot
}

func (a *Analyzer) queryWork(ctx context.Context) (WorkCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	return a.store.PendingWorkQuery(ctx)
}

func (a *Analyzer) queryTasks(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	return a.tasks.ActiveTasksQuery(ctx)
}

func (a *Analyzer) queryLoad(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	return a.load.LoadQuery(ctx)
}
