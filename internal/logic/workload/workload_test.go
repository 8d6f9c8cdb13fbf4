package workload_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetloop/orchestrator/internal/logic/workload"
)

var errSourceDown = errors.New("source down")

type fakeStore struct {
	counts workload.WorkCounts
	err    error
}

func (f *fakeStore) PendingWorkQuery(_ context.Context) (workload.WorkCounts, error) {
	return f.counts, f.err
}

type fakeTasks struct {
	active int
	err    error
}

func (f *fakeTasks) ActiveTasksQuery(_ context.Context) (int, error) {
	return f.active, f.err
}

type fakeLoad struct {
	load float64
	err  error
}

func (f *fakeLoad) LoadQuery(_ context.Context) (float64, error) {
	return f.load, f.err
}

func newAnalyzer(store *fakeStore, tasks *fakeTasks, load *fakeLoad) *workload.Analyzer {
	return workload.New(slog.Default(), store, tasks, load, time.Second)
}

func TestAnalyze_AllSourcesHealthy(t *testing.T) {
	t.Parallel()

	analyzer := newAnalyzer(
		&fakeStore{counts: workload.WorkCounts{Pending: 12, Critical: 2}},
		&fakeTasks{active: 4},
		&fakeLoad{load: 1.7},
	)

	snap := analyzer.Analyze(t.Context())

	require.Equal(t, 12, snap.PendingWorkItems)
	require.Equal(t, 2, snap.CriticalWorkItems)
	require.Equal(t, 4, snap.ActiveWorkerTasks)
	require.InEpsilon(t, 1.7, snap.CoordinationLoad, 1e-9)
	require.Empty(t, snap.Degraded)
	require.False(t, snap.Timestamp.IsZero())
}

func TestAnalyze_WorkStoreFailureDegrades(t *testing.T) {
	t.Parallel()

	analyzer := newAnalyzer(
		&fakeStore{err: errSourceDown},
		&fakeTasks{active: 4},
		&fakeLoad{load: 1.7},
	)

	snap := analyzer.Analyze(t.Context())

	require.Zero(t, snap.PendingWorkItems)
	require.Zero(t, snap.CriticalWorkItems)
	require.Equal(t, 4, snap.ActiveWorkerTasks)
	require.Equal(t, []string{workload.SourceWorkStore}, snap.Degraded)
}

func TestAnalyze_AllSourcesFailStillReturns(t *testing.T) {
	t.Parallel()

	analyzer := newAnalyzer(
		&fakeStore{err: errSourceDown},
		&fakeTasks{err: errSourceDown},
		&fakeLoad{err: errSourceDown},
	)

	snap := analyzer.Analyze(t.Context())

	require.Zero(t, snap.PendingWorkItems)
	require.Zero(t, snap.ActiveWorkerTasks)
	require.Zero(t, snap.CoordinationLoad)
	require.Equal(t,
		[]string{workload.SourceWorkStore, workload.SourceTaskRegistry, workload.SourceCoordinationLoad},
		snap.Degraded,
	)
}

func TestAnalyze_ClampsCriticalToPending(t *testing.T) {
	t.Parallel()

	analyzer := newAnalyzer(
		&fakeStore{counts: workload.WorkCounts{Pending: 3, Critical: 9}},
		&fakeTasks{},
		&fakeLoad{},
	)

	snap := analyzer.Analyze(t.Context())

	require.Equal(t, 3, snap.PendingWorkItems)
	require.Equal(t, 3, snap.CriticalWorkItems)
}
