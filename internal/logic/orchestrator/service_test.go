package orchestrator_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetloop/orchestrator/internal/infra/resources"
	"github.com/fleetloop/orchestrator/internal/logic/decision"
	"github.com/fleetloop/orchestrator/internal/logic/lifecycle"
	"github.com/fleetloop/orchestrator/internal/logic/orchestrator"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
	"github.com/fleetloop/orchestrator/internal/logic/workload"
)

// recorder tracks pipeline stage invocations in order.
type recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *recorder) add(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps = append(r.steps, step)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]string, len(r.steps))
	copy(result, r.steps)

	return result
}

type fakeProber struct{ rec *recorder }

func (p *fakeProber) ProbeAll(_ context.Context) {
	p.rec.add("probe")
}

type fakeAnalyzer struct {
	rec  *recorder
	snap workload.Snapshot
}

func (a *fakeAnalyzer) Analyze(_ context.Context) workload.Snapshot {
	a.rec.add("analyze")

	return a.snap
}

type fakeSampler struct {
	rec    *recorder
	sample resources.Sample
}

func (s *fakeSampler) Sample(_ context.Context) resources.Sample {
	s.rec.add("sample")

	return s.sample
}

type fakeDecider struct {
	rec     *recorder
	actions []decision.Action
	panics  bool
}

func (d *fakeDecider) Decide(
	_ []registry.Component,
	_ workload.Snapshot,
	_ resources.Sample,
	_ time.Time,
) ([]decision.Action, []string) {
	d.rec.add("decide")

	if d.panics {
		panic("rule evaluation exploded")
	}

	return d.actions, nil
}

type fakeAugmenter struct {
	rec   *recorder
	extra []decision.Action
}

func (a *fakeAugmenter) Augment(
	_ time.Time,
	_ []registry.Component,
	base []decision.Action,
) []decision.Action {
	a.rec.add("augment")

	return append(base, a.extra...)
}

type fakeApplier struct {
	rec     *recorder
	mu      sync.Mutex
	applied []decision.Action
	err     error
}

func (a *fakeApplier) Apply(_ context.Context, action decision.Action) (lifecycle.Result, error) {
	a.rec.add("apply")

	a.mu.Lock()
	defer a.mu.Unlock()

	a.applied = append(a.applied, action)

	return lifecycle.Result{Started: action.Op == decision.OpStart}, a.err
}

func (a *fakeApplier) all() []decision.Action {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := make([]decision.Action, len(a.applied))
	copy(result, a.applied)

	return result
}

type fixture struct {
	service  *orchestrator.Service
	rec      *recorder
	applier  *fakeApplier
	decider  *fakeDecider
	registry *registry.Registry
}

func newFixture(t *testing.T, stateFile string, actions []decision.Action) *fixture {
	t.Helper()

	rec := &recorder{}
	reg := registry.New([]registry.Component{{Name: "worker"}})
	applier := &fakeApplier{rec: rec}
	decider := &fakeDecider{rec: rec, actions: actions}

	service := orchestrator.New(
		slog.Default(),
		reg,
		&fakeProber{rec: rec},
		&fakeAnalyzer{rec: rec},
		&fakeSampler{rec: rec},
		decider,
		&fakeAugmenter{rec: rec},
		applier,
		time.Hour,
		stateFile,
	)

	return &fixture{service: service, rec: rec, applier: applier, decider: decider, registry: reg}
}

func TestCycleCommand_PipelineOrder(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, "", []decision.Action{
		{Component: "worker", Op: decision.OpStart, Reason: "test"},
	})

	fix.service.CycleCommand(context.Background())

	require.Equal(t, []string{"sample", "probe", "analyze", "decide", "augment", "apply"}, fix.rec.all())
	require.Equal(t, uint64(1), fix.service.CycleCount())

	report, ok := fix.service.LastCycle()
	require.True(t, ok)
	require.NotEmpty(t, report.ID)
	require.Len(t, report.Actions, 1)
}

func TestCycleCommand_NoOpActionsNotApplied(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, "", []decision.Action{
		{Component: "worker", Op: decision.OpNoOp, Reason: "no trigger condition met"},
	})

	fix.service.CycleCommand(context.Background())

	require.Empty(t, fix.applier.all())
}

func TestCycleCommand_PanicContained(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, "", nil)
	fix.decider.panics = true

	require.NotPanics(t, func() {
		fix.service.CycleCommand(context.Background())
	})

	// The aborted cycle is not counted; the next healthy one is.
	require.Zero(t, fix.service.CycleCount())

	fix.decider.panics = false
	fix.service.CycleCommand(context.Background())
	require.Equal(t, uint64(1), fix.service.CycleCount())
}

func TestCycleCommand_StatePersistedAndRestored(t *testing.T) {
	t.Parallel()

	stateFile := filepath.Join(t.TempDir(), "state.json")

	fix := newFixture(t, stateFile, []decision.Action{
		{Component: "worker", Op: decision.OpStart, Reason: "test"},
	})

	fix.service.CycleCommand(context.Background())
	fix.service.CycleCommand(context.Background())

	require.FileExists(t, stateFile)

	// A fresh service over the same file resumes the counter.
	restored := newFixture(t, stateFile, nil)
	require.Equal(t, uint64(2), restored.service.CycleCount())

	report, ok := restored.service.LastCycle()
	require.True(t, ok)
	require.Len(t, report.Actions, 1)
}

func TestRunCommand_ShutdownFinishesInFlightCycle(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, "", nil)

	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, fix.service.Start(ctx))

	select {
	case <-fix.service.Ready():
	case <-time.After(time.Second):
		t.Fatal("loop never became ready")
	}

	// Let the first cycle finish, then stop.
	require.Eventually(t, func() bool {
		return fix.service.CycleCount() >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()

	require.NoError(t, fix.service.Shutdown(shutdownCtx))
}

func TestPing(t *testing.T) {
	t.Parallel()

	fix := newFixture(t, "", nil)

	// Not ready before the loop starts.
	require.Error(t, fix.service.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, fix.service.Start(ctx))

	select {
	case <-fix.service.Ready():
	case <-time.After(time.Second):
		t.Fatal("loop never became ready")
	}

	require.Eventually(t, func() bool {
		return fix.service.Ping(context.Background()) == nil
	}, time.Second, 5*time.Millisecond)
}
