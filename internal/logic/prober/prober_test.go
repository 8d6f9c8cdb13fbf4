package prober_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetloop/orchestrator/internal/logic/prober"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
)

var errProbeRefused = errors.New("connection refused")

type fakeDriver struct {
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (d *fakeDriver) Probe(ctx context.Context, _ string) error {
	d.calls.Add(1)

	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return d.err
}

type hintingDriver struct {
	fakeDriver
	load    float64
	hintErr error
}

func (d *hintingDriver) LoadHint(_ context.Context, _ string) (float64, error) {
	return d.load, d.hintErr
}

func newRegistry(t *testing.T, names ...string) *registry.Registry {
	t.Helper()

	components := make([]registry.Component, 0, len(names))
	for _, name := range names {
		components = append(components, registry.Component{Name: name})
	}

	return registry.New(components)
}

func TestRegister_RejectsNilAndDuplicates(t *testing.T) {
	t.Parallel()

	service := prober.New(slog.Default(), newRegistry(t, "worker"), time.Second)

	require.ErrorIs(t, service.Register("worker", nil), prober.ErrDriverNil)
	require.NoError(t, service.Register("worker", &fakeDriver{}))
	require.ErrorIs(t, service.Register("worker", &fakeDriver{}), prober.ErrDriverAlreadyRegistered)
}

func TestProbeAll_ClassifiesHealthyAndUnhealthy(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "coordination", "dashboard")
	service := prober.New(slog.Default(), reg, time.Second)

	require.NoError(t, service.Register("coordination", &fakeDriver{}))
	require.NoError(t, service.Register("dashboard", &fakeDriver{err: errProbeRefused}))

	service.ProbeAll(context.Background())

	coordination, err := reg.Get("coordination")
	require.NoError(t, err)
	require.Equal(t, registry.StatusHealthy, coordination.Status)
	require.False(t, coordination.LastProbe.IsZero())

	dashboard, err := reg.Get("dashboard")
	require.NoError(t, err)
	require.Equal(t, registry.StatusUnhealthy, dashboard.Status)
}

func TestProbeAll_TimeoutMarksUnhealthy(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "inference")
	service := prober.New(slog.Default(), reg, 50*time.Millisecond)

	require.NoError(t, service.Register("inference", &fakeDriver{delay: time.Second}))

	service.ProbeAll(context.Background())

	comp, err := reg.Get("inference")
	require.NoError(t, err)
	require.Equal(t, registry.StatusUnhealthy, comp.Status)
}

func TestProbeAll_SweepBoundedByTimeoutNotComponentCount(t *testing.T) {
	t.Parallel()

	names := []string{"a", "b", "c", "d", "e"}
	reg := newRegistry(t, names...)
	timeout := 100 * time.Millisecond
	service := prober.New(slog.Default(), reg, timeout)

	for _, name := range names {
		require.NoError(t, service.Register(name, &fakeDriver{delay: time.Second}))
	}

	start := time.Now()
	service.ProbeAll(context.Background())
	elapsed := time.Since(start)

	// Five stuck probes run concurrently: one timeout, not five.
	require.Less(t, elapsed, 3*timeout)
}

func TestProbeAll_LoadHintRecorded(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "worker", "inference")
	service := prober.New(slog.Default(), reg, time.Second)

	require.NoError(t, service.Register("worker", &hintingDriver{load: 0.7}))
	require.NoError(t, service.Register("inference", &hintingDriver{hintErr: errProbeRefused}))

	service.ProbeAll(context.Background())

	worker, err := reg.Get("worker")
	require.NoError(t, err)
	require.InDelta(t, 0.7, worker.Load, 0.0001)

	// A failed hint degrades to zero load but keeps the healthy probe.
	inference, err := reg.Get("inference")
	require.NoError(t, err)
	require.Equal(t, registry.StatusHealthy, inference.Status)
	require.Zero(t, inference.Load)
}

func TestGetStats(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "worker")
	service := prober.New(slog.Default(), reg, time.Second)
	driver := &fakeDriver{}

	require.NoError(t, service.Register("worker", driver))

	_, err := service.GetStats("dashboard")
	require.ErrorIs(t, err, prober.ErrComponentUnknown)

	service.ProbeAll(context.Background())

	driver.err = errProbeRefused
	service.ProbeAll(context.Background())

	stats, err := service.GetStats("worker")
	require.NoError(t, err)
	require.False(t, stats.Healthy)
	require.Equal(t, uint64(1), stats.SuccessTotal)
	require.Equal(t, uint64(1), stats.FailureTotal)
	require.Equal(t, errProbeRefused.Error(), stats.LastError)
	require.False(t, stats.LastTransition.IsZero())

	all := service.GetAllStats()
	require.Len(t, all, 1)
	require.Equal(t, stats.FailureTotal, all["worker"].FailureTotal)
}
