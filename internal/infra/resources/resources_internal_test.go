package resources

import (
	"testing"
	"time"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/require"
)

func TestUnavailableSentinel(t *testing.T) {
	t.Parallel()

	now := time.Now()
	sample := Unavailable(now)

	require.True(t, sample.Unavailable)
	require.Equal(t, now, sample.Timestamp)
	require.Zero(t, sample.CPUPercent)
	require.Zero(t, sample.MemoryPercent)
	require.Zero(t, sample.DiskPercent)
}

func TestClampPercent(t *testing.T) {
	t.Parallel()

	require.InEpsilon(t, 42.0, clampPercent(42), 1e-9)
	require.Zero(t, clampPercent(-3))
	require.InEpsilon(t, 100.0, clampPercent(101.7), 1e-9)
}

func TestCPUBusyPercent(t *testing.T) {
	t.Parallel()

	prev := procfs.CPUStat{User: 100, System: 50, Idle: 850}
	cur := procfs.CPUStat{User: 130, System: 60, Idle: 910}

	// 40 busy out of 100 total delta.
	require.InEpsilon(t, 40.0, cpuBusyPercent(prev, cur), 1e-9)
}

func TestCPUBusyPercent_NoDelta(t *testing.T) {
	t.Parallel()

	stat := procfs.CPUStat{User: 100, Idle: 900}

	require.Zero(t, cpuBusyPercent(stat, stat))
}

func TestCPUBusyPercent_IowaitCountsAsIdle(t *testing.T) {
	t.Parallel()

	prev := procfs.CPUStat{User: 100, Idle: 800, Iowait: 100}
	cur := procfs.CPUStat{User: 120, Idle: 840, Iowait: 140}

	// 20 busy out of 100 total delta.
	require.InEpsilon(t, 20.0, cpuBusyPercent(prev, cur), 1e-9)
}

func TestMemoryUsedPercent(t *testing.T) {
	t.Parallel()

	require.InEpsilon(t, 75.0, memoryUsedPercent(1000, 250), 1e-9)
	require.Zero(t, memoryUsedPercent(0, 0))
}

func TestDiskUsedPercent(t *testing.T) {
	t.Parallel()

	// 600 used, 300 available to users: 600/900.
	require.InEpsilon(t, 100.0*600/900, diskUsedPercent(1000, 400, 300), 1e-9)
	require.Zero(t, diskUsedPercent(0, 0, 0))
}
