package procdriver_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetloop/orchestrator/internal/adapters/outbound/procdriver"
)

func newDriver(targets map[string]procdriver.Target) *procdriver.Driver {
	return procdriver.New(slog.Default(), targets)
}

func TestProbe_HTTPHealthy(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"load": 0.42}`)
	}))
	t.Cleanup(server.Close)

	driver := newDriver(map[string]procdriver.Target{
		"dashboard": {ProbeURL: server.URL},
	})

	require.NoError(t, driver.Probe(context.Background(), "dashboard"))

	load, err := driver.LoadHint(context.Background(), "dashboard")
	require.NoError(t, err)
	require.InDelta(t, 0.42, load, 0.0001)
}

func TestProbe_HTTPRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	driver := newDriver(map[string]procdriver.Target{
		"dashboard": {ProbeURL: server.URL},
	})

	require.ErrorIs(t, driver.Probe(context.Background(), "dashboard"), procdriver.ErrProbeRejected)
}

func TestProbe_HTTPNonJSONBodyKeepsPreviousHint(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "OK")
	}))
	t.Cleanup(server.Close)

	driver := newDriver(map[string]procdriver.Target{
		"worker": {ProbeURL: server.URL},
	})

	require.NoError(t, driver.Probe(context.Background(), "worker"))

	load, err := driver.LoadHint(context.Background(), "worker")
	require.NoError(t, err)
	require.Zero(t, load)
}

func TestProbe_PIDFile(t *testing.T) {
	t.Parallel()

	pidFile := filepath.Join(t.TempDir(), "worker.pid")
	require.NoError(t, os.WriteFile(pidFile, fmt.Appendf(nil, "%d\n", os.Getpid()), 0o644))

	driver := newDriver(map[string]procdriver.Target{
		"worker": {PIDFile: pidFile},
	})

	require.NoError(t, driver.Probe(context.Background(), "worker"))
}

func TestProbe_PIDFileDeadProcess(t *testing.T) {
	t.Parallel()

	pidFile := filepath.Join(t.TempDir(), "worker.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("999999999\n"), 0o644))

	driver := newDriver(map[string]procdriver.Target{
		"worker": {PIDFile: pidFile},
	})

	require.ErrorIs(t, driver.Probe(context.Background(), "worker"), procdriver.ErrProcessDead)
}

func TestProbe_NoMethodConfigured(t *testing.T) {
	t.Parallel()

	driver := newDriver(map[string]procdriver.Target{"worker": {}})

	require.ErrorIs(t, driver.Probe(context.Background(), "worker"), procdriver.ErrNoProbeMethod)
}

func TestProbe_UnknownComponent(t *testing.T) {
	t.Parallel()

	driver := newDriver(nil)

	require.ErrorIs(t, driver.Probe(context.Background(), "ghost"), procdriver.ErrTargetUnknown)
}

func TestStart_RunsCommand(t *testing.T) {
	t.Parallel()

	marker := filepath.Join(t.TempDir(), "started")

	driver := newDriver(map[string]procdriver.Target{
		"worker": {StartCommand: []string{"/bin/sh", "-c", "touch " + marker}},
	})

	require.NoError(t, driver.Start(context.Background(), "worker"))

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)

		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStart_NoCommand(t *testing.T) {
	t.Parallel()

	driver := newDriver(map[string]procdriver.Target{"worker": {}})

	require.ErrorIs(t, driver.Start(context.Background(), "worker"), procdriver.ErrNoStartCommand)
}

func TestStop_ByCommand(t *testing.T) {
	t.Parallel()

	driver := newDriver(map[string]procdriver.Target{
		"worker": {StopCommand: []string{"/bin/true"}},
	})

	require.NoError(t, driver.Stop(context.Background(), "worker"))
}

func TestStop_CommandFailure(t *testing.T) {
	t.Parallel()

	driver := newDriver(map[string]procdriver.Target{
		"worker": {StopCommand: []string{"/bin/false"}},
	})

	require.Error(t, driver.Stop(context.Background(), "worker"))
}

func TestStop_MissingPIDFileIsSuccess(t *testing.T) {
	t.Parallel()

	driver := newDriver(map[string]procdriver.Target{
		"worker": {PIDFile: filepath.Join(t.TempDir(), "absent.pid")},
	})

	require.NoError(t, driver.Stop(context.Background(), "worker"))
}

func TestStop_DeadProcessIsSuccess(t *testing.T) {
	t.Parallel()

	pidFile := filepath.Join(t.TempDir(), "worker.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("999999999\n"), 0o644))

	driver := newDriver(map[string]procdriver.Target{
		"worker": {PIDFile: pidFile},
	})

	require.NoError(t, driver.Stop(context.Background(), "worker"))
}

func TestStop_NoMethodConfigured(t *testing.T) {
	t.Parallel()

	driver := newDriver(map[string]procdriver.Target{"worker": {}})

	require.ErrorIs(t, driver.Stop(context.Background(), "worker"), procdriver.ErrNoStopMethod)
}
