package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetloop/orchestrator/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, 30*time.Second, cfg.Interval)
	require.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	require.Equal(t, 5*time.Second, cfg.PostStartGrace)
	require.Equal(t, 2*time.Second, cfg.SampleTimeout)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 5, cfg.Decision.HighDashboardThreshold)
	require.Equal(t, 10, cfg.Decision.HighWorkerThreshold)
	require.Equal(t, 20, cfg.Decision.InferenceThreshold)
	require.InEpsilon(t, 80.0, cfg.Decision.CPUShedPercent, 1e-9)
	require.True(t, cfg.Scheduler.Enabled)
	require.Empty(t, cfg.Components)
}

func TestLoad_File(t *testing.T) {
	path := writeConfigFile(t, `
interval: 45s
probe_timeout: 2s
log_level: debug
coordination_url: http://127.0.0.1:6000
decision:
  high_dashboard_threshold: 3
  inference_threshold: 7
scheduler:
  enabled: true
  timezone: Europe/Berlin
  maintenance_schedule: "0 3 * * *"
  windows:
    - weekdays: [mon, tue, wed, thu, fri]
      start_hour: 9
      end_hour: 18
      components: [coordination, dashboard, worker]
maintenance:
  dirs: [/var/log/orchestrator]
  retention: 168h
components:
  - name: coordination
    capabilities: [coordination]
    start_command: ["/opt/fleet/bin/coordination", "start"]
    stop_command: ["/opt/fleet/bin/coordination", "stop"]
    probe_url: http://127.0.0.1:5005/healthz
  - name: worker
    capabilities: [worker]
    driver: kube
    kube:
      namespace: fleet
      deployment: worker
      pod_selector: app=worker
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, 45*time.Second, cfg.Interval)
	require.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "http://127.0.0.1:6000", cfg.CoordinationURL)
	require.Equal(t, 3, cfg.Decision.HighDashboardThreshold)
	require.Equal(t, 7, cfg.Decision.InferenceThreshold)
	// Unset fields keep defaults.
	require.Equal(t, 10, cfg.Decision.HighWorkerThreshold)

	require.Equal(t, "Europe/Berlin", cfg.Scheduler.Timezone)
	require.Equal(t, "0 3 * * *", cfg.Scheduler.MaintenanceSchedule)
	require.Len(t, cfg.Scheduler.Windows, 1)
	require.Equal(t,
		[]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		cfg.Scheduler.Windows[0].Weekdays,
	)
	require.Equal(t, []string{"coordination", "dashboard", "worker"}, cfg.Scheduler.Windows[0].Components)

	require.Equal(t, 168*time.Hour, cfg.Maintenance.Retention)

	require.Len(t, cfg.Components, 2)
	require.Equal(t, "process", cfg.Components[0].Driver)
	require.Equal(t, "kube", cfg.Components[1].Driver)
	require.Equal(t, "fleet", cfg.Components[1].Kube.Namespace)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "interval: 45s\nlog_level: debug\n")

	t.Setenv("ORCH_INTERVAL", "90s")
	t.Setenv("ORCH_LOG_LEVEL", "warn")
	t.Setenv("ORCH_HTTP_PORT", "18640")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, 90*time.Second, cfg.Interval)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, "18640", cfg.HTTPPort)
}

func TestLoad_Clamps(t *testing.T) {
	t.Setenv("ORCH_INTERVAL", "1s")
	t.Setenv("ORCH_PROBE_TIMEOUT", "1ms")
	t.Setenv("ORCH_SAMPLE_TIMEOUT", "10s")

	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, 5*time.Second, cfg.Interval)
	require.Equal(t, 500*time.Millisecond, cfg.ProbeTimeout)
	// The sampler bound is a maximum, not a minimum.
	require.Equal(t, 2*time.Second, cfg.SampleTimeout)
}

func TestLoad_InvalidEnvDuration(t *testing.T) {
	t.Setenv("ORCH_INTERVAL", "soon")

	_, err := config.Load("")
	require.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "duplicate component name",
			content: `
components:
  - name: worker
  - name: worker
`,
			wantErr: config.ErrComponentNameDuplicate,
		},
		{
			name: "empty component name",
			content: `
components:
  - capabilities: [worker]
`,
			wantErr: config.ErrComponentNameEmpty,
		},
		{
			name: "unknown driver",
			content: `
components:
  - name: worker
    driver: warp
`,
			wantErr: config.ErrDriverUnknown,
		},
		{
			name: "kube without deployment",
			content: `
components:
  - name: worker
    driver: kube
`,
			wantErr: config.ErrKubeDeploymentEmpty,
		},
		{
			name: "bad window hours",
			content: `
scheduler:
  windows:
    - start_hour: 9
      end_hour: 25
`,
			wantErr: config.ErrWindowHoursInvalid,
		},
		{
			name: "bad weekday",
			content: `
scheduler:
  windows:
    - weekdays: [someday]
      start_hour: 9
      end_hour: 17
`,
			wantErr: config.ErrWeekdayUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)

			_, err := config.Load(path)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
