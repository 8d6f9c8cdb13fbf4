package config

import "time"

// Env key constants. All orchestrator configuration env vars use the ORCH_
// prefix and override values from the YAML config file; duration values
// require explicit units (e.g. 30s, 5m, 2h).

// Path to the YAML config file. The --config flag takes precedence.
const envKeyConfig = "ORCH_CONFIG"

// Log level: debug, info, warn, error.
const envKeyLogLevel = "ORCH_LOG_LEVEL"

// Log format: json or text.
const envKeyLogFormat = "ORCH_LOG_FORMAT"

// Port for the status/health HTTP server.
const envKeyHTTPPort = "ORCH_HTTP_PORT"

// Port for Prometheus metrics (GET /metrics).
const envKeyMetricsPort = "ORCH_METRICS_PORT"

// Path of the PID file used for the single-instance guarantee.
const envKeyPIDFile = "ORCH_PID_FILE"

// Path of the persisted orchestrator state file.
const envKeyStateFile = "ORCH_STATE_FILE"

// Base URL of the coordination server's telemetry API.
const envKeyCoordinationURL = "ORCH_COORDINATION_URL"

// Path to the kubeconfig file for kube-driven components. Empty means
// in-cluster configuration.
const envKeyKubeConfig = "ORCH_KUBECONFIG"

// URL of the Kubernetes API server. Overrides the kubeconfig value.
const envKeyKubeMaster = "ORCH_KUBE_MASTER"

// Control loop cycle interval. Units: s, m, h (e.g. 30s, 5m).
const (
	envKeyInterval = "ORCH_INTERVAL"
	envMinInterval = 5 * time.Second
)

// Per-component health check timeout. Units: s, m (e.g. 5s).
const (
	envKeyProbeTimeout = "ORCH_PROBE_TIMEOUT"
	envMinProbeTimeout = 500 * time.Millisecond
)

// Grace period between issuing a start command and the verification re-probe.
const (
	envKeyPostStartGrace = "ORCH_POST_START_GRACE"
	envMinPostStartGrace = 500 * time.Millisecond
)

// Upper bound on host resource sampling. Sampling failure yields an
// unavailable sentinel, never a zero reading.
const (
	envKeySampleTimeout = "ORCH_SAMPLE_TIMEOUT"
	envMaxSampleTimeout = 2 * time.Second
)

// Per-source timeout for workload telemetry queries.
const (
	envKeyQueryTimeout = "ORCH_QUERY_TIMEOUT"
	envMinQueryTimeout = 500 * time.Millisecond
)
