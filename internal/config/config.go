package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when neither the config file nor env provides one.
const (
	defaultInterval       = 30 * time.Second
	defaultProbeTimeout   = 5 * time.Second
	defaultPostStartGrace = 5 * time.Second
	defaultSampleTimeout  = 2 * time.Second
	defaultQueryTimeout   = 3 * time.Second

	defaultLogLevel  = "info"
	defaultLogFormat = "json"

	defaultHTTPPort    = "8640"
	defaultMetricsPort = "9640"

	defaultPIDFile   = "/var/run/orchestrator/orchestrator.pid"
	defaultStateFile = "/var/run/orchestrator/orchestrator.state.json"

	defaultCoordinationURL = "http://127.0.0.1:5005"

	defaultHighDashboardThreshold = 5
	defaultHighWorkerThreshold    = 10
	defaultInferenceThreshold     = 20
	defaultCPUShedPercent         = 80.0

	defaultMaintenanceRetention = 14 * 24 * time.Hour
)

// Config is the resolved orchestrator configuration.
type Config struct {
	Interval       time.Duration
	ProbeTimeout   time.Duration
	PostStartGrace time.Duration
	SampleTimeout  time.Duration
	QueryTimeout   time.Duration

	LogLevel  string
	LogFormat string

	HTTPPort    string
	MetricsPort string

	PIDFile   string
	StateFile string

	CoordinationURL string

	// Kube client settings, used only when a component declares the kube
	// driver. Empty KubeConfig means in-cluster configuration.
	KubeConfig string
	KubeMaster string

	Decision    Decision
	Scheduler   Scheduler
	Maintenance Maintenance
	Components  []Component
}

// Decision holds the threshold knobs of the decision engine.
type Decision struct {
	HighDashboardThreshold int
	HighWorkerThreshold    int
	InferenceThreshold     int
	CPUShedPercent         float64
}

// Scheduler configures the predictive scheduler. An empty Windows list with
// an empty MaintenanceSchedule disables the layer entirely.
type Scheduler struct {
	Enabled             bool
	Timezone            string
	Windows             []Window
	MaintenanceSchedule string
}

// Window is one calendar window during which the listed components are
// force-started. Weekdays is empty for "every day"; hours are [Start, End).
type Window struct {
	Weekdays   []time.Weekday
	StartHour  int
	EndHour    int
	Components []string
}

// Maintenance configures what the RunMaintenance side action prunes.
type Maintenance struct {
	Dirs      []string
	Retention time.Duration
}

// Component declares one managed component of the fleet.
type Component struct {
	Name         string
	Capabilities []string
	Driver       string // "process" (default) or "kube"

	// Process driver settings.
	StartCommand []string
	StopCommand  []string
	ProbeURL     string
	PIDFile      string

	// Kube driver settings.
	Kube KubeTarget
}

// KubeTarget identifies the Deployment backing a kube-driven component.
type KubeTarget struct {
	Namespace   string
	Deployment  string
	PodSelector string
}

// Load resolves configuration in order: defaults, YAML file (path argument,
// falling back to ORCH_CONFIG), then ORCH_* env overrides. Intervals and
// timeouts are clamped to their documented minimums.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Interval:        defaultInterval,
		ProbeTimeout:    defaultProbeTimeout,
		PostStartGrace:  defaultPostStartGrace,
		SampleTimeout:   defaultSampleTimeout,
		QueryTimeout:    defaultQueryTimeout,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
		HTTPPort:        defaultHTTPPort,
		MetricsPort:     defaultMetricsPort,
		PIDFile:         defaultPIDFile,
		StateFile:       defaultStateFile,
		CoordinationURL: defaultCoordinationURL,
		Decision: Decision{
			HighDashboardThreshold: defaultHighDashboardThreshold,
			HighWorkerThreshold:    defaultHighWorkerThreshold,
			InferenceThreshold:     defaultInferenceThreshold,
			CPUShedPercent:         defaultCPUShedPercent,
		},
		Scheduler: Scheduler{
			Enabled:  true,
			Timezone: "UTC",
		},
		Maintenance: Maintenance{
			Retention: defaultMaintenanceRetention,
		},
	}

	if path == "" {
		path = os.Getenv(envKeyConfig)
	}

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	clamp(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return raw.apply(cfg)
}

func applyEnv(cfg *Config) error {
	cfg.LogLevel = getEnvOrDefault(envKeyLogLevel, cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault(envKeyLogFormat, cfg.LogFormat)
	cfg.HTTPPort = getEnvOrDefault(envKeyHTTPPort, cfg.HTTPPort)
	cfg.MetricsPort = getEnvOrDefault(envKeyMetricsPort, cfg.MetricsPort)
	cfg.PIDFile = getEnvOrDefault(envKeyPIDFile, cfg.PIDFile)
	cfg.StateFile = getEnvOrDefault(envKeyStateFile, cfg.StateFile)
	cfg.CoordinationURL = getEnvOrDefault(envKeyCoordinationURL, cfg.CoordinationURL)
	cfg.KubeConfig = getEnvOrDefault(envKeyKubeConfig, cfg.KubeConfig)
	cfg.KubeMaster = getEnvOrDefault(envKeyKubeMaster, cfg.KubeMaster)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{envKeyInterval, &cfg.Interval},
		{envKeyProbeTimeout, &cfg.ProbeTimeout},
		{envKeyPostStartGrace, &cfg.PostStartGrace},
		{envKeySampleTimeout, &cfg.SampleTimeout},
		{envKeyQueryTimeout, &cfg.QueryTimeout},
	}

	for _, d := range durations {
		value := os.Getenv(d.key)
		if value == "" {
			continue
		}

		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}

		*d.dst = parsed
	}

	return nil
}

func clamp(cfg *Config) {
	if cfg.Interval < envMinInterval {
		cfg.Interval = envMinInterval
	}

	if cfg.ProbeTimeout < envMinProbeTimeout {
		cfg.ProbeTimeout = envMinProbeTimeout
	}

	if cfg.PostStartGrace < envMinPostStartGrace {
		cfg.PostStartGrace = envMinPostStartGrace
	}

	// The sampler must never block a cycle; this bound is a maximum.
	if cfg.SampleTimeout > envMaxSampleTimeout || cfg.SampleTimeout <= 0 {
		cfg.SampleTimeout = envMaxSampleTimeout
	}

	if cfg.QueryTimeout < envMinQueryTimeout {
		cfg.QueryTimeout = envMinQueryTimeout
	}
}

func validate(cfg *Config) error {
	seen := make(map[string]struct{}, len(cfg.Components))

	for i := range cfg.Components {
		comp := &cfg.Components[i]
		if comp.Name == "" {
			return fmt.Errorf("component %d: %w", i, ErrComponentNameEmpty)
		}

		if _, dup := seen[comp.Name]; dup {
			return fmt.Errorf("component %s: %w", comp.Name, ErrComponentNameDuplicate)
		}

		seen[comp.Name] = struct{}{}

		switch comp.Driver {
		case "", "process":
			comp.Driver = "process"
		case "kube":
			if comp.Kube.Deployment == "" {
				return fmt.Errorf("component %s: %w", comp.Name, ErrKubeDeploymentEmpty)
			}
		default:
			return fmt.Errorf("component %s: driver %q: %w", comp.Name, comp.Driver, ErrDriverUnknown)
		}
	}

	for _, w := range cfg.Scheduler.Windows {
		if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 24 {
			return fmt.Errorf("window %d-%d: %w", w.StartHour, w.EndHour, ErrWindowHoursInvalid)
		}
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}
