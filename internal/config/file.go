package config

import (
	"fmt"
	"strings"
	"time"
)

// fileConfig mirrors the YAML layout. All fields are optional; unset fields
// keep their defaults. Durations are strings with explicit units.
type fileConfig struct {
	Interval       string `yaml:"interval"`
	ProbeTimeout   string `yaml:"probe_timeout"`
	PostStartGrace string `yaml:"post_start_grace"`
	SampleTimeout  string `yaml:"sample_timeout"`
	QueryTimeout   string `yaml:"query_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	HTTPPort    string `yaml:"http_port"`
	MetricsPort string `yaml:"metrics_port"`

	PIDFile   string `yaml:"pid_file"`
	StateFile string `yaml:"state_file"`

	CoordinationURL string `yaml:"coordination_url"`

	KubeConfig string `yaml:"kube_config"`
	KubeMaster string `yaml:"kube_master"`

	Decision *struct {
		HighDashboardThreshold *int     `yaml:"high_dashboard_threshold"`
		HighWorkerThreshold    *int     `yaml:"high_worker_threshold"`
		InferenceThreshold     *int     `yaml:"inference_threshold"`
		CPUShedPercent         *float64 `yaml:"cpu_shed_percent"`
	} `yaml:"decision"`

	Scheduler *struct {
		Enabled  *bool  `yaml:"enabled"`
		Timezone string `yaml:"timezone"`
		Windows  []struct {
			Weekdays   []string `yaml:"weekdays"`
			StartHour  int      `yaml:"start_hour"`
			EndHour    int      `yaml:"end_hour"`
			Components []string `yaml:"components"`
		} `yaml:"windows"`
		MaintenanceSchedule string `yaml:"maintenance_schedule"`
	} `yaml:"scheduler"`

	Maintenance *struct {
		Dirs      []string `yaml:"dirs"`
		Retention string   `yaml:"retention"`
	} `yaml:"maintenance"`

	Components []struct {
		Name         string   `yaml:"name"`
		Capabilities []string `yaml:"capabilities"`
		Driver       string   `yaml:"driver"`
		StartCommand []string `yaml:"start_command"`
		StopCommand  []string `yaml:"stop_command"`
		ProbeURL     string   `yaml:"probe_url"`
		PIDFile      string   `yaml:"pid_file"`
		Kube         struct {
			Namespace   string `yaml:"namespace"`
			Deployment  string `yaml:"deployment"`
			PodSelector string `yaml:"pod_selector"`
		} `yaml:"kube"`
	} `yaml:"components"`
}

func (raw *fileConfig) apply(cfg *Config) error {
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"interval", raw.Interval, &cfg.Interval},
		{"probe_timeout", raw.ProbeTimeout, &cfg.ProbeTimeout},
		{"post_start_grace", raw.PostStartGrace, &cfg.PostStartGrace},
		{"sample_timeout", raw.SampleTimeout, &cfg.SampleTimeout},
		{"query_timeout", raw.QueryTimeout, &cfg.QueryTimeout},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}

		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}

		*d.dst = parsed
	}

	setIfNotEmpty(&cfg.LogLevel, raw.LogLevel)
	setIfNotEmpty(&cfg.LogFormat, raw.LogFormat)
	setIfNotEmpty(&cfg.HTTPPort, raw.HTTPPort)
	setIfNotEmpty(&cfg.MetricsPort, raw.MetricsPort)
	setIfNotEmpty(&cfg.PIDFile, raw.PIDFile)
	setIfNotEmpty(&cfg.StateFile, raw.StateFile)
	setIfNotEmpty(&cfg.CoordinationURL, raw.CoordinationURL)
	setIfNotEmpty(&cfg.KubeConfig, raw.KubeConfig)
	setIfNotEmpty(&cfg.KubeMaster, raw.KubeMaster)

	if raw.Decision != nil {
		if raw.Decision.HighDashboardThreshold != nil {
			cfg.Decision.HighDashboardThreshold = *raw.Decision.HighDashboardThreshold
		}

		if raw.Decision.HighWorkerThreshold != nil {
			cfg.Decision.HighWorkerThreshold = *raw.Decision.HighWorkerThreshold
		}

		if raw.Decision.InferenceThreshold != nil {
			cfg.Decision.InferenceThreshold = *raw.Decision.InferenceThreshold
		}

		if raw.Decision.CPUShedPercent != nil {
			cfg.Decision.CPUShedPercent = *raw.Decision.CPUShedPercent
		}
	}

	if raw.Scheduler != nil {
		if raw.Scheduler.Enabled != nil {
			cfg.Scheduler.Enabled = *raw.Scheduler.Enabled
		}

		setIfNotEmpty(&cfg.Scheduler.Timezone, raw.Scheduler.Timezone)
		setIfNotEmpty(&cfg.Scheduler.MaintenanceSchedule, raw.Scheduler.MaintenanceSchedule)

		for _, w := range raw.Scheduler.Windows {
			weekdays, err := parseWeekdays(w.Weekdays)
			if err != nil {
				return fmt.Errorf("parse window weekdays: %w", err)
			}

			cfg.Scheduler.Windows = append(cfg.Scheduler.Windows, Window{
				Weekdays:   weekdays,
				StartHour:  w.StartHour,
				EndHour:    w.EndHour,
				Components: w.Components,
			})
		}
	}

	if raw.Maintenance != nil {
		cfg.Maintenance.Dirs = raw.Maintenance.Dirs

		if raw.Maintenance.Retention != "" {
			retention, err := time.ParseDuration(raw.Maintenance.Retention)
			if err != nil {
				return fmt.Errorf("parse maintenance retention: %w", err)
			}

			cfg.Maintenance.Retention = retention
		}
	}

	for _, c := range raw.Components {
		cfg.Components = append(cfg.Components, Component{
			Name:         c.Name,
			Capabilities: c.Capabilities,
			Driver:       c.Driver,
			StartCommand: c.StartCommand,
			StopCommand:  c.StopCommand,
			ProbeURL:     c.ProbeURL,
			PIDFile:      c.PIDFile,
			Kube: KubeTarget{
				Namespace:   c.Kube.Namespace,
				Deployment:  c.Kube.Deployment,
				PodSelector: c.Kube.PodSelector,
			},
		})
	}

	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	if len(names) == 0 {
		return nil, nil
	}

	weekdays := make([]time.Weekday, 0, len(names))

	for _, name := range names {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("weekday %q: %w", name, ErrWeekdayUnknown)
		}

		weekdays = append(weekdays, day)
	}

	return weekdays, nil
}

func setIfNotEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
