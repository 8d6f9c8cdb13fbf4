// Package app wires configuration, adapters, logic services and servers
// into the runnable orchestrator.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/fleetloop/orchestrator/internal/adapters/outbound/kube"
	"github.com/fleetloop/orchestrator/internal/adapters/outbound/procdriver"
	"github.com/fleetloop/orchestrator/internal/adapters/outbound/workqueue"
	"github.com/fleetloop/orchestrator/internal/config"
	"github.com/fleetloop/orchestrator/internal/httpserver"
	"github.com/fleetloop/orchestrator/internal/infra/appstate"
	"github.com/fleetloop/orchestrator/internal/infra/janitor"
	"github.com/fleetloop/orchestrator/internal/infra/logging"
	"github.com/fleetloop/orchestrator/internal/infra/resources"
	"github.com/fleetloop/orchestrator/internal/infra/shutdown"
	"github.com/fleetloop/orchestrator/internal/logic/decision"
	"github.com/fleetloop/orchestrator/internal/logic/lifecycle"
	"github.com/fleetloop/orchestrator/internal/logic/orchestrator"
	"github.com/fleetloop/orchestrator/internal/logic/prober"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
	"github.com/fleetloop/orchestrator/internal/logic/scheduler"
	"github.com/fleetloop/orchestrator/internal/logic/workload"
)

const driverKube = "kube"

type App struct {
	logger          *slog.Logger
	cfg             *config.Config
	appState        *appstate.AppState
	shutdownHandler *shutdown.Handler
	registry        *registry.Registry
	probes          *prober.Service
	analyzer        *workload.Analyzer
	sampler         resources.Sampler
	engine          *decision.Engine
	sched           *scheduler.Scheduler
	loop            *orchestrator.Service
	servers         []appServer
}

// New creates a new application instance with all dependencies wired.
func New(cfg *config.Config, signals <-chan os.Signal) (*App, error) {
	logger := logging.New(cfg.LogFormat, cfg.LogLevel)

	appState := appstate.New(logger, time.Now(), signals)

	reg := registry.New(toRegistryComponents(cfg.Components))

	drivers, err := buildDrivers(logger, cfg)
	if err != nil {
		return nil, err
	}

	probes := prober.New(logger, reg, cfg.ProbeTimeout)
	for name, driver := range drivers {
		if err := probes.Register(name, driver); err != nil {
			return nil, fmt.Errorf("register probe driver: %w", err)
		}
	}

	coordination := workqueue.New(logger, cfg.CoordinationURL)
	analyzer := workload.New(logger, coordination, coordination, coordination, cfg.QueryTimeout)

	sampler, err := resources.NewHostSampler(logger, "/", cfg.SampleTimeout)
	if err != nil {
		return nil, fmt.Errorf("create host sampler: %w", err)
	}

	engine := decision.New(decision.Thresholds{
		HighDashboard:  cfg.Decision.HighDashboardThreshold,
		HighWorker:     cfg.Decision.HighWorkerThreshold,
		Inference:      cfg.Decision.InferenceThreshold,
		CPUShedPercent: cfg.Decision.CPUShedPercent,
	})

	sched, err := scheduler.New(
		logger,
		cfg.Scheduler.Enabled,
		toSchedulerWindows(cfg.Scheduler.Windows),
		cfg.Scheduler.MaintenanceSchedule,
		cfg.Scheduler.Timezone,
		time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	maintainer := janitor.New(logger, cfg.Maintenance.Dirs, cfg.Maintenance.Retention)

	lifecycleDrivers := make(map[string]lifecycle.Driver, len(drivers))
	for name, driver := range drivers {
		lifecycleDrivers[name] = driver
	}

	manager := lifecycle.New(logger, reg, lifecycleDrivers, maintainer, cfg.PostStartGrace)

	loop := orchestrator.New(
		logger,
		reg,
		probes,
		analyzer,
		sampler,
		engine,
		sched,
		manager,
		cfg.Interval,
		cfg.StateFile,
	)

	httpServer := httpserver.New(logger, appState, loop, reg, probes, cfg.HTTPPort)
	metricsServer := httpserver.NewMetricsServer(logger, cfg.MetricsPort)

	return &App{
		logger:          logger,
		cfg:             cfg,
		appState:        appState,
		shutdownHandler: shutdown.New(logger, appState),
		registry:        reg,
		probes:          probes,
		analyzer:        analyzer,
		sampler:         sampler,
		engine:          engine,
		sched:           sched,
		loop:            loop,
		servers:         []appServer{metricsServer, httpServer, loop},
	}, nil
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Run starts every server and blocks until the context is cancelled or a
// termination signal arrives, then shuts everything down in reverse order.
func (a *App) Run(originCtx context.Context) error {
	if err := a.appState.SetStarting(originCtx); err != nil {
		return fmt.Errorf("set starting application state: %w", err)
	}

	ctx, cancel := context.WithCancel(originCtx)
	defer cancel()

	go a.shutdownHandler.HandleSignals(ctx, cancel)

	readyChans := make([]<-chan struct{}, 0, len(a.servers))

	for _, server := range a.servers {
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", server.Name(), err)
		}

		a.appState.RegisterShutdowner(server)
		readyChans = append(readyChans, server.Ready())
	}

	select {
	case <-allChannelsClose(ctx, a.logger, readyChans...):
	case <-ctx.Done():
		return shutdown.GracefulShutdown(ctx, a.logger, a.appState, a.appState.Shutdowners())
	}

	if err := a.appState.SetRunning(ctx); err != nil {
		return fmt.Errorf("set running application state: %w", err)
	}

	a.logger.InfoContext(ctx, "orchestrator running",
		"components", len(a.cfg.Components),
		"interval", a.cfg.Interval,
	)

	<-ctx.Done()

	return shutdown.GracefulShutdown(ctx, a.logger, a.appState, a.appState.Shutdowners())
}

// AnalyzeOnce runs a single workload analysis, for the one-shot CLI path.
func (a *App) AnalyzeOnce(ctx context.Context) workload.Snapshot {
	return a.analyzer.Analyze(ctx)
}

// DecideOnce runs the cycle pipeline up to (and including) the decision,
// without applying anything.
func (a *App) DecideOnce(ctx context.Context) ([]decision.Action, []string) {
	now := time.Now()

	sample := a.sampler.Sample(ctx)
	a.probes.ProbeAll(ctx)
	snap := a.analyzer.Analyze(ctx)

	components := a.registry.All()

	actions, shed := a.engine.Decide(components, snap, sample, now)
	actions = a.sched.Augment(now, components, actions)

	return actions, shed
}

// buildDrivers creates one driver per component, sharing a process driver
// across all process components and a kube driver across all kube ones. The
// kube client is only constructed when at least one component needs it.
func buildDrivers(logger *slog.Logger, cfg *config.Config) (map[string]componentDriver, error) {
	procTargets := make(map[string]procdriver.Target)
	kubeTargets := make(map[string]kube.Target)

	for i := range cfg.Components {
		comp := &cfg.Components[i]

		if comp.Driver == driverKube {
			kubeTargets[comp.Name] = kube.Target{
				Namespace:   comp.Kube.Namespace,
				Deployment:  comp.Kube.Deployment,
				PodSelector: comp.Kube.PodSelector,
			}

			continue
		}

		procTargets[comp.Name] = procdriver.Target{
			StartCommand: comp.StartCommand,
			StopCommand:  comp.StopCommand,
			ProbeURL:     comp.ProbeURL,
			PIDFile:      comp.PIDFile,
		}
	}

	drivers := make(map[string]componentDriver, len(cfg.Components))

	if len(procTargets) > 0 {
		procDriver := procdriver.New(logger, procTargets)
		for name := range procTargets {
			drivers[name] = procDriver
		}
	}

	if len(kubeTargets) > 0 {
		kubeDriver, err := buildKubeDriver(logger, cfg, kubeTargets)
		if err != nil {
			return nil, err
		}

		for name := range kubeTargets {
			drivers[name] = kubeDriver
		}
	}

	return drivers, nil
}

func buildKubeDriver(
	logger *slog.Logger,
	cfg *config.Config,
	targets map[string]kube.Target,
) (*kube.Driver, error) {
	kubeConfig, err := clientcmd.BuildConfigFromFlags(cfg.KubeMaster, cfg.KubeConfig)
	if err != nil {
		return nil, fmt.Errorf("build kube config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(kubeConfig)
	if err != nil {
		return nil, fmt.Errorf("create kube clientset: %w", err)
	}

	metricsClientset, err := metricsv.NewForConfig(kubeConfig)
	if err != nil {
		return nil, fmt.Errorf("create kube metrics clientset: %w", err)
	}

	return kube.New(logger, clientset, metricsClientset, targets), nil
}

func toRegistryComponents(components []config.Component) []registry.Component {
	result := make([]registry.Component, 0, len(components))

	for i := range components {
		capabilities := make([]registry.Capability, 0, len(components[i].Capabilities))
		for _, capability := range components[i].Capabilities {
			capabilities = append(capabilities, registry.Capability(capability))
		}

		result = append(result, registry.Component{
			Name:         components[i].Name,
			Capabilities: capabilities,
		})
	}

	return result
}

func toSchedulerWindows(windows []config.Window) []scheduler.Window {
	result := make([]scheduler.Window, 0, len(windows))

	for _, w := range windows {
		result = append(result, scheduler.Window{
			Weekdays:   w.Weekdays,
			StartHour:  w.StartHour,
			EndHour:    w.EndHour,
			Components: w.Components,
		})
	}

	return result
}

// allChannelsClose returns a channel that closes once every input channel
// has closed, or early when the context is cancelled.
func allChannelsClose(ctx context.Context, logger *slog.Logger, chans ...<-chan struct{}) <-chan struct{} {
	out := make(chan struct{})

	go func() {
		defer close(out)

		for _, ch := range chans {
			select {
			case <-ch:
			case <-ctx.Done():
				logger.WarnContext(ctx, "context done before all components became ready")

				return
			}
		}
	}()

	return out
}
