// Package metrics exposes the orchestrator's Prometheus instrumentation.
// All collectors register on the default registerer and are served by the
// dedicated metrics listener.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cyclesTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "orchestrator_cycles_total",
		Help: "Total number of completed control loop cycles.",
	},
)

var cycleDurationSeconds = promauto.With(prometheus.DefaultRegisterer).NewHistogram(
	prometheus.HistogramOpts{
		Name:    "orchestrator_cycle_duration_seconds",
		Help:    "Duration of one control loop cycle.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	},
)

var cycleOverrunsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "orchestrator_cycle_overruns_total",
		Help: "Total number of cycles whose work exceeded the polling interval.",
	},
)

var cyclePanicsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "orchestrator_cycle_panics_total",
		Help: "Total number of cycles aborted by a recovered panic.",
	},
)

var actionsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "orchestrator_actions_total",
		Help: "Total number of lifecycle actions applied, by component, operation and result.",
	},
	[]string{"component", "op", "result"},
)

var probeFailuresTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "orchestrator_probe_failures_total",
		Help: "Total number of failed health probes, by component.",
	},
	[]string{"component"},
)

var probeDurationSeconds = promauto.With(prometheus.DefaultRegisterer).NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "orchestrator_probe_duration_seconds",
		Help:    "Duration of health probes, by component.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	},
	[]string{"component"},
)

var componentHealthy = promauto.With(prometheus.DefaultRegisterer).NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "orchestrator_component_healthy",
		Help: "Whether the component's last probe succeeded (1) or failed (0).",
	},
	[]string{"component"},
)

var degradedAnalysesTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "orchestrator_degraded_analyses_total",
		Help: "Total number of workload analyses that lost a source, by source.",
	},
	[]string{"source"},
)

var pendingWorkItems = promauto.With(prometheus.DefaultRegisterer).NewGauge(
	prometheus.GaugeOpts{
		Name: "orchestrator_pending_work_items",
		Help: "Pending work items reported by the last workload analysis.",
	},
)

var criticalWorkItems = promauto.With(prometheus.DefaultRegisterer).NewGauge(
	prometheus.GaugeOpts{
		Name: "orchestrator_critical_work_items",
		Help: "Critical work items reported by the last workload analysis.",
	},
)

var activeWorkerTasks = promauto.With(prometheus.DefaultRegisterer).NewGauge(
	prometheus.GaugeOpts{
		Name: "orchestrator_active_worker_tasks",
		Help: "Active worker tasks reported by the last workload analysis.",
	},
)

var maintenanceFilesPrunedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "orchestrator_maintenance_files_pruned_total",
		Help: "Total number of files removed by maintenance runs.",
	},
)

// RecordCycle observes one completed cycle.
func RecordCycle(duration time.Duration, overrun bool) {
	cyclesTotal.Inc()
	cycleDurationSeconds.Observe(duration.Seconds())

	if overrun {
		cycleOverrunsTotal.Inc()
	}
}

// RecordCyclePanic increments the recovered-panic counter.
func RecordCyclePanic() {
	cyclePanicsTotal.Inc()
}

// RecordAction counts one applied lifecycle action.
func RecordAction(component, op, result string) {
	actionsTotal.WithLabelValues(component, op, result).Inc()
}

// RecordProbe observes one health probe outcome for a component.
func RecordProbe(component string, latency time.Duration, failed bool) {
	probeDurationSeconds.WithLabelValues(component).Observe(latency.Seconds())

	if failed {
		probeFailuresTotal.WithLabelValues(component).Inc()
		componentHealthy.WithLabelValues(component).Set(0)

		return
	}

	componentHealthy.WithLabelValues(component).Set(1)
}

// RecordDegradedSource counts one workload source lost during analysis.
func RecordDegradedSource(source string) {
	degradedAnalysesTotal.WithLabelValues(source).Inc()
}

// RecordWorkload updates the workload gauges from the last analysis.
func RecordWorkload(pending, critical, activeTasks int) {
	pendingWorkItems.Set(float64(pending))
	criticalWorkItems.Set(float64(critical))
	activeWorkerTasks.Set(float64(activeTasks))
}

// RecordMaintenancePruned counts files removed by one maintenance run.
func RecordMaintenancePruned(count int) {
	maintenanceFilesPrunedTotal.Add(float64(count))
}
