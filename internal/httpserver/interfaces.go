package httpserver

import (
	"time"

	"github.com/fleetloop/orchestrator/internal/infra/appstate"
	"github.com/fleetloop/orchestrator/internal/logic/orchestrator"
	"github.com/fleetloop/orchestrator/internal/logic/prober"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
)

// appstater is an internal interface for process state management
type appstater interface {
	GetState() appstate.State
	IsHealthy() bool
	IsReady() bool
	GetUptime() time.Duration
	GetStartTime() time.Time
}

// loopStatus is an internal interface over the control loop's progress
type loopStatus interface {
	CycleCount() uint64
	LastCycle() (orchestrator.CycleReport, bool)
}

// fleetSource is an internal interface over the capability registry
type fleetSource interface {
	All() []registry.Component
}

// probeStatsSource is an internal interface over probe history
type probeStatsSource interface {
	GetAllStats() map[string]prober.Statistics
}
