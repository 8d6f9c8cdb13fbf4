package orchestrator

import (
	"time"

	"github.com/fleetloop/orchestrator/internal/infra/resources"
	"github.com/fleetloop/orchestrator/internal/logic/decision"
	"github.com/fleetloop/orchestrator/internal/logic/workload"
)

// CycleReport is the record of one completed control loop cycle.
type CycleReport struct {
	ID             string            `json:"id"`
	StartedAt      time.Time         `json:"startedAt"`
	Duration       time.Duration     `json:"duration"`
	Overrun        bool              `json:"overrun"`
	Workload       workload.Snapshot `json:"workload"`
	Resources      resources.Sample  `json:"resources"`
	Actions        []decision.Action `json:"actions"`
	ShedCandidates []string          `json:"shedCandidates,omitempty"`
	ActionErrors   []string          `json:"actionErrors,omitempty"`
}

// persistedState is the JSON document written to the state file after every
// cycle so a restarted orchestrator can report its last known activity.
type persistedState struct {
	SavedAt    time.Time    `json:"savedAt"`
	CycleCount uint64       `json:"cycleCount"`
	LastCycle  *CycleReport `json:"lastCycle,omitempty"`
}
