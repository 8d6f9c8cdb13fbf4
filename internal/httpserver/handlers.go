package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fleetloop/orchestrator/internal/logic/orchestrator"
	"github.com/fleetloop/orchestrator/internal/logic/prober"
	"github.com/fleetloop/orchestrator/internal/logic/registry"
)

type statusResponse struct {
	State      string                       `json:"state"`
	Uptime     string                       `json:"uptime"`
	StartTime  time.Time                    `json:"startTime"`
	UptimeSec  float64                      `json:"uptimeSeconds"`
	CycleCount uint64                       `json:"cycleCount"`
	Components []registry.Component         `json:"components"`
	ProbeStats map[string]prober.Statistics `json:"probeStats,omitempty"`
	LastCycle  *orchestrator.CycleReport    `json:"lastCycle,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.appState.IsHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.appState.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uptime := s.appState.GetUptime()

	response := statusResponse{
		State:      string(s.appState.GetState()),
		Uptime:     uptime.String(),
		StartTime:  s.appState.GetStartTime(),
		UptimeSec:  uptime.Seconds(),
		CycleCount: s.loop.CycleCount(),
		Components: s.fleet.All(),
		ProbeStats: s.probeStats.GetAllStats(),
	}

	if report, ok := s.loop.LastCycle(); ok {
		response.LastCycle = &report
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.ErrorContext(ctx, "failed to encode status response",
			"error", err,
		)
	}
}
