// Package resources samples host-level CPU, memory and disk utilization.
// The collection mechanism sits behind the Sampler port so the decision
// engine never depends on it. Sampling failure yields an explicit
// unavailable sentinel, never a zero reading that could mask real load.
package resources

import (
	"context"
	"time"
)

// Sample is one immutable utilization reading. Percentages are in [0,100].
type Sample struct {
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryPercent float64   `json:"memoryPercent"`
	DiskPercent   float64   `json:"diskPercent"`
	Timestamp     time.Time `json:"timestamp"`
	Unavailable   bool      `json:"unavailable"`
}

// Sampler is the port the control loop samples through. Implementations
// must respect the context deadline and return Unavailable(now) instead of
// failing; a sample call never returns an error.
type Sampler interface {
	Sample(ctx context.Context) Sample
}

// Unavailable returns the sentinel sample for a failed collection. The
// decision engine skips resource-pressure rules when it sees one.
func Unavailable(now time.Time) Sample {
	return Sample{Timestamp: now, Unavailable: true}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 100 {
		return 100
	}

	return v
}
