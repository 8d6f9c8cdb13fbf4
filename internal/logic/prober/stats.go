package prober

import (
	"slices"
	"sync"
	"time"
)

const (
	// successLatencyBufferSize is the number of successful probe latencies kept.
	successLatencyBufferSize = 100

	// errorLatencyBufferSize is the number of failed probe latencies kept.
	errorLatencyBufferSize = 10
)

// latencyBuffer is a fixed-capacity ring of probe latencies.
type latencyBuffer struct {
	buffer   []time.Duration
	capacity int
	index    int
	count    int
}

func newLatencyBuffer(capacity int) *latencyBuffer {
	return &latencyBuffer{
		buffer:   make([]time.Duration, 0, capacity),
		capacity: capacity,
	}
}

func (lb *latencyBuffer) add(d time.Duration) {
	if lb.count < lb.capacity {
		lb.buffer = append(lb.buffer, d)
		lb.count++

		return
	}

	lb.buffer[lb.index] = d
	lb.index = (lb.index + 1) % lb.capacity
}

// all returns the buffered latencies oldest-first.
func (lb *latencyBuffer) all() []time.Duration {
	if lb.count == 0 {
		return nil
	}

	result := make([]time.Duration, lb.count)
	if lb.count < lb.capacity {
		copy(result, lb.buffer)
	} else {
		copy(result, lb.buffer[lb.index:])
		copy(result[lb.capacity-lb.index:], lb.buffer[:lb.index])
	}

	return result
}

// stats accumulates probe history for a single component.
type stats struct {
	mu               sync.RWMutex
	lastProbe        time.Time
	lastError        error
	lastTransition   time.Time
	healthy          bool
	successTotal     uint64
	failureTotal     uint64
	successLatencies *latencyBuffer
	errorLatencies   *latencyBuffer
}

func newStats() *stats {
	return &stats{
		successLatencies: newLatencyBuffer(successLatencyBufferSize),
		errorLatencies:   newLatencyBuffer(errorLatencyBufferSize),
	}
}

func (s *stats) record(now time.Time, latency time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	healthy := err == nil
	if healthy != s.healthy || s.lastProbe.IsZero() {
		s.lastTransition = now
	}

	s.lastProbe = now
	s.lastError = err
	s.healthy = healthy

	if err != nil {
		s.failureTotal++
		s.errorLatencies.add(latency)

		return
	}

	s.successTotal++
	s.successLatencies.add(latency)
}

// Statistics is the exported probe history snapshot for one component.
type Statistics struct {
	Healthy        bool          `json:"healthy"`
	LastProbe      time.Time     `json:"lastProbe"`
	LastTransition time.Time     `json:"lastTransition"`
	LastError      string        `json:"lastError,omitempty"`
	SuccessTotal   uint64        `json:"successTotal"`
	FailureTotal   uint64        `json:"failureTotal"`
	MedianLatency  time.Duration `json:"medianLatency"`
	P90Latency     time.Duration `json:"p90Latency"`
}

func (s *stats) snapshot() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := Statistics{
		Healthy:        s.healthy,
		LastProbe:      s.lastProbe,
		LastTransition: s.lastTransition,
		SuccessTotal:   s.successTotal,
		FailureTotal:   s.failureTotal,
	}

	if s.lastError != nil {
		result.LastError = s.lastError.Error()
	}

	latencies := s.successLatencies.all()
	result.MedianLatency = percentile(latencies, 50)
	result.P90Latency = percentile(latencies, 90)

	return result
}

// percentile returns the p-th percentile of the given latencies using the
// floor index method. Zero when no samples exist.
func percentile(latencies []time.Duration, p int) time.Duration {
	if len(latencies) == 0 {
		return 0
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	index := (len(sorted) - 1) * p / 100

	return sorted[index]
}
