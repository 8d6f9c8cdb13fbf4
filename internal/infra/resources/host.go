package resources

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// cpuWarmupSpacing is the spacing between the two /proc/stat reads on the
// very first sample, before a previous reading exists to diff against.
const cpuWarmupSpacing = 200 * time.Millisecond

// HostSampler collects CPU from /proc/stat deltas, memory from
// /proc/meminfo and disk usage via statfs on diskPath.
type HostSampler struct {
	logger   *slog.Logger
	fs       procfs.FS
	diskPath string
	timeout  time.Duration

	mu      sync.Mutex
	prevCPU *procfs.CPUStat
}

var _ Sampler = (*HostSampler)(nil)

// NewHostSampler creates a host sampler. diskPath is the mount point whose
// utilization is reported (typically "/").
func NewHostSampler(logger *slog.Logger, diskPath string, timeout time.Duration) (*HostSampler, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}

	if diskPath == "" {
		diskPath = "/"
	}

	return &HostSampler{
		logger:   logger,
		fs:       fs,
		diskPath: diskPath,
		timeout:  timeout,
	}, nil
}

// Sample collects one reading, bounded by the configured timeout. Any
// failure or timeout yields the unavailable sentinel.
func (s *HostSampler) Sample(ctx context.Context) Sample {
	now := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		sample Sample
		err    error
	}

	resultCh := make(chan result, 1)

	go func() {
		sample, err := s.collect(ctx, now)
		resultCh <- result{sample: sample, err: err}
	}()

	select {
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "resource sampling timed out", "timeout", s.timeout)

		return Unavailable(now)
	case res := <-resultCh:
		if res.err != nil {
			s.logger.WarnContext(ctx, "resource sampling failed", "reason", res.err)

			return Unavailable(now)
		}

		return res.sample
	}
}

func (s *HostSampler) collect(ctx context.Context, now time.Time) (Sample, error) {
	cpu, err := s.cpuPercent(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("sample cpu: %w", err)
	}

	mem, err := s.memoryPercent()
	if err != nil {
		return Sample{}, fmt.Errorf("sample memory: %w", err)
	}

	disk, err := s.diskPercent()
	if err != nil {
		return Sample{}, fmt.Errorf("sample disk: %w", err)
	}

	return Sample{
		CPUPercent:    cpu,
		MemoryPercent: mem,
		DiskPercent:   disk,
		Timestamp:     now,
	}, nil
}

// cpuPercent diffs the aggregate CPU counters against the previous sample.
// The first call has nothing to diff against, so it takes two closely
// spaced readings.
func (s *HostSampler) cpuPercent(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.prevCPU == nil {
		first, err := s.readCPU()
		if err != nil {
			return 0, err
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(cpuWarmupSpacing):
		}

		s.prevCPU = first
	}

	current, err := s.readCPU()
	if err != nil {
		return 0, err
	}

	percent := cpuBusyPercent(*s.prevCPU, *current)
	s.prevCPU = current

	return percent, nil
}

func (s *HostSampler) readCPU() (*procfs.CPUStat, error) {
	stat, err := s.fs.Stat()
	if err != nil {
		return nil, fmt.Errorf("read /proc/stat: %w", err)
	}

	total := stat.CPUTotal

	return &total, nil
}

func (s *HostSampler) memoryPercent() (float64, error) {
	meminfo, err := s.fs.Meminfo()
	if err != nil {
		return 0, fmt.Errorf("read /proc/meminfo: %w", err)
	}

	if meminfo.MemTotal == nil || meminfo.MemAvailable == nil {
		return 0, ErrMeminfoIncomplete
	}

	return memoryUsedPercent(*meminfo.MemTotal, *meminfo.MemAvailable), nil
}

func (s *HostSampler) diskPercent() (float64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(s.diskPath, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", s.diskPath, err)
	}

	return diskUsedPercent(stat.Blocks, stat.Bfree, stat.Bavail), nil
}

// cpuBusyPercent computes busy time share between two aggregate readings.
func cpuBusyPercent(prev, cur procfs.CPUStat) float64 {
	prevIdle := prev.Idle + prev.Iowait
	curIdle := cur.Idle + cur.Iowait

	prevTotal := cpuTotal(prev)
	curTotal := cpuTotal(cur)

	totalDelta := curTotal - prevTotal
	if totalDelta <= 0 {
		return 0
	}

	idleDelta := curIdle - prevIdle

	return clampPercent((totalDelta - idleDelta) / totalDelta * 100)
}

func cpuTotal(c procfs.CPUStat) float64 {
	return c.User + c.Nice + c.System + c.Idle + c.Iowait + c.IRQ + c.SoftIRQ + c.Steal
}

// memoryUsedPercent derives utilization from total and available kB.
func memoryUsedPercent(totalKB, availableKB uint64) float64 {
	if totalKB == 0 {
		return 0
	}

	return clampPercent((1 - float64(availableKB)/float64(totalKB)) * 100)
}

// diskUsedPercent mirrors df: used blocks over blocks available to
// unprivileged users plus used.
func diskUsedPercent(blocks, bfree, bavail uint64) float64 {
	used := blocks - bfree

	capacity := used + bavail
	if capacity == 0 {
		return 0
	}

	return clampPercent(float64(used) / float64(capacity) * 100)
}
