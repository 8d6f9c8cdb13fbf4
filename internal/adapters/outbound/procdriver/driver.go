// Package procdriver runs components as local processes. Probing prefers an
// HTTP endpoint and falls back to PID-file liveness; starting detaches the
// child into its own session so the orchestrator's exit never takes the
// fleet down with it.
package procdriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// probeBodyLimit caps how much of a probe response is read for the load hint.
	probeBodyLimit = 4 << 10

	// stopWait is how long Stop waits for a signalled process to exit.
	stopWait = 5 * time.Second

	// stopPollInterval is the liveness re-check spacing during stopWait.
	stopPollInterval = 100 * time.Millisecond
)

// Target describes how one component is run and observed.
type Target struct {
	StartCommand []string
	StopCommand  []string
	ProbeURL     string
	PIDFile      string
}

// probeBody is the optional JSON shape components answer probes with.
type probeBody struct {
	Load float64 `json:"load"`
}

// Driver manages process-backed components.
type Driver struct {
	logger  *slog.Logger
	client  *http.Client
	targets map[string]Target

	mu    sync.RWMutex
	loads map[string]float64
}

// New creates a process driver over the given targets, keyed by component name.
func New(logger *slog.Logger, targets map[string]Target) *Driver {
	return &Driver{
		logger:  logger,
		client:  &http.Client{},
		targets: targets,
		loads:   make(map[string]float64),
	}
}

// Probe checks component liveness: HTTP endpoint when configured, PID file
// otherwise. A 2xx probe response may carry a JSON load figure, which is
// cached for LoadHint.
func (d *Driver) Probe(ctx context.Context, name string) error {
	target, err := d.target(name)
	if err != nil {
		return err
	}

	if target.ProbeURL != "" {
		return d.probeHTTP(ctx, name, target.ProbeURL)
	}

	if target.PIDFile != "" {
		return d.probePIDFile(name, target.PIDFile)
	}

	return fmt.Errorf("probe %s: %w", name, ErrNoProbeMethod)
}

func (d *Driver) probeHTTP(ctx context.Context, name, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("probe %s: %w", name, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("probe %s: %w: status %d", name, ErrProbeRejected, resp.StatusCode)
	}

	d.cacheLoad(name, resp.Body)

	return nil
}

// cacheLoad parses an optional {"load": x} body. Non-JSON bodies are fine;
// the previous hint is simply kept.
func (d *Driver) cacheLoad(name string, body io.Reader) {
	data, err := io.ReadAll(io.LimitReader(body, probeBodyLimit))
	if err != nil || len(data) == 0 {
		return
	}

	var parsed probeBody
	if err := json.Unmarshal(data, &parsed); err != nil {
		return
	}

	d.mu.Lock()
	d.loads[name] = parsed.Load
	d.mu.Unlock()
}

func (d *Driver) probePIDFile(name, pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		return fmt.Errorf("probe %s: %w", name, err)
	}

	if !processAlive(pid) {
		return fmt.Errorf("probe %s: %w: pid %d", name, ErrProcessDead, pid)
	}

	return nil
}

// LoadHint returns the load figure from the component's last successful
// HTTP probe. Components that never reported one read as zero.
func (d *Driver) LoadHint(_ context.Context, name string) (float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.loads[name], nil
}

// Start launches the component's start command detached in its own session.
// The child's stdio goes to /dev/null; the component is expected to do its
// own logging.
func (d *Driver) Start(ctx context.Context, name string) error {
	target, err := d.target(name)
	if err != nil {
		return err
	}

	if len(target.StartCommand) == 0 {
		return fmt.Errorf("start %s: %w", name, ErrNoStartCommand)
	}

	// Deliberately not CommandContext: the child outlives the orchestrator.
	cmd := exec.Command(target.StartCommand[0], target.StartCommand[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	pid := cmd.Process.Pid

	if err := cmd.Process.Release(); err != nil {
		d.logger.WarnContext(ctx, "release started process", "component", name, "reason", err)
	}

	d.logger.InfoContext(ctx, "process started",
		"component", name,
		"pid", pid,
		"command", strings.Join(target.StartCommand, " "),
	)

	return nil
}

// Stop terminates the component: the stop command when configured, SIGTERM
// to the PID-file process otherwise. A component that is already gone is a
// successful stop.
func (d *Driver) Stop(ctx context.Context, name string) error {
	target, err := d.target(name)
	if err != nil {
		return err
	}

	if len(target.StopCommand) > 0 {
		return d.stopByCommand(ctx, name, target.StopCommand)
	}

	if target.PIDFile != "" {
		return d.stopByPIDFile(ctx, name, target.PIDFile)
	}

	return fmt.Errorf("stop %s: %w", name, ErrNoStopMethod)
}

func (d *Driver) stopByCommand(ctx context.Context, name string, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("stop %s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}

	d.logger.InfoContext(ctx, "stop command finished", "component", name)

	return nil
}

func (d *Driver) stopByPIDFile(ctx context.Context, name, pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			d.logger.DebugContext(ctx, "no pid file, nothing to stop", "component", name)

			return nil
		}

		return fmt.Errorf("stop %s: %w", name, err)
	}

	if !processAlive(pid) {
		d.logger.DebugContext(ctx, "process already gone", "component", name, "pid", pid)

		return nil
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("stop %s: signal pid %d: %w", name, pid, err)
	}

	deadline := time.Now().Add(stopWait)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			d.logger.InfoContext(ctx, "process stopped", "component", name, "pid", pid)

			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("stop %s: %w", name, ctx.Err())
		case <-time.After(stopPollInterval):
		}
	}

	return fmt.Errorf("stop %s: %w: pid %d still alive after %s", name, ErrStopTimeout, pid, stopWait)
}

func (d *Driver) target(name string) (Target, error) {
	target, exists := d.targets[name]
	if !exists {
		return Target{}, fmt.Errorf("component %s: %w", name, ErrTargetUnknown)
	}

	return target, nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("parse pid file %s: %w", path, ErrPIDFileInvalid)
	}

	return pid, nil
}

func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}

	return errors.Is(err, unix.EPERM)
}
