// Package appstate tracks the orchestrator process state machine:
// init -> starting -> running -> stopping -> stopped.
package appstate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fleetloop/orchestrator/internal/infra/shutdown"
)

// State represents the orchestrator process state
type State string

const (
	// StateInit is the initial state when the process is created
	StateInit State = "init"

	// StateStarting is the state while components are being wired up
	StateStarting State = "starting"

	// StateRunning is the state while the control loop is cycling
	StateRunning State = "running"

	// StateStopping is the state while components shut down gracefully
	StateStopping State = "stopping"

	// StateStopped is the final state after shutdown completed
	StateStopped State = "stopped"
)

const defaultShutdownersCount = 10

// AppState manages the process state with thread-safe operations
type AppState struct {
	mu          sync.RWMutex
	logger      *slog.Logger
	startedAt   time.Time
	readyAt     *time.Time
	stoppingAt  *time.Time
	state       State
	quit        <-chan os.Signal
	shutdowners []shutdown.Shutdowner
}

// New creates a new AppState with the given start time
func New(
	logger *slog.Logger,
	appStart time.Time,
	quit <-chan os.Signal,
) *AppState {
	return &AppState{
		logger:      logger,
		startedAt:   appStart,
		state:       StateInit,
		quit:        quit,
		shutdowners: make([]shutdown.Shutdowner, 0, defaultShutdownersCount),
	}
}

// RegisterShutdowner appends a component to the graceful shutdown sequence.
// Components shut down in reverse registration order.
func (s *AppState) RegisterShutdowner(shutdowner shutdown.Shutdowner) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shutdowners = append(s.shutdowners, shutdowner)
}

// Shutdowners returns the registered shutdown sequence.
func (s *AppState) Shutdowners() []shutdown.Shutdowner {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]shutdown.Shutdowner, len(s.shutdowners))
	copy(result, s.shutdowners)

	return result
}

// SetStarting transitions the state from Init to Starting
func (s *AppState) SetStarting(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInit {
		return fmt.Errorf("set starting: %w", ErrInvalidStateTransition)
	}

	return s.setState(StateStarting)
}

// SetRunning transitions the state from Starting to Running
func (s *AppState) SetRunning(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStarting {
		return fmt.Errorf("set running: %w", ErrInvalidStateTransition)
	}

	now := time.Now()
	s.readyAt = &now

	return s.setState(StateRunning)
}

// SetStopping transitions the state to Stopping
func (s *AppState) SetStopping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return fmt.Errorf("set stopping: %w", ErrAlreadyStopped)
	}

	now := time.Now()
	s.stoppingAt = &now

	return s.setState(StateStopping)
}

// setState is an internal method to set the state
func (s *AppState) setState(newState State) error {
	if s.state == StateStopped {
		return fmt.Errorf("set state: %w", ErrAlreadyStopped)
	}

	s.state = newState

	return nil
}

// GetState returns the current process state
func (s *AppState) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// GetStartTime returns the time when the process started
func (s *AppState) GetStartTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.startedAt
}

// GetUptime returns the duration since the process started
func (s *AppState) GetUptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return time.Since(s.startedAt)
}

// IsHealthy returns true if the process is in a healthy state (running)
func (s *AppState) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state == StateRunning
}

// IsReady returns true if the process is ready to serve requests
func (s *AppState) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state == StateRunning && s.readyAt != nil
}

// Quit returns the channel that will receive the signal when shutdown is requested
func (s *AppState) Quit() <-chan os.Signal {
	return s.quit
}

// Shutdown transitions the process to the stopped state
func (s *AppState) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return nil
	}

	s.state = StateStopped

	return nil
}
