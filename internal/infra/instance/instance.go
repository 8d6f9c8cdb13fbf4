// Package instance enforces the single-orchestrator guarantee through a PID
// file. Acquisition is exclusive-create; a leftover file from a dead process
// is detected by signalling its PID and reclaimed.
package instance

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

var (
	// ErrAlreadyRunning is returned when a live orchestrator holds the lock.
	ErrAlreadyRunning = errors.New("orchestrator already running")

	// ErrNotLocked is returned when releasing a lock that was never acquired.
	ErrNotLocked = errors.New("instance lock not held")
)

// Lock is an exclusive PID-file lock.
type Lock struct {
	logger *slog.Logger
	path   string
	held   bool
}

// NewLock creates a lock over the given PID file path.
func NewLock(logger *slog.Logger, path string) *Lock {
	return &Lock{logger: logger, path: path}
}

// Path returns the PID file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock for the current process. An existing file pointing
// at a live process yields ErrAlreadyRunning with the holder's PID; a stale
// file from a dead process is removed and acquisition retried once.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}

	if err := l.tryCreate(); err == nil {
		l.held = true

		return nil
	} else if !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("acquire instance lock: %w", err)
	}

	pid, err := ReadPID(l.path)
	if err != nil {
		// Unreadable or garbled file: treat as stale.
		l.logger.Warn("unreadable pid file, reclaiming", "path", l.path, "reason", err)
	} else if Alive(pid) {
		return fmt.Errorf("acquire instance lock: %w (pid %d)", ErrAlreadyRunning, pid)
	} else {
		l.logger.Warn("stale pid file from dead process, reclaiming", "path", l.path, "pid", pid)
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reclaim stale pid file: %w", err)
	}

	if err := l.tryCreate(); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("acquire instance lock: %w", ErrAlreadyRunning)
		}

		return fmt.Errorf("acquire instance lock: %w", err)
	}

	l.held = true

	return nil
}

// Release removes the PID file. Only the process that acquired the lock may
// release it.
func (l *Lock) Release() error {
	if !l.held {
		return ErrNotLocked
	}

	l.held = false

	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release instance lock: %w", err)
	}

	return nil
}

func (l *Lock) tryCreate() error {
	file, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	_, writeErr := fmt.Fprintf(file, "%d\n", os.Getpid())
	closeErr := file.Close()

	if writeErr != nil {
		return fmt.Errorf("write pid: %w", writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close pid file: %w", closeErr)
	}

	return nil
}

// ReadPID parses the PID stored in the given file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("parse pid file %s: invalid contents", path)
	}

	return pid, nil
}

// Alive reports whether the PID names a live process, using the null
// signal. EPERM still means the process exists.
func Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}

	return errors.Is(err, unix.EPERM)
}
