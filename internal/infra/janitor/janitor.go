// Package janitor prunes aged files from the orchestrator's own scratch
// directories during maintenance windows. It only ever touches the
// directories it was configured with; component data is out of bounds.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fleetloop/orchestrator/internal/infra/metrics"
)

// Janitor removes regular files older than the retention period.
type Janitor struct {
	logger    *slog.Logger
	dirs      []string
	retention time.Duration
}

// New creates a janitor over the given directories.
func New(logger *slog.Logger, dirs []string, retention time.Duration) *Janitor {
	return &Janitor{
		logger:    logger,
		dirs:      dirs,
		retention: retention,
	}
}

// Maintain prunes every configured directory. A missing directory is
// skipped silently; other per-file errors are logged and the pass
// continues, so one bad entry cannot abort the whole run.
func (j *Janitor) Maintain(ctx context.Context) error {
	cutoff := time.Now().Add(-j.retention)
	pruned := 0

	for _, dir := range j.dirs {
		select {
		case <-ctx.Done():
			return fmt.Errorf("maintenance interrupted: %w", ctx.Err())
		default:
		}

		count, err := j.pruneDir(ctx, dir, cutoff)
		pruned += count

		if err != nil {
			return err
		}
	}

	metrics.RecordMaintenancePruned(pruned)
	j.logger.InfoContext(ctx, "maintenance pass finished",
		"dirs", len(j.dirs),
		"pruned", pruned,
	)

	return nil
}

func (j *Janitor) pruneDir(ctx context.Context, dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}

		return 0, fmt.Errorf("prune %s: %w", dir, err)
	}

	pruned := 0

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			j.logger.WarnContext(ctx, "stat during prune", "dir", dir, "file", entry.Name(), "reason", err)

			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			j.logger.WarnContext(ctx, "remove during prune", "path", path, "reason", err)

			continue
		}

		j.logger.DebugContext(ctx, "pruned aged file", "path", path, "age", time.Since(info.ModTime()))
		pruned++
	}

	return pruned, nil
}
