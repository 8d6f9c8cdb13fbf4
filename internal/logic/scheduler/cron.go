package scheduler

import (
	"fmt"
	"strings"
	"time"

	cron "github.com/netresearch/go-cron"
)

var _parser = cron.MustNewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// maintenanceSchedule wraps a parsed cron schedule.
type maintenanceSchedule struct {
	schedule cron.Schedule
}

// parseMaintenanceSchedule parses a five-field cron spec. If tz is non-empty
// and the spec carries no CRON_TZ=/TZ= prefix, the zone is prepended;
// otherwise the spec is evaluated in UTC.
func parseMaintenanceSchedule(spec, tz string) (*maintenanceSchedule, error) {
	schedule, err := _parser.Parse(buildSpec(spec, tz))
	if err != nil {
		return nil, fmt.Errorf("parse maintenance schedule %q: %w", spec, err)
	}

	return &maintenanceSchedule{schedule: schedule}, nil
}

// NextAfter returns the next occurrence strictly after the given time.
func (m *maintenanceSchedule) NextAfter(after time.Time) time.Time {
	return m.schedule.Next(after)
}

func buildSpec(spec, tz string) string {
	hasTZPrefix := strings.HasPrefix(spec, "CRON_TZ=") ||
		strings.HasPrefix(spec, "TZ=")

	if hasTZPrefix {
		return spec
	}

	if tz != "" {
		return "CRON_TZ=" + tz + " " + spec
	}

	return "CRON_TZ=UTC " + spec
}
