package procdriver

import "errors"

var (
	// ErrTargetUnknown is returned for component names with no configured target.
	ErrTargetUnknown = errors.New("target unknown")

	// ErrNoProbeMethod is returned when a target has neither probe URL nor PID file.
	ErrNoProbeMethod = errors.New("no probe method configured")

	// ErrNoStartCommand is returned when a target has no start command.
	ErrNoStartCommand = errors.New("no start command configured")

	// ErrNoStopMethod is returned when a target has neither stop command nor PID file.
	ErrNoStopMethod = errors.New("no stop method configured")

	// ErrProbeRejected is returned on non-2xx probe responses.
	ErrProbeRejected = errors.New("probe rejected")

	// ErrProcessDead is returned when the PID-file process is gone.
	ErrProcessDead = errors.New("process not running")

	// ErrPIDFileInvalid is returned for unparseable PID files.
	ErrPIDFileInvalid = errors.New("pid file invalid")

	// ErrStopTimeout is returned when a signalled process refuses to exit.
	ErrStopTimeout = errors.New("stop timed out")
)
