package resources

import "errors"

// ErrMeminfoIncomplete is returned when /proc/meminfo lacks the fields
// needed to compute utilization.
var ErrMeminfoIncomplete = errors.New("meminfo missing total or available")
