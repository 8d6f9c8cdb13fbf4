package workqueue

import "errors"

// ErrUnexpectedStatus is returned for non-200 telemetry responses.
var ErrUnexpectedStatus = errors.New("unexpected status")
