package appstate

import "errors"

var (
	// ErrInvalidStateTransition is returned when attempting an invalid state transition
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrAlreadyStopped is returned when attempting to change state after the process stopped
	ErrAlreadyStopped = errors.New("process already stopped")
)
