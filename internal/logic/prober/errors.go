package prober

import "errors"

var (
	// ErrDriverNil is returned when a nil driver is registered.
	ErrDriverNil = errors.New("driver is nil")

	// ErrDriverAlreadyRegistered is returned when a component already has a driver.
	ErrDriverAlreadyRegistered = errors.New("driver already registered")

	// ErrComponentUnknown is returned for stats lookups on unregistered components.
	ErrComponentUnknown = errors.New("component unknown")
)
