package lifecycle

import "errors"

var (
	// ErrComponentUnknown is returned when an action names a component with no driver.
	ErrComponentUnknown = errors.New("component unknown")

	// ErrVerificationFailed is returned when a started component fails its
	// post-start probe after the grace period.
	ErrVerificationFailed = errors.New("post-start verification failed")

	// ErrNoMaintainer is returned for maintain actions without a configured maintainer.
	ErrNoMaintainer = errors.New("no maintainer configured")
)
