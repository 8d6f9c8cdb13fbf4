package registry

import "errors"

// ErrComponentNotFound is returned for names that were never registered.
var ErrComponentNotFound = errors.New("component not found")
