package lifecycle

import "context"

// Driver starts, stops and probes one component. Start and Stop are
// expected to be safe to repeat: starting a running component or stopping a
// stopped one must not fail.
type Driver interface {
	Probe(ctx context.Context, name string) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
}

// Maintainer runs one maintenance pass when the scheduler asks for it.
type Maintainer interface {
	Maintain(ctx context.Context) error
}
