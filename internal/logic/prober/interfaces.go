package prober

import "context"

// Driver performs one health probe for a named component. A nil error means
// the component answered and is considered healthy.
type Driver interface {
	Probe(ctx context.Context, name string) error
}

// loadHinter is an optional Driver extension: drivers that can report a
// normalized load figure for the component implement it.
type loadHinter interface {
	LoadHint(ctx context.Context, name string) (float64, error)
}
