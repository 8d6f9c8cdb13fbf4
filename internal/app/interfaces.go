package app

import (
	"context"

	"github.com/fleetloop/orchestrator/internal/infra/shutdown"
)

// appServer is any long-running component the app starts and supervises.
type appServer interface {
	Start(ctx context.Context) error
	Ready() <-chan struct{}
	shutdown.Shutdowner
}

// componentDriver is the combined driver surface both outbound drivers
// implement; it satisfies the prober and lifecycle ports.
type componentDriver interface {
	Probe(ctx context.Context, name string) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
}
