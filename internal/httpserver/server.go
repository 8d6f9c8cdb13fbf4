package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fleetloop/orchestrator/internal/infra/shutdown"
)

type Server struct {
	logger     *slog.Logger
	appState   appstater
	loop       loopStatus
	fleet      fleetSource
	probeStats probeStatsSource
	port       string
	server     *http.Server
	ready      chan struct{}
	inShutdown atomic.Bool
}

// New creates the operator-facing status server. The fleet and loop views
// are read-only; the server never mutates orchestrator state.
func New(
	logger *slog.Logger,
	appState appstater,
	loop loopStatus,
	fleet fleetSource,
	probeStats probeStatsSource,
	port string,
) *Server {
	if port == "" {
		port = defaultPort
	}

	return &Server{
		logger:     logger,
		appState:   appState,
		loop:       loop,
		fleet:      fleet,
		probeStats: probeStats,
		port:       port,
		ready:      make(chan struct{}),
	}
}

var _ shutdown.Shutdowner = (*Server)(nil)

// Name returns the component name used in shutdown logs.
func (s *Server) Name() string {
	return "http-server"
}

// Ping reports whether the server has bound its listener.
func (s *Server) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ready:
		return nil
	default:
		return fmt.Errorf("http server is not ready")
	}
}

// Start serves the status endpoints in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "http server already shutting down, not starting")

		return nil
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/-/healthz", s.handleHealthz)
	router.Get("/-/readyz", s.handleReadyz)
	router.Get("/-/status", s.handleStatus)

	addr := fmt.Sprintf(":%s", s.port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	go func() {
		s.logger.InfoContext(ctx, "http server listening", "port", s.port)

		lc := &net.ListenConfig{
			KeepAliveConfig: net.KeepAliveConfig{
				Enable: true,
			},
		}

		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			s.logger.ErrorContext(ctx, "http server failed to listen", "reason", err)

			return
		}

		close(s.ready)

		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.ErrorContext(ctx, "http server failed", "reason", err)
		}
	}()

	return nil
}

// Ready returns a channel closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		s.logger.WarnContext(ctx, "http server shutdown requested twice, ignoring")

		return nil
	}

	if s.server == nil {
		return nil
	}

	s.logger.InfoContext(ctx, "shutting down http server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.InfoContext(ctx, "http server stopped")

	return nil
}
