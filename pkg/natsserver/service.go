package natsserver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/plaenen/bidibip/pkg/observability"
	"github.com/plaenen/bidibip/pkg/runner"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrNotStarted is returned by health checks before Start.
var ErrNotStarted = errors.New("nats server not started")

// Service runs the embedded server as a runner.Service.
type Service struct {
	server     atomic.Pointer[Server]
	logger     runner.Logger
	tracer     trace.Tracer
	serverOpts []Option
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger runner.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer for the service.
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithServerOptions sets the options passed to Start.
func WithServerOptions(opts ...Option) ServiceOption {
	return func(s *Service) {
		s.serverOpts = opts
	}
}

// NewService creates the service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		logger: runner.NewNoopLogger(),
		tracer: noop.NewTracerProvider().Tracer("natsserver"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements runner.Service.
func (s *Service) Name() string {
	return "embedded-nats"
}

// Start implements runner.Service.
func (s *Service) Start(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "natsserver.Start")

	srv, err := Start(s.serverOpts...)
	if err != nil {
		observability.EndSpan(span, err)
		s.logger.Error("failed to start embedded NATS", "error", err)
		return fmt.Errorf("start embedded NATS: %w", err)
	}
	s.server.Store(srv)

	span.SetAttributes(attribute.String("nats.url", srv.URL()))
	observability.EndSpan(span, nil)
	s.logger.Info("embedded NATS server started", "url", srv.URL())
	return nil
}

// Stop implements runner.Service.
func (s *Service) Stop(ctx context.Context) error {
	srv := s.server.Load()
	if srv == nil {
		return nil
	}
	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	return srv.Shutdown(timeout)
}

// HealthCheck implements runner.HealthChecker.
func (s *Service) HealthCheck(ctx context.Context) error {
	srv := s.server.Load()
	if srv == nil {
		return ErrNotStarted
	}
	if !srv.Running() {
		return errors.New("nats server stopped")
	}
	return nil
}

// URL returns the client URL, empty before Start.
func (s *Service) URL() string {
	if srv := s.server.Load(); srv != nil {
		return srv.URL()
	}
	return ""
}

var (
	_ runner.Service       = (*Service)(nil)
	_ runner.HealthChecker = (*Service)(nil)
)
