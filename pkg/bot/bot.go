// Package bot runs the dispatch loop as a managed service.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/plaenen/bidibip/pkg/dispatch"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
)

var (
	// ErrNotStarted is returned by HealthCheck before Start.
	ErrNotStarted = errors.New("bot not started")

	// ErrStopped is returned by HealthCheck once the event queue has closed.
	ErrStopped = errors.New("dispatch loop stopped")
)

// Service syncs the command list, starts the modules that need it, then
// dispatches events until stopped.
type Service struct {
	registry   *module.Registry
	platform   platform.Platform
	dispatcher *dispatch.Dispatcher
	events     <-chan platform.Event
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates the bot service reading from events.
func New(registry *module.Registry, p platform.Platform, d *dispatch.Dispatcher, events <-chan platform.Event, opts ...Option) *Service {
	s := &Service{
		registry:   registry,
		platform:   p,
		dispatcher: d,
		events:     events,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements runner.Service.
func (s *Service) Name() string { return "bot" }

// Start publishes the full command list, starts every module.Starter and
// launches the dispatch loop. A module that fails to start is logged and
// left registered.
func (s *Service) Start(ctx context.Context) error {
	specs := slices.Collect(s.registry.Specs(nil, nil))
	if err := s.platform.SyncCommands(ctx, specs); err != nil {
		return fmt.Errorf("sync commands: %w", err)
	}
	s.logger.InfoContext(ctx, "Commands synced", slog.Int("count", len(specs)))

	for _, m := range s.registry.Modules() {
		starter, ok := m.(module.Starter)
		if !ok {
			continue
		}
		if err := starter.Start(ctx); err != nil {
			s.logger.WarnContext(ctx, "module failed to start",
				slog.String("module", m.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := s.dispatcher.Run(runCtx, s.events); err != nil {
			s.logger.ErrorContext(runCtx, "dispatch loop failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop ends the receive loop and waits for in-flight events to finish.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HealthCheck reports whether the dispatch loop is running.
func (s *Service) HealthCheck(context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return ErrNotStarted
	}
	select {
	case <-done:
		return ErrStopped
	default:
		return nil
	}
}
