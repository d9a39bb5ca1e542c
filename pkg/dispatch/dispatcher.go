// Package dispatch routes platform events to module handlers and pending
// drafts.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/plaenen/bidibip/pkg/middleware"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/observability"
	"github.com/plaenen/bidibip/pkg/platform"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// FailureText is shown to the user when a command fails unexpectedly.
const FailureText = "Oups, quelque chose s'est mal passé :( Réessaie plus tard."

// DefaultMaxInFlight bounds the number of events handled concurrently by Run.
const DefaultMaxInFlight = 16

// ErrUnsupportedEvent is returned by HandleEvent for an unknown event type.
var ErrUnsupportedEvent = errors.New("unsupported event")

// Dispatcher is the single entry point for platform events.
type Dispatcher struct {
	registry    *module.Registry
	gate        access.Gate
	workflow    *draft.Workflow
	platform    platform.Platform
	logger      *slog.Logger
	tracer      trace.Tracer
	middlewares []module.Middleware
	maxInFlight int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithTracer sets the tracer used for event spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// WithMiddleware appends command middlewares. The first added is the
// outermost, inside the always-present panic recovery.
func WithMiddleware(mw ...module.Middleware) Option {
	return func(d *Dispatcher) {
		d.middlewares = append(d.middlewares, mw...)
	}
}

// WithMaxInFlight bounds concurrent event handling in Run.
func WithMaxInFlight(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxInFlight = n
		}
	}
}

// New creates a dispatcher. The pending draft store is the one owned by wf.
func New(registry *module.Registry, gate access.Gate, wf *draft.Workflow, p platform.Platform, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		gate:        gate,
		workflow:    wf,
		platform:    p,
		logger:      slog.Default(),
		tracer:      noop.NewTracerProvider().Tracer("dispatch"),
		maxInFlight: DefaultMaxInFlight,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleEvent processes one event. Handler failures are reported to the user
// and logged, never returned; the error result only covers events the
// dispatcher cannot interpret.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev platform.Event) error {
	switch e := ev.(type) {
	case platform.CommandEvent:
		d.handleCommand(ctx, e)
		return nil
	case *platform.CommandEvent:
		d.handleCommand(ctx, *e)
		return nil
	case platform.ControlEvent:
		d.handleControl(ctx, e)
		return nil
	case *platform.ControlEvent:
		d.handleControl(ctx, *e)
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedEvent, ev)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev platform.CommandEvent) {
	in := ev.Interaction
	logger := d.logger.With(
		slog.String("command", ev.Name),
		slog.String("interaction_id", in.ID),
		slog.String("user_id", in.User.ID),
	)

	spec, mod, ok := d.registry.Lookup(ev.Name)
	if !ok {
		logger.WarnContext(ctx, "unknown command")
		d.acknowledge(ctx, logger, in)
		return
	}

	roles := access.NewRoleSet(ev.Roles...)
	if err := access.Check(d.gate, roles, spec.Access()); err != nil {
		// A non-member must not learn that the command exists.
		logger.DebugContext(ctx, "command denied", slog.String("access", string(spec.Access())))
		d.acknowledge(ctx, logger, in)
		return
	}

	inv := module.NewInvocation(in, ev.Name, roles, ev.Options)
	err := d.chain(mod).Handle(ctx, inv)
	if err == nil {
		return
	}

	var verr *module.ValidationError
	msg := platform.Text(FailureText).AsEphemeral(true)
	if errors.As(err, &verr) {
		msg = platform.Text(verr.Message).AsEphemeral(true)
	} else {
		logger.ErrorContext(ctx, "command failed",
			slog.String("error", err.Error()),
			slog.String("trace_id", observability.TraceID(ctx)),
		)
	}
	if _, rerr := d.platform.Reply(ctx, in, msg); rerr != nil {
		logger.ErrorContext(ctx, "failed to report command failure", slog.String("error", rerr.Error()))
	}
}

func (d *Dispatcher) handleControl(ctx context.Context, ev platform.ControlEvent) {
	ctx, span := d.tracer.Start(ctx, "dispatch.control",
		trace.WithAttributes(
			observability.AttrInteractionID.String(ev.Interaction.ID),
		),
	)
	var err error
	defer func() { observability.EndSpan(span, err) }()

	action, key, ok := draft.ParseControlID(ev.CustomID)
	if !ok {
		d.logger.DebugContext(ctx, "ignoring unrecognised control", slog.String("custom_id", ev.CustomID))
		return
	}
	span.SetAttributes(observability.AttrCorrelationKey.String(key))

	entry, ok := d.workflow.Store().Take(key)
	if !ok {
		d.logger.DebugContext(ctx, "no pending draft for control",
			slog.String("correlation_key", key),
			slog.String("action", action),
		)
		return
	}

	if err = d.workflow.Resolve(ctx, entry, action); err != nil {
		d.logger.ErrorContext(ctx, "draft resolution failed",
			slog.String("correlation_key", key),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

func (d *Dispatcher) chain(h module.Handler) module.Handler {
	mws := append([]module.Middleware{middleware.Recovery(d.logger)}, slices.Clone(d.middlewares)...)
	return module.Chain(h, mws...)
}

func (d *Dispatcher) acknowledge(ctx context.Context, logger *slog.Logger, in platform.Interaction) {
	if err := d.platform.Acknowledge(ctx, in); err != nil {
		logger.WarnContext(ctx, "failed to acknowledge interaction", slog.String("error", err.Error()))
	}
}

// Run handles events from the queue until it is closed or ctx is cancelled,
// then waits for in-flight events. Cancelling ctx only stops the receive
// loop: handlers keep ctx's values but not its cancellation, and are bounded
// by the platform's own request timeouts. At most MaxInFlight events are
// handled at once; further events wait in the queue.
func (d *Dispatcher) Run(ctx context.Context, events <-chan platform.Event) error {
	var g errgroup.Group
	g.SetLimit(d.maxInFlight)
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return nil
		case ev, ok := <-events:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				if err := d.HandleEvent(handlerCtx, ev); err != nil {
					d.logger.WarnContext(handlerCtx, "dropping event", slog.String("error", err.Error()))
				}
				return nil
			})
		}
	}
}
