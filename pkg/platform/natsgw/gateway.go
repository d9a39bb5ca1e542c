// Package natsgw implements platform.Platform over NATS. A separate gateway
// process bridges the chat platform: it publishes interactions as JSON events
// and answers request/reply calls for every outbound operation.
package natsgw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/observability"
	"github.com/plaenen/bidibip/pkg/platform"
	"github.com/plaenen/bidibip/pkg/runner"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	// ErrNotConnected is returned by operations before Start or after Stop.
	ErrNotConnected = errors.New("gateway not connected")

	// ErrRejected is returned when the gateway answers with ok=false.
	ErrRejected = errors.New("gateway rejected request")
)

// Config configures the NATS connection.
type Config struct {
	URL            string
	Token          string
	RequestTimeout time.Duration
	EventBuffer    int
}

// Gateway is a platform.Platform and runner.Service backed by NATS.
type Gateway struct {
	cfg     Config
	name    string
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.Metrics

	mu     sync.RWMutex
	nc     *nats.Conn
	subs   []*nats.Subscription
	events chan platform.Event
	done   chan struct{}
	closed chan struct{}

	// sendMu guards events against a send racing its close.
	sendMu       sync.RWMutex
	eventsClosed bool

	stopOnce sync.Once
	stopErr  error
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithTracer sets the tracer for outbound requests.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tracer
	}
}

// WithMetrics records request latency and outcome.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// New creates an unconnected gateway. Events are delivered on Events once
// Start succeeds.
func New(cfg Config, opts ...Option) *Gateway {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	g := &Gateway{
		cfg:    cfg,
		name:   "bidibip-" + uuid.NewString(),
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer("natsgw"),
		events: make(chan platform.Event, cfg.EventBuffer),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Events returns the inbound event queue. It is closed after Stop.
func (g *Gateway) Events() <-chan platform.Event {
	return g.events
}

// Name implements runner.Service.
func (g *Gateway) Name() string {
	return "nats-gateway"
}

// Start connects to NATS and subscribes to inbound events. A connection
// failure is the bot's login failure.
func (g *Gateway) Start(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name(g.name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				g.logger.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			g.logger.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			close(g.closed)
		}),
	}
	if g.cfg.Token != "" {
		opts = append(opts, nats.Token(g.cfg.Token))
	}

	nc, err := nats.Connect(g.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}

	var subs []*nats.Subscription
	for _, subject := range []string{SubjectCommandEvents, SubjectControlEvents} {
		sub, err := nc.QueueSubscribe(subject, QueueGroup, g.onEvent)
		if err != nil {
			nc.Close()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	flushCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(ctx, g.cfg.RequestTimeout)
		defer cancel()
	}
	if err := nc.FlushWithContext(flushCtx); err != nil {
		nc.Close()
		return fmt.Errorf("flush subscriptions: %w", err)
	}

	g.mu.Lock()
	g.nc = nc
	g.subs = subs
	g.mu.Unlock()

	g.logger.Info("connected to gateway", slog.String("url", nc.ConnectedUrl()), slog.String("client", g.name))
	return nil
}

// Stop drains subscriptions, closes the connection and then the event queue.
// Calls after the first return the first result.
func (g *Gateway) Stop(ctx context.Context) error {
	g.stopOnce.Do(func() {
		g.stopErr = g.stop(ctx)
	})
	return g.stopErr
}

func (g *Gateway) stop(ctx context.Context) error {
	g.mu.Lock()
	nc := g.nc
	g.nc = nil
	g.mu.Unlock()

	close(g.done)
	defer g.closeEvents()

	if nc == nil {
		return nil
	}
	if err := nc.Drain(); err != nil {
		nc.Close()
		return fmt.Errorf("drain gateway connection: %w", err)
	}
	select {
	case <-g.closed:
		return nil
	case <-ctx.Done():
		nc.Close()
		<-g.closed
		return ctx.Err()
	}
}

// HealthCheck implements runner.HealthChecker.
func (g *Gateway) HealthCheck(context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.nc == nil || !g.nc.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// closeEvents closes the queue once every in-flight send has observed done.
func (g *Gateway) closeEvents() {
	g.sendMu.Lock()
	defer g.sendMu.Unlock()
	if !g.eventsClosed {
		g.eventsClosed = true
		close(g.events)
	}
}

func (g *Gateway) deliver(ev platform.Event) {
	g.sendMu.RLock()
	defer g.sendMu.RUnlock()
	if g.eventsClosed {
		return
	}
	select {
	case g.events <- ev:
	case <-g.done:
	}
}

func (g *Gateway) onEvent(msg *nats.Msg) {
	var ev platform.Event
	switch msg.Subject {
	case SubjectCommandEvents:
		var e platform.CommandEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			g.logger.Warn("malformed command event", slog.String("error", err.Error()))
			return
		}
		ev = e
	case SubjectControlEvents:
		var e platform.ControlEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			g.logger.Warn("malformed control event", slog.String("error", err.Error()))
			return
		}
		ev = e
	default:
		return
	}
	g.deliver(ev)
}

func (g *Gateway) call(ctx context.Context, op string, req Request) (Response, error) {
	ctx, span := g.tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.AttrGatewayOp.String(op)),
	)
	start := time.Now()

	resp, err := g.request(ctx, op, req)

	observability.EndSpan(span, err)
	if g.metrics != nil {
		g.metrics.RecordGatewayRequest(ctx, op, time.Since(start), err)
	}
	return resp, platform.NewError(op, err)
}

func (g *Gateway) request(ctx context.Context, op string, req Request) (Response, error) {
	g.mu.RLock()
	nc := g.nc
	g.mu.RUnlock()
	if nc == nil {
		return Response{}, ErrNotConnected
	}

	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	msg := nats.NewMsg(SubjectGatewayPrefix + op)
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{header: msg.Header})

	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	reply, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return Response{}, fmt.Errorf("request: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(reply.Data, &resp); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if !resp.OK {
		return resp, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	return resp, nil
}

// Send implements platform.Platform.
func (g *Gateway) Send(ctx context.Context, channelID string, msg platform.Message) (platform.MessageRef, error) {
	resp, err := g.call(ctx, OpSend, Request{ChannelID: channelID, Message: &msg})
	if err != nil {
		return platform.MessageRef{}, err
	}
	return refOf(resp, OpSend)
}

// Edit implements platform.Platform.
func (g *Gateway) Edit(ctx context.Context, ref platform.MessageRef, msg platform.Message) error {
	_, err := g.call(ctx, OpEdit, Request{Ref: &ref, Message: &msg})
	return err
}

// Delete implements platform.Platform.
func (g *Gateway) Delete(ctx context.Context, ref platform.MessageRef) error {
	_, err := g.call(ctx, OpDelete, Request{Ref: &ref})
	return err
}

// Reply implements platform.Platform.
func (g *Gateway) Reply(ctx context.Context, in platform.Interaction, msg platform.Message) (platform.MessageRef, error) {
	resp, err := g.call(ctx, OpReply, Request{Interaction: &in, Message: &msg})
	if err != nil {
		return platform.MessageRef{}, err
	}
	if resp.Ref == nil {
		return platform.OriginalResponse(in), nil
	}
	return *resp.Ref, nil
}

// Acknowledge implements platform.Platform.
func (g *Gateway) Acknowledge(ctx context.Context, in platform.Interaction) error {
	_, err := g.call(ctx, OpAck, Request{Interaction: &in})
	return err
}

// FetchMessage implements platform.Platform.
func (g *Gateway) FetchMessage(ctx context.Context, channelID, messageID string) (platform.FetchedMessage, error) {
	resp, err := g.call(ctx, OpFetch, Request{ChannelID: channelID, MessageID: messageID})
	if err != nil {
		return platform.FetchedMessage{}, err
	}
	if resp.Message == nil {
		return platform.FetchedMessage{}, platform.NewError(OpFetch, errors.New("response has no message"))
	}
	return *resp.Message, nil
}

// UserName implements platform.Platform.
func (g *Gateway) UserName(ctx context.Context, userID string) (string, error) {
	resp, err := g.call(ctx, OpUserName, Request{UserID: userID})
	if err != nil {
		return "", err
	}
	if resp.Name == "" {
		return userID, nil
	}
	return resp.Name, nil
}

// SyncCommands implements platform.Platform.
func (g *Gateway) SyncCommands(ctx context.Context, specs []command.Spec) error {
	_, err := g.call(ctx, OpSync, Request{Commands: Declare(specs)})
	return err
}

func refOf(resp Response, op string) (platform.MessageRef, error) {
	if resp.Ref == nil {
		return platform.MessageRef{}, platform.NewError(op, errors.New("response has no message reference"))
	}
	return *resp.Ref, nil
}

var (
	_ platform.Platform    = (*Gateway)(nil)
	_ runner.HealthChecker = (*Gateway)(nil)
)
