package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/plaenen/bidibip/pkg/module"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the bot's metric instruments.
type Metrics struct {
	meter metric.Meter

	// Command metrics
	CommandDuration metric.Float64Histogram
	CommandTotal    metric.Int64Counter
	CommandErrors   metric.Int64Counter

	// Draft metrics
	DraftsPresented metric.Int64Counter
	DraftsResolved  metric.Int64Counter
	DraftAge        metric.Float64Histogram

	// Gateway metrics
	GatewayLatency  metric.Float64Histogram
	GatewayRequests metric.Int64Counter
}

// NewMetrics creates all metric instruments
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}
	var err error

	m.CommandDuration, err = meter.Float64Histogram(
		"bidibip.command.duration",
		metric.WithDescription("Command handler duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.duration: %w", err)
	}

	m.CommandTotal, err = meter.Int64Counter(
		"bidibip.command.total",
		metric.WithDescription("Total commands handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.total: %w", err)
	}

	m.CommandErrors, err = meter.Int64Counter(
		"bidibip.command.errors",
		metric.WithDescription("Commands that failed or were rejected"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.errors: %w", err)
	}

	m.DraftsPresented, err = meter.Int64Counter(
		"bidibip.drafts.presented",
		metric.WithDescription("Draft previews shown to their author"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating drafts.presented: %w", err)
	}

	m.DraftsResolved, err = meter.Int64Counter(
		"bidibip.drafts.resolved",
		metric.WithDescription("Drafts resolved, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating drafts.resolved: %w", err)
	}

	m.DraftAge, err = meter.Float64Histogram(
		"bidibip.drafts.age",
		metric.WithDescription("Time between preview and resolution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating drafts.age: %w", err)
	}

	m.GatewayLatency, err = meter.Float64Histogram(
		"bidibip.gateway.latency",
		metric.WithDescription("Gateway request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gateway.latency: %w", err)
	}

	m.GatewayRequests, err = meter.Int64Counter(
		"bidibip.gateway.requests",
		metric.WithDescription("Gateway requests, by operation and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gateway.requests: %w", err)
	}

	return m, nil
}

// ObservePending registers the pending drafts gauge, read from store on
// every collection.
func (m *Metrics) ObservePending(store *draft.Store) error {
	_, err := m.meter.Int64ObservableGauge(
		"bidibip.drafts.pending",
		metric.WithDescription("Drafts waiting for confirm or cancel"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(store.Len()))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("creating drafts.pending: %w", err)
	}
	return nil
}

// RecordCommand records command execution metrics
func (m *Metrics) RecordCommand(ctx context.Context, command string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("command", command))

	m.CommandDuration.Record(ctx, duration.Seconds(), attrs)
	m.CommandTotal.Add(ctx, 1, attrs)

	if err != nil {
		m.CommandErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("error_kind", errorKind(err)),
		))
	}
}

// DraftPresented implements draft.Recorder.
func (m *Metrics) DraftPresented(ctx context.Context) {
	m.DraftsPresented.Add(ctx, 1)
}

// DraftResolved implements draft.Recorder.
func (m *Metrics) DraftResolved(ctx context.Context, outcome draft.Outcome, age time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", string(outcome)))
	m.DraftsResolved.Add(ctx, 1, attrs)
	m.DraftAge.Record(ctx, age.Seconds(), attrs)
}

// RecordGatewayRequest records one outbound gateway request.
func (m *Metrics) RecordGatewayRequest(ctx context.Context, op string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("success", err == nil),
	)
	m.GatewayLatency.Record(ctx, duration.Seconds(), attrs)
	m.GatewayRequests.Add(ctx, 1, attrs)
}

func errorKind(err error) string {
	if errors.Is(err, module.ErrValidation) {
		return "validation"
	}
	return "failure"
}

var _ draft.Recorder = (*Metrics)(nil)
