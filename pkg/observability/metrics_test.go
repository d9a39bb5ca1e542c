package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/observability"
	"github.com/plaenen/bidibip/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newMetrics(t *testing.T) (*observability.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observability.NewMetrics(mp.Meter(observability.MeterName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestCommandMetricsMiddleware(t *testing.T) {
	m, reader := newMetrics(t)
	inv := module.NewInvocation(platform.Interaction{ID: "i1"}, "paid", access.NewRoleSet(), nil)

	ok := observability.CommandMetrics(m)(module.HandlerFunc(func(context.Context, *module.Invocation) error {
		return nil
	}))
	rejected := observability.CommandMetrics(m)(module.HandlerFunc(func(context.Context, *module.Invocation) error {
		return module.Invalid("nope")
	}))

	require.NoError(t, ok.Handle(context.Background(), inv))
	assert.Error(t, rejected.Handle(context.Background(), inv))

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["bidibip.command.total"]))
	assert.Equal(t, int64(1), sumOf(t, got["bidibip.command.errors"]))
}

func TestCommandMetricsNilIsPassthrough(t *testing.T) {
	called := false
	h := observability.CommandMetrics(nil)(module.HandlerFunc(func(context.Context, *module.Invocation) error {
		called = true
		return errors.New("boom")
	}))
	err := h.Handle(context.Background(), module.NewInvocation(platform.Interaction{}, "say", nil, nil))
	assert.Error(t, err)
	assert.True(t, called)
}

func TestDraftRecorderAndPendingGauge(t *testing.T) {
	m, reader := newMetrics(t)
	store := draft.NewStore()
	require.NoError(t, m.ObservePending(store))
	require.NoError(t, store.Put("a", draft.Entry{}))
	require.NoError(t, store.Put("b", draft.Entry{}))

	ctx := context.Background()
	m.DraftPresented(ctx)
	m.DraftPresented(ctx)
	m.DraftResolved(ctx, draft.OutcomePublished, 3*time.Second)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["bidibip.drafts.presented"]))
	assert.Equal(t, int64(1), sumOf(t, got["bidibip.drafts.resolved"]))

	gauge, ok := got["bidibip.drafts.pending"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(2), gauge.DataPoints[0].Value)
}

func TestInitWithoutExporters(t *testing.T) {
	tel, err := observability.Init(context.Background(), observability.Config{ServiceName: "bidibip"})
	require.NoError(t, err)
	require.NotNil(t, tel.Metrics)
	assert.NotNil(t, tel.Tracer("test"))
	assert.NoError(t, tel.Shutdown(context.Background()))
}
