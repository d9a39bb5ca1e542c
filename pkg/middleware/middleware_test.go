package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/middleware"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func invocation() *module.Invocation {
	in := platform.Interaction{
		ID:        "int-1",
		GuildID:   "guild",
		ChannelID: "chan",
		User:      platform.User{ID: "u1", Name: "Alice"},
	}
	return module.NewInvocation(in, "quote", access.NewRoleSet(), nil)
}

func TestRecoveryConvertsPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := module.Chain(module.HandlerFunc(func(context.Context, *module.Invocation) error {
		panic("boom")
	}), middleware.Recovery(logger))

	err := h.Handle(context.Background(), invocation())
	require.Error(t, err)
	assert.ErrorIs(t, err, middleware.ErrPanic)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, buf.String(), "Command handler panicked")
}

func TestRecoveryPassesThrough(t *testing.T) {
	want := errors.New("plain")
	h := module.Chain(module.HandlerFunc(func(context.Context, *module.Invocation) error {
		return want
	}), middleware.Recovery(nil))

	assert.Equal(t, want, h.Handle(context.Background(), invocation()))
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "Command executed"},
		{"validation", module.Invalid("nope"), "Command rejected"},
		{"failure", errors.New("db down"), "Command execution failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			h := module.Chain(module.HandlerFunc(func(context.Context, *module.Invocation) error {
				return tt.err
			}), middleware.Logging(logger))

			err := h.Handle(context.Background(), invocation())
			assert.Equal(t, tt.err, err)
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "command=quote")
			assert.Contains(t, buf.String(), "user_id=u1")
		})
	}
}

func TestTracingRecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	errs := []error{nil, module.Invalid("nope"), errors.New("db down")}
	for _, want := range errs {
		h := module.Chain(module.HandlerFunc(func(context.Context, *module.Invocation) error {
			return want
		}), middleware.Tracing(tp.Tracer("test")))
		_ = h.Handle(context.Background(), invocation())
	}

	spans := rec.Ended()
	require.Len(t, spans, 3)
	for _, s := range spans {
		assert.Equal(t, "command.quote", s.Name())
	}
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Equal(t, "db down", spans[2].Status().Description)
}
