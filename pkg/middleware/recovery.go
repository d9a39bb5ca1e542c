// Package middleware provides command handler middlewares: panic recovery,
// structured logging, tracing and metrics.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/plaenen/bidibip/pkg/module"
)

// ErrPanic is matched by errors produced from a recovered handler panic.
var ErrPanic = errors.New("command handler panicked")

// Recovery turns a panic in a command handler into an error.
func Recovery(logger *slog.Logger) module.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next module.Handler) module.Handler {
		return module.HandlerFunc(func(ctx context.Context, inv *module.Invocation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "Command handler panicked",
						slog.String("command", inv.Command()),
						slog.String("interaction_id", inv.Interaction().ID),
						slog.Any("panic", r),
						slog.String("stack_trace", string(debug.Stack())),
					)
					err = fmt.Errorf("%w: %v", ErrPanic, r)
				}
			}()

			return next.Handle(ctx, inv)
		})
	}
}
