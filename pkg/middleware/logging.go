package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/plaenen/bidibip/pkg/module"
)

// Logging logs command execution with timing information.
// Validation failures are expected user mistakes and logged at info.
func Logging(logger *slog.Logger) module.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next module.Handler) module.Handler {
		return module.HandlerFunc(func(ctx context.Context, inv *module.Invocation) error {
			start := time.Now()
			attrs := []any{
				slog.String("command", inv.Command()),
				slog.String("interaction_id", inv.Interaction().ID),
				slog.String("user_id", inv.User().ID),
				slog.String("channel_id", inv.ChannelID()),
			}

			logger.DebugContext(ctx, "Executing command", attrs...)

			err := next.Handle(ctx, inv)
			attrs = append(attrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))

			switch {
			case err == nil:
				logger.InfoContext(ctx, "Command executed", attrs...)
			case errors.Is(err, module.ErrValidation):
				logger.InfoContext(ctx, "Command rejected", append(attrs, slog.String("reason", err.Error()))...)
			default:
				logger.ErrorContext(ctx, "Command execution failed", append(attrs, slog.String("error", err.Error()))...)
			}
			return err
		})
	}
}
