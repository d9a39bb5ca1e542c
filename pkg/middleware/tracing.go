package middleware

import (
	"context"
	"errors"

	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps each command in a span from tracer.
func Tracing(tracer trace.Tracer) module.Middleware {
	return func(next module.Handler) module.Handler {
		return module.HandlerFunc(func(ctx context.Context, inv *module.Invocation) error {
			in := inv.Interaction()
			ctx, span := tracer.Start(ctx, "command."+inv.Command(),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					observability.AttrCommand.String(inv.Command()),
					observability.AttrInteractionID.String(in.ID),
					attribute.String("command.user_id", in.User.ID),
					attribute.String("command.guild_id", in.GuildID),
				),
			)
			defer span.End()

			err := next.Handle(ctx, inv)
			switch {
			case err == nil:
				span.SetStatus(codes.Ok, "")
			case errors.Is(err, module.ErrValidation):
				span.SetAttributes(attribute.Bool("command.rejected", true))
			default:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		})
	}
}
