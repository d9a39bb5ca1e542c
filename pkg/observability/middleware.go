package observability

import (
	"context"
	"time"

	"github.com/plaenen/bidibip/pkg/module"
)

// CommandMetrics records duration and outcome of every command.
// A nil Metrics disables recording.
func CommandMetrics(m *Metrics) module.Middleware {
	return func(next module.Handler) module.Handler {
		if m == nil {
			return next
		}
		return module.HandlerFunc(func(ctx context.Context, inv *module.Invocation) error {
			start := time.Now()
			err := next.Handle(ctx, inv)
			m.RecordCommand(ctx, inv.Command(), time.Since(start), err)
			return err
		})
	}
}
