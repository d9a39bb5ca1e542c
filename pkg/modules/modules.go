// Package modules wires the built-in feature modules.
package modules

import (
	"log/slog"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/modules/advertising"
	"github.com/plaenen/bidibip/pkg/modules/help"
	"github.com/plaenen/bidibip/pkg/modules/history"
	"github.com/plaenen/bidibip/pkg/modules/quote"
	"github.com/plaenen/bidibip/pkg/modules/say"
	"github.com/plaenen/bidibip/pkg/platform"
)

// Deps are the shared resources of the built-in modules.
type Deps struct {
	Platform      platform.Platform
	Registry      *module.Registry
	Gate          access.Gate
	Workflow      *draft.Workflow
	Quotes        quote.Store
	Destinations  advertising.Destinations
	History       history.Repository
	HistoryRemote string
	Logger        *slog.Logger
}

// Builtins returns every built-in module in registration order.
func Builtins(d Deps) []module.Module {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return []module.Module{
		help.New(d.Platform, d.Registry, d.Gate),
		quote.New(d.Platform, d.Quotes, quote.WithLogger(logger.With(slog.String("module", "quote")))),
		advertising.New(d.Workflow, d.Destinations),
		history.New(d.Platform, d.History, d.HistoryRemote, history.WithLogger(logger.With(slog.String("module", "history")))),
		say.New(d.Platform),
	}
}

// Register adds every built-in module to d.Registry. It stops at the first
// failure, which is a configuration bug.
func Register(d Deps) error {
	for _, m := range Builtins(d) {
		if err := d.Registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}
