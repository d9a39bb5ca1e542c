// Package help lists the commands the invoking user may run.
package help

import (
	"context"
	"slices"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/i18n"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
)

const (
	Title       = "Aide de Bidibip"
	Description = "liste des commandes disponibles :"
)

// Module implements the help command.
type Module struct {
	platform platform.Platform
	registry *module.Registry
	gate     access.Gate
}

// New creates the help module. It reads the registry at invocation time, so
// it sees modules registered after it.
func New(p platform.Platform, registry *module.Registry, gate access.Gate) *Module {
	return &Module{platform: p, registry: registry, gate: gate}
}

func (m *Module) Name() string { return "help" }

func (m *Module) Commands() []command.Spec {
	return []command.Spec{
		command.New("help", "Voir la liste des commandes disponibles"),
	}
}

func (m *Module) Handle(ctx context.Context, inv *module.Invocation) error {
	specs := slices.Collect(m.registry.Specs(inv.Roles(), m.gate))
	slices.SortFunc(specs, func(a, b command.Spec) int {
		return i18n.Compare(a.Name(), b.Name())
	})

	embed := platform.NewEmbed(Title, Description)
	for _, spec := range specs {
		embed = embed.WithField(spec.Name(), spec.Description(), false)
	}

	_, err := m.platform.Reply(ctx, inv.Interaction(), platform.Message{}.WithEmbed(embed).AsEphemeral(true))
	return err
}

var _ module.Module = (*Module)(nil)
