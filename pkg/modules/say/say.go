// Package say lets members post a message as the bot.
package say

import (
	"context"

	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
)

// EmptyText is returned when the message has no content.
const EmptyText = "Le message est vide."

// Module implements the say command.
type Module struct {
	platform platform.Platform
}

// New creates the say module.
func New(p platform.Platform) *Module {
	return &Module{platform: p}
}

func (m *Module) Name() string { return "say" }

func (m *Module) Commands() []command.Spec {
	return []command.Spec{
		command.New("say", "Faire parler Bidibip").
			WithText("texte", "Message à envoyer").
			MemberOnly(),
	}
}

// Handle sends the text to the invoking channel and acknowledges silently.
func (m *Module) Handle(ctx context.Context, inv *module.Invocation) error {
	text, ok := inv.Value("texte")
	if !ok {
		return module.Invalid(EmptyText)
	}
	msg := platform.Text(platform.Truncate(text, platform.MaxMessageLength))
	if _, err := m.platform.Send(ctx, inv.ChannelID(), msg); err != nil {
		return err
	}
	return m.platform.Acknowledge(ctx, inv.Interaction())
}

var _ module.Module = (*Module)(nil)
