// Package module defines the capability units of the bot and the registry
// that routes command names to them.
package module

import (
	"context"
	"maps"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/platform"
)

// Module is implemented by every feature of the bot.
type Module interface {
	// Name identifies the module in logs and errors.
	Name() string

	// Commands returns the commands owned by the module.
	Commands() []command.Spec

	// Handle runs one of the module's commands. A *ValidationError is shown
	// to the user as-is; any other error becomes a generic failure message.
	Handle(ctx context.Context, inv *Invocation) error
}

// Starter is implemented by modules that prepare resources before the bot
// accepts events.
type Starter interface {
	Start(ctx context.Context) error
}

// Invocation is a read-only view over a fired command.
type Invocation struct {
	interaction platform.Interaction
	command     string
	roles       access.RoleSet
	values      map[string]string
}

// NewInvocation builds an invocation. The values map is copied.
func NewInvocation(in platform.Interaction, commandName string, roles access.RoleSet, values map[string]string) *Invocation {
	return &Invocation{
		interaction: in,
		command:     commandName,
		roles:       roles,
		values:      maps.Clone(values),
	}
}

// Interaction returns the platform interaction that fired the command.
func (i *Invocation) Interaction() platform.Interaction { return i.interaction }

// Command returns the invoked command name.
func (i *Invocation) Command() string { return i.command }

// User returns the invoking user.
func (i *Invocation) User() platform.User { return i.interaction.User }

// ChannelID returns the channel the command was fired from.
func (i *Invocation) ChannelID() string { return i.interaction.ChannelID }

// GuildID returns the guild the command was fired from.
func (i *Invocation) GuildID() string { return i.interaction.GuildID }

// Roles returns the invoker's resolved roles.
func (i *Invocation) Roles() access.RoleSet { return i.roles }

// Value returns an option value. Absent and empty values report false.
func (i *Invocation) Value(key string) (string, bool) {
	v, ok := i.values[key]
	return v, ok && v != ""
}

// ValueOr returns an option value or fallback when absent.
func (i *Invocation) ValueOr(key, fallback string) string {
	if v, ok := i.Value(key); ok {
		return v
	}
	return fallback
}

// Values returns a copy of every provided option value.
func (i *Invocation) Values() map[string]string {
	return maps.Clone(i.values)
}
