// Package platform defines the boundary between the bot and the chat
// platform: inbound events, outbound message operations, and the error kind
// every adapter reports.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/plaenen/bidibip/pkg/command"
)

// ErrPlatform matches every *Error through errors.Is.
var ErrPlatform = errors.New("platform error")

// Error is an I/O failure talking to the chat platform.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrPlatform
}

// NewError wraps err as a platform error for operation op. A nil err stays nil.
func NewError(op string, err error) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// User identifies the person behind an interaction.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Interaction is the platform-side handle of a command or control activation.
// ID is unique per interaction.
type Interaction struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	User      User   `json:"user"`
}

// Event is delivered by the platform connection.
type Event interface {
	// Source returns the interaction that produced the event.
	Source() Interaction
}

// CommandEvent is fired when a user invokes a command.
type CommandEvent struct {
	Interaction Interaction       `json:"interaction"`
	Name        string            `json:"name"`
	Options     map[string]string `json:"options,omitempty"`
	Roles       []string          `json:"roles,omitempty"`
}

// Source implements Event.
func (e CommandEvent) Source() Interaction { return e.Interaction }

// ControlEvent is fired when a user activates a button.
type ControlEvent struct {
	Interaction Interaction `json:"interaction"`
	CustomID    string      `json:"custom_id"`
	Roles       []string    `json:"roles,omitempty"`
}

// Source implements Event.
func (e ControlEvent) Source() Interaction { return e.Interaction }

// Platform is the set of outbound operations the bot needs. Every method
// returns a *Error on failure.
type Platform interface {
	// Send posts a visible message to a channel.
	Send(ctx context.Context, channelID string, msg Message) (MessageRef, error)

	// Edit replaces the content of a previously sent or replied message.
	Edit(ctx context.Context, ref MessageRef, msg Message) error

	// Delete removes a previously sent or replied message.
	Delete(ctx context.Context, ref MessageRef) error

	// Reply answers an interaction. msg.Ephemeral controls visibility.
	Reply(ctx context.Context, in Interaction, msg Message) (MessageRef, error)

	// Acknowledge answers an interaction without any visible message.
	Acknowledge(ctx context.Context, in Interaction) error

	// FetchMessage reads an existing message.
	FetchMessage(ctx context.Context, channelID, messageID string) (FetchedMessage, error)

	// UserName resolves a display name.
	UserName(ctx context.Context, userID string) (string, error)

	// SyncCommands publishes the full command list, replacing any stale one.
	SyncCommands(ctx context.Context, specs []command.Spec) error
}
