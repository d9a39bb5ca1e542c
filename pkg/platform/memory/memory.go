// Package memory provides an in-process Platform that records every call.
// It backs the dry-run mode of the bot and the tests of the packages built
// on top of the platform boundary.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/idgen"
	"github.com/plaenen/bidibip/pkg/platform"
)

// Operation names used for recording and failure injection.
const (
	OpSend     = "send"
	OpEdit     = "edit"
	OpDelete   = "delete"
	OpReply    = "reply"
	OpAck      = "ack"
	OpFetch    = "fetch"
	OpUserName = "username"
	OpSync     = "sync"
)

// ErrNotFound is returned for unknown messages or users.
var ErrNotFound = errors.New("not found")

// Call is one recorded outbound operation.
type Call struct {
	Op          string
	ChannelID   string
	Ref         platform.MessageRef
	Interaction platform.Interaction
	Message     platform.Message
}

// Platform is a thread-safe fake chat platform.
type Platform struct {
	mu       sync.Mutex
	calls    []Call
	failures map[string]error
	messages map[string]platform.FetchedMessage
	users    map[string]string
	commands []command.Spec
}

// New creates an empty fake platform.
func New() *Platform {
	return &Platform{
		failures: make(map[string]error),
		messages: make(map[string]platform.FetchedMessage),
		users:    make(map[string]string),
	}
}

// NewInteraction builds an interaction with fresh ID and token.
func NewInteraction(guildID, channelID string, user platform.User) platform.Interaction {
	return platform.Interaction{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		GuildID:   guildID,
		ChannelID: channelID,
		User:      user,
	}
}

// FailOn makes every subsequent op fail with err. A nil err clears the failure.
func (p *Platform) FailOn(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, op)
		return
	}
	p.failures[op] = err
}

// AddMessage seeds a message readable through FetchMessage.
func (p *Platform) AddMessage(msg platform.FetchedMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[messageKey(msg.ChannelID, msg.ID)] = msg
}

// AddUser seeds a display name.
func (p *Platform) AddUser(id, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[id] = name
}

// Calls returns a snapshot of recorded calls, optionally filtered by op.
func (p *Platform) Calls(ops ...string) []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(ops) == 0 {
		return append([]Call(nil), p.calls...)
	}
	var out []Call
	for _, c := range p.calls {
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Commands returns the last synced command list.
func (p *Platform) Commands() []command.Spec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]command.Spec(nil), p.commands...)
}

// Reset forgets recorded calls.
func (p *Platform) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// Send implements platform.Platform.
func (p *Platform) Send(ctx context.Context, channelID string, msg platform.Message) (platform.MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpSend); err != nil {
		return platform.MessageRef{}, err
	}
	ref := platform.MessageRef{ChannelID: channelID, MessageID: idgen.NewSortableID()}
	p.calls = append(p.calls, Call{Op: OpSend, ChannelID: channelID, Ref: ref, Message: msg})
	return ref, nil
}

// Edit implements platform.Platform.
func (p *Platform) Edit(ctx context.Context, ref platform.MessageRef, msg platform.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpEdit); err != nil {
		return err
	}
	p.calls = append(p.calls, Call{Op: OpEdit, ChannelID: ref.ChannelID, Ref: ref, Message: msg})
	return nil
}

// Delete implements platform.Platform.
func (p *Platform) Delete(ctx context.Context, ref platform.MessageRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpDelete); err != nil {
		return err
	}
	p.calls = append(p.calls, Call{Op: OpDelete, ChannelID: ref.ChannelID, Ref: ref})
	return nil
}

// Reply implements platform.Platform.
func (p *Platform) Reply(ctx context.Context, in platform.Interaction, msg platform.Message) (platform.MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpReply); err != nil {
		return platform.MessageRef{}, err
	}
	ref := platform.MessageRef{
		ChannelID:        in.ChannelID,
		MessageID:        idgen.NewSortableID(),
		InteractionToken: in.Token,
	}
	p.calls = append(p.calls, Call{Op: OpReply, ChannelID: in.ChannelID, Ref: ref, Interaction: in, Message: msg})
	return ref, nil
}

// Acknowledge implements platform.Platform.
func (p *Platform) Acknowledge(ctx context.Context, in platform.Interaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpAck); err != nil {
		return err
	}
	p.calls = append(p.calls, Call{Op: OpAck, ChannelID: in.ChannelID, Interaction: in})
	return nil
}

// FetchMessage implements platform.Platform.
func (p *Platform) FetchMessage(ctx context.Context, channelID, messageID string) (platform.FetchedMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpFetch); err != nil {
		return platform.FetchedMessage{}, err
	}
	msg, ok := p.messages[messageKey(channelID, messageID)]
	if !ok {
		return platform.FetchedMessage{}, platform.NewError(OpFetch, fmt.Errorf("message %s: %w", messageID, ErrNotFound))
	}
	return msg, nil
}

// UserName implements platform.Platform. Unknown users resolve to their ID.
func (p *Platform) UserName(ctx context.Context, userID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpUserName); err != nil {
		return "", err
	}
	if name, ok := p.users[userID]; ok {
		return name, nil
	}
	return userID, nil
}

// SyncCommands implements platform.Platform.
func (p *Platform) SyncCommands(ctx context.Context, specs []command.Spec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpSync); err != nil {
		return err
	}
	p.commands = append([]command.Spec(nil), specs...)
	p.calls = append(p.calls, Call{Op: OpSync})
	return nil
}

func (p *Platform) failure(op string) error {
	if err, ok := p.failures[op]; ok {
		return platform.NewError(op, err)
	}
	return nil
}

func messageKey(channelID, messageID string) string {
	return channelID + "/" + messageID
}

var _ platform.Platform = (*Platform)(nil)
