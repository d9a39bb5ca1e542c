package natsgw

import (
	"github.com/nats-io/nats.go"
	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/platform"
)

// Subjects shared with the gateway process.
const (
	SubjectCommandEvents = "bidibip.events.command"
	SubjectControlEvents = "bidibip.events.control"
	SubjectGatewayPrefix = "bidibip.gateway."

	// QueueGroup lets several bot replicas share the event stream.
	QueueGroup = "bidibip"
)

// Gateway operations, appended to SubjectGatewayPrefix.
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

// Request is the JSON body of a gateway request. Only the fields an
// operation needs are set.
type Request struct {
	ChannelID   string                `json:"channel_id,omitempty"`
	MessageID   string                `json:"message_id,omitempty"`
	UserID      string                `json:"user_id,omitempty"`
	Ref         *platform.MessageRef  `json:"ref,omitempty"`
	Interaction *platform.Interaction `json:"interaction,omitempty"`
	Message     *platform.Message     `json:"message,omitempty"`
	Commands    []CommandDecl         `json:"commands,omitempty"`
}

// Response is the JSON body of a gateway reply.
type Response struct {
	OK      bool                     `json:"ok"`
	Error   string                   `json:"error,omitempty"`
	Ref     *platform.MessageRef     `json:"ref,omitempty"`
	Message *platform.FetchedMessage `json:"message,omitempty"`
	Name    string                   `json:"name,omitempty"`
}

// CommandDecl is the wire form of a command.Spec.
type CommandDecl struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	MemberOnly  bool         `json:"member_only,omitempty"`
	Options     []OptionDecl `json:"options,omitempty"`
}

// OptionDecl is the wire form of a command.Option.
type OptionDecl struct {
	Key      string   `json:"key"`
	Prompt   string   `json:"prompt"`
	Kind     string   `json:"kind"`
	Choices  []string `json:"choices,omitempty"`
	Required bool     `json:"required"`
}

// Declare converts specs to their wire form.
func Declare(specs []command.Spec) []CommandDecl {
	decls := make([]CommandDecl, 0, len(specs))
	for _, s := range specs {
		d := CommandDecl{
			Name:        s.Name(),
			Description: s.Description(),
			MemberOnly:  s.Access() == command.AccessMemberOnly,
		}
		for _, o := range s.Options() {
			d.Options = append(d.Options, OptionDecl{
				Key:      o.Key,
				Prompt:   o.Prompt,
				Kind:     string(o.Kind),
				Choices:  o.Choices,
				Required: o.Required,
			})
		}
		decls = append(decls, d)
	}
	return decls
}

// headerCarrier adapts NATS headers to propagation.TextMapCarrier.
type headerCarrier struct {
	header nats.Header
}

func (c headerCarrier) Get(key string) string {
	return c.header.Get(key)
}

func (c headerCarrier) Set(key, value string) {
	c.header.Set(key, value)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.header))
	for k := range c.header {
		keys = append(keys, k)
	}
	return keys
}
