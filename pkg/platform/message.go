package platform

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// Message and embed limits enforced by the chat platform.
const (
	MaxMessageLength    = 2000
	MaxEmbedTitle       = 256
	MaxEmbedDescription = 4096
	MaxFieldName        = 256
	MaxFieldValue       = 1024
	MaxEmbedFields      = 25
)

// ButtonStyle controls how a button is rendered.
type ButtonStyle string

const (
	ButtonPrimary ButtonStyle = "primary"
	ButtonSuccess ButtonStyle = "success"
	ButtonDanger  ButtonStyle = "danger"
)

// Button is a clickable control attached to a message.
type Button struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Style ButtonStyle `json:"style"`
}

// ActionRow groups buttons on one line.
type ActionRow struct {
	Buttons []Button `json:"buttons"`
}

// Field is a titled block inside an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed is a rich message block. Methods return modified copies.
type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// NewEmbed creates an embed with a title and description, truncated to
// platform limits.
func NewEmbed(title, description string) Embed {
	return Embed{
		Title:       Truncate(title, MaxEmbedTitle),
		Description: Truncate(description, MaxEmbedDescription),
	}
}

// WithField returns a copy with a field appended. Fields past the platform
// maximum are dropped.
func (e Embed) WithField(name, value string, inline bool) Embed {
	if len(e.Fields) >= MaxEmbedFields {
		return e
	}
	e.Fields = append(slices.Clone(e.Fields), Field{
		Name:   Truncate(name, MaxFieldName),
		Value:  Truncate(value, MaxFieldValue),
		Inline: inline,
	})
	return e
}

// WithColor returns a copy with the sidebar color set.
func (e Embed) WithColor(color int) Embed {
	e.Fields = slices.Clone(e.Fields)
	e.Color = color
	return e
}

// Message is an outgoing message payload. It is a value: builder methods
// never modify the receiver, so a preview and its published variant never
// share state.
type Message struct {
	Text       string      `json:"text,omitempty"`
	Embeds     []Embed     `json:"embeds,omitempty"`
	Components []ActionRow `json:"components,omitempty"`
	Ephemeral  bool        `json:"ephemeral,omitempty"`
}

// Text creates a plain text message.
func Text(text string) Message {
	return Message{Text: text}
}

// WithText returns a copy with the text replaced.
func (m Message) WithText(text string) Message {
	m = m.clone()
	m.Text = text
	return m
}

// WithEmbed returns a copy with an embed appended.
func (m Message) WithEmbed(e Embed) Message {
	m = m.clone()
	e.Fields = slices.Clone(e.Fields)
	m.Embeds = append(m.Embeds, e)
	return m
}

// WithRow returns a copy with an action row appended.
func (m Message) WithRow(buttons ...Button) Message {
	m = m.clone()
	m.Components = append(m.Components, ActionRow{Buttons: slices.Clone(buttons)})
	return m
}

// WithoutComponents returns a copy with every control removed.
func (m Message) WithoutComponents() Message {
	m = m.clone()
	m.Components = nil
	return m
}

// AsEphemeral returns a copy visible only to the invoking user when ephemeral is true.
func (m Message) AsEphemeral(ephemeral bool) Message {
	m = m.clone()
	m.Ephemeral = ephemeral
	return m
}

// IsEmpty reports whether the message carries no content.
func (m Message) IsEmpty() bool {
	return m.Text == "" && len(m.Embeds) == 0
}

func (m Message) clone() Message {
	out := m
	out.Embeds = make([]Embed, len(m.Embeds))
	for i, e := range m.Embeds {
		e.Fields = slices.Clone(e.Fields)
		out.Embeds[i] = e
	}
	if len(m.Embeds) == 0 {
		out.Embeds = nil
	}
	out.Components = nil
	for _, row := range m.Components {
		out.Components = append(out.Components, ActionRow{Buttons: slices.Clone(row.Buttons)})
	}
	return out
}

// MessageRef locates a message that was sent or replied.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`

	// InteractionToken is set when the message is an interaction reply; the
	// platform only lets such replies be edited or deleted through the token.
	InteractionToken string `json:"interaction_token,omitempty"`
}

// Link returns the public URL of the message inside a guild.
func (r MessageRef) Link(guildID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, r.ChannelID, r.MessageID)
}

// OriginalResponse references the first reply to an interaction.
func OriginalResponse(in Interaction) MessageRef {
	return MessageRef{
		ChannelID:        in.ChannelID,
		MessageID:        "@original",
		InteractionToken: in.Token,
	}
}

// FetchedMessage is an existing message read back from the platform.
type FetchedMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
}

// Truncate shortens s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
