// Package quote lets members save messages as quotes and replay them.
package quote

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/i18n"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
)

// Command names.
const (
	CommandQuote    = "quote"
	CommandAddQuote = "add_quote"
	CommandQuotes   = "quotes"
)

// User-facing texts.
const (
	NoQuoteText   = "Je n'ai pas de citation pour cet utilisateur... Mais je suis sûr qu'il est très cool !"
	NotFoundText  = "Je n'ai pas trouvé le message :("
	DuplicateText = "Message déjà en base de donnée !"
	AddedText     = "Citation ajoutée à la base de donnée !"
	ListTitle     = "Liste des pseudos qui ont des quotes"
)

// Module implements the quote commands.
type Module struct {
	platform platform.Platform
	store    Store
	logger   *slog.Logger
	intn     func(n int) int
}

// Option configures the module.
type Option func(*Module)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Module) {
		m.logger = logger
	}
}

// WithRandom replaces the random index source. intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(m *Module) {
		m.intn = intn
	}
}

// New creates the quote module over a store.
func New(p platform.Platform, store Store, opts ...Option) *Module {
	m := &Module{
		platform: p,
		store:    store,
		logger:   slog.Default(),
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements module.Module.
func (m *Module) Name() string { return "quote" }

// Commands implements module.Module.
func (m *Module) Commands() []command.Spec {
	return []command.Spec{
		command.New(CommandQuote, "Envoyer une citation de la personne choisie").
			WithUser("utilisateur", "personne choisie").
			MemberOnly(),
		command.New(CommandAddQuote, "Ajoute une citation à la base de donnée").
			WithText("message", "id du message à citer").
			MemberOnly(),
		command.New(CommandQuotes, "Liste des personnes qui ont des citations"),
	}
}

// Handle implements module.Module.
func (m *Module) Handle(ctx context.Context, inv *module.Invocation) error {
	switch inv.Command() {
	case CommandQuote:
		return m.quote(ctx, inv)
	case CommandAddQuote:
		return m.addQuote(ctx, inv)
	case CommandQuotes:
		return m.list(ctx, inv)
	default:
		return fmt.Errorf("%w: %s", module.ErrUnknownCommand, inv.Command())
	}
}

func (m *Module) quote(ctx context.Context, inv *module.Invocation) error {
	userID, _ := inv.Value("utilisateur")
	quotes, err := m.store.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("list quotes of %s: %w", userID, err)
	}
	if len(quotes) == 0 {
		_, err := m.platform.Reply(ctx, inv.Interaction(), platform.Text(NoQuoteText).AsEphemeral(true))
		return err
	}

	selected := quotes[m.intn(len(quotes))]
	author, err := m.platform.UserName(ctx, userID)
	if err != nil {
		return err
	}
	invoker, err := m.platform.UserName(ctx, inv.User().ID)
	if err != nil {
		return err
	}

	msg := platform.Message{}.WithEmbed(platform.NewEmbed(
		selected.Text,
		fmt.Sprintf("*%s* - Demandé par %s", author, invoker),
	))
	if _, err := m.platform.Send(ctx, inv.ChannelID(), msg); err != nil {
		return err
	}
	return m.platform.Acknowledge(ctx, inv.Interaction())
}

func (m *Module) addQuote(ctx context.Context, inv *module.Invocation) error {
	messageID, _ := inv.Value("message")
	source, err := m.platform.FetchMessage(ctx, inv.ChannelID(), strings.TrimSpace(messageID))
	if err != nil {
		m.logger.WarnContext(ctx, "quote source not found",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
		_, err := m.platform.Reply(ctx, inv.Interaction(), platform.Text(NotFoundText).AsEphemeral(true))
		return err
	}

	added, err := m.store.Append(ctx, source.AuthorID, Quote{ID: source.ID, Text: source.Content})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to save quote",
			slog.String("message_id", source.ID),
			slog.String("error", err.Error()),
		)
		return m.platform.Acknowledge(ctx, inv.Interaction())
	}
	if !added {
		_, err := m.platform.Reply(ctx, inv.Interaction(), platform.Text(DuplicateText).AsEphemeral(true))
		return err
	}
	_, err = m.platform.Reply(ctx, inv.Interaction(), platform.Text(AddedText))
	return err
}

func (m *Module) list(ctx context.Context, inv *module.Invocation) error {
	users, err := m.store.Users(ctx)
	if err != nil {
		return fmt.Errorf("list quoted users: %w", err)
	}

	names := make([]string, 0, len(users))
	for _, id := range users {
		name, err := m.platform.UserName(ctx, id)
		if err != nil {
			m.logger.DebugContext(ctx, "user name lookup failed", slog.String("user_id", id), slog.String("error", err.Error()))
			name = id
		}
		names = append(names, name)
	}

	embed := platform.NewEmbed(ListTitle, strings.Join(i18n.SortStrings(names), "\n"))
	_, err = m.platform.Reply(ctx, inv.Interaction(), platform.Message{}.WithEmbed(embed))
	return err
}

var _ module.Module = (*Module)(nil)
