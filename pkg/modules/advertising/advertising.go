// Package advertising publishes job and project announcements after their
// author has reviewed a private preview.
package advertising

import (
	"context"
	"errors"
	"fmt"

	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
	"github.com/plaenen/bidibip/pkg/validators"
)

// Command names.
const (
	CommandPaid      = "paid"
	CommandUnpaid    = "unpaid"
	CommandFreelance = "freelance"
)

// Choices of the paid command.
const (
	RemunerationPaid  = "Rémunération"
	RemunerationShare = "Si le jeu fonctionne, partage des revenus"
	RemunerationNone  = "Pas de rémunération"
	ContractPermanent = "Permanent"
	ContractFixedTerm = "Contractuel"
	RemoteAccepted    = "🌐 Distanciel accepté"
	RemoteOnSiteOnly  = "🏣 Presentiel seulement"
)

const (
	permanentDuration = "permanent"
	missingOption     = "option manquante"
	missingOptionCap  = "Option manquante"
	missingValue      = "valeur manquante"
)

// Corrective messages.
const (
	UseUnpaidText        = "Pour les projets de loisirs ou pour tout autre type de payement, veuillez utiliser la commande /unpaid."
	DurationRequiredText = "Veuillez spécifier l'option 'duree' dans le cas d'un contrat temporaire"
	PortfolioURLText     = "Le portfolio doit être une URL"
	InvalidChoiceText    = "Une des options n'a pas une valeur autorisée."
)

// Destinations are the channels announcements are published to.
type Destinations struct {
	Paid      string
	Unpaid    string
	Freelance string
}

// Module implements the announcement commands.
type Module struct {
	workflow     *draft.Workflow
	destinations Destinations
	specs        map[string]command.Spec
}

// New creates the module. Drafts go through workflow.
func New(workflow *draft.Workflow, destinations Destinations) *Module {
	m := &Module{workflow: workflow, destinations: destinations}
	m.specs = make(map[string]command.Spec)
	for _, spec := range m.Commands() {
		m.specs[spec.Name()] = spec
	}
	return m
}

// Name implements module.Module.
func (m *Module) Name() string { return "advertising" }

// Commands implements module.Module.
func (m *Module) Commands() []command.Spec {
	return []command.Spec{
		command.New(CommandPaid, "Ajouter une annonce payante").
			WithText("remuneration", "Comment le travail sera t-il compensé ?", RemunerationPaid, RemunerationShare, RemunerationNone).
			WithText("contrat", "Est-ce un contrat permanent ou contractuel ?", ContractPermanent, ContractFixedTerm).
			WithText("role", "Quel rôle recrutes-tu ? (Gameplay developer...)").
			WithText("societe", "Quel est le nom de l'entreprise ?").
			WithText("remote", "Est-ce que le remote est possible ?", RemoteAccepted, RemoteOnSiteOnly).
			WithText("responsabilites", "Liste des responsabilites associes pour ce rôle ?").
			WithText("qualifications", "Lister les qualifications pour ce rôle.").
			WithText("postuler", "Comment peut-on postuler ?").
			WithOptionalText("localisation", "Ou est localisé l'entreprise ?").
			WithOptionalText("duree", "Durée dans le cas d'un contrat non Permanent").
			MemberOnly(),
		command.New(CommandFreelance, "Ajouter une annonce de freelance").
			WithText("nom", "Quel est ton nom, ou le nom de ton studio ?").
			WithText("portfolio", "Entrez l'url de votre site portfolio (URL requis)").
			WithText("services", "Quel est la liste des services que tu proposes ?").
			WithText("contact", "Comment les clients potentiels peuvent-ils vous contacter ?").
			MemberOnly(),
		command.New(CommandUnpaid, "Ajouter une annonce bénévole").
			WithText("titre", "Ajoute un titre qui définit clairement ce que tu cherches").
			WithText("description", "Ajoute une description détaillée du projet et ce dont tu as besoin").
			WithText("contact", "Comment peut-on te contacter ?").
			MemberOnly(),
	}
}

// Handle implements module.Module. Every check runs before the draft exists,
// so a rejected command leaves nothing pending.
func (m *Module) Handle(ctx context.Context, inv *module.Invocation) error {
	var (
		d   draft.Draft
		err error
	)
	switch inv.Command() {
	case CommandPaid:
		d, err = m.paid(inv)
	case CommandUnpaid:
		d = m.unpaid(inv)
	case CommandFreelance:
		d, err = m.freelance(inv)
	default:
		return fmt.Errorf("%w: %s", module.ErrUnknownCommand, inv.Command())
	}
	if err != nil {
		return err
	}

	_, err = m.workflow.Present(ctx, inv, d)
	return err
}

func (m *Module) paid(inv *module.Invocation) (draft.Draft, error) {
	contract := inv.ValueOr("contrat", "")
	b := validators.NewValidationBuilder().
		Add(validators.ValidateEquals(inv.ValueOr("remuneration", ""), RemunerationPaid, "remuneration", UseUnpaidText))
	if contract == ContractFixedTerm {
		b.Add(validators.ValidateRequired(inv.ValueOr("duree", ""), "duree", DurationRequiredText))
	}
	if err := b.FirstError(); err != nil {
		return draft.Draft{}, err
	}
	if err := m.check(inv); err != nil {
		return draft.Draft{}, err
	}

	duration := permanentDuration
	if contract == ContractFixedTerm {
		duration = inv.ValueOr("duree", missingOption)
	}

	embed := platform.NewEmbed(
		inv.ValueOr("role", missingOption)+" Chez "+inv.ValueOr("societe", missingOption),
		inv.ValueOr("remote", missingOption),
	).WithField("Durée du contrat", duration, true)
	if location, ok := inv.Value("localisation"); ok {
		embed = embed.WithField("Localisation", location, true)
	}
	embed = embed.
		WithField("Responsabilités", inv.ValueOr("responsabilites", missingValue), false).
		WithField("Qualifications", inv.ValueOr("qualifications", missingValue), false).
		WithField("Comment postuler", inv.ValueOr("postuler", missingValue), false)

	return draft.New(m.destinations.Paid, platform.Message{}.WithEmbed(embed)), nil
}

func (m *Module) unpaid(inv *module.Invocation) draft.Draft {
	embed := platform.NewEmbed(
		inv.ValueOr("titre", missingOptionCap),
		inv.ValueOr("description", missingOptionCap),
	).WithField("contact", inv.ValueOr("contact", missingOptionCap), false)
	return draft.New(m.destinations.Unpaid, platform.Message{}.WithEmbed(embed))
}

func (m *Module) freelance(inv *module.Invocation) (draft.Draft, error) {
	portfolio := inv.ValueOr("portfolio", missingOption)
	if err := validators.ValidateHTTPURL(portfolio, "portfolio", PortfolioURLText).Err(); err != nil {
		return draft.Draft{}, err
	}

	embed := platform.NewEmbed(inv.ValueOr("nom", missingOptionCap), portfolio).
		WithField("Services", inv.ValueOr("services", missingOptionCap), false).
		WithField("Contacts", inv.ValueOr("contact", missingOptionCap), false)
	return draft.New(m.destinations.Freelance, platform.Message{}.WithEmbed(embed)), nil
}

// check rejects a provided value that is not one of its option's choices.
// Absent options fall back to placeholders in the embed.
func (m *Module) check(inv *module.Invocation) error {
	if err := m.specs[inv.Command()].Check(inv.Values()); errors.Is(err, command.ErrInvalidChoice) {
		return module.Invalid(InvalidChoiceText)
	}
	return nil
}

var _ module.Module = (*Module)(nil)
