package advertising_test

import (
	"context"
	"strings"
	"testing"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/modules/advertising"
	"github.com/plaenen/bidibip/pkg/platform"
	"github.com/plaenen/bidibip/pkg/platform/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var destinations = advertising.Destinations{Paid: "paid-ch", Unpaid: "unpaid-ch", Freelance: "freelance-ch"}

func setup() (*advertising.Module, *memory.Platform, *draft.Store) {
	p := memory.New()
	store := draft.NewStore()
	return advertising.New(draft.NewWorkflow(p, store), destinations), p, store
}

func invoke(name string, values map[string]string) *module.Invocation {
	in := memory.NewInteraction("guild", "dm", platform.User{ID: "u1", Name: "Alice"})
	return module.NewInvocation(in, name, access.NewRoleSet("member"), values)
}

func paidValues() map[string]string {
	return map[string]string{
		"remuneration":    advertising.RemunerationPaid,
		"contrat":         advertising.ContractPermanent,
		"role":            "Gameplay developer",
		"societe":         "Studio",
		"remote":          advertising.RemoteAccepted,
		"responsabilites": "Coder",
		"qualifications":  "C++",
		"postuler":        "jobs@example.com",
	}
}

func assertRejected(t *testing.T, err error, message string, store *draft.Store, p *memory.Platform) {
	t.Helper()
	require.Error(t, err)
	var verr *module.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, message, verr.Message)
	assert.Zero(t, store.Len())
	assert.Empty(t, p.Calls())
}

func TestCommandsAreValid(t *testing.T) {
	m, _, _ := setup()
	reg := module.NewRegistry()
	require.NoError(t, reg.Register(m))
	assert.Equal(t, 3, reg.Len())
}

func TestPaidPresentsDraft(t *testing.T) {
	m, p, store := setup()
	values := paidValues()
	values["localisation"] = "Paris"

	require.NoError(t, m.Handle(context.Background(), invoke(advertising.CommandPaid, values)))

	assert.Equal(t, 1, store.Len())
	replies := p.Calls(memory.OpReply)
	require.Len(t, replies, 1)
	require.Len(t, replies[0].Message.Embeds, 1)

	embed := replies[0].Message.Embeds[0]
	assert.Equal(t, "Gameplay developer Chez Studio", embed.Title)
	assert.Equal(t, advertising.RemoteAccepted, embed.Description)
	names := make([]string, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Durée du contrat", "Localisation", "Responsabilités", "Qualifications", "Comment postuler"}, names)
	assert.Equal(t, "permanent", embed.Fields[0].Value)
}

func TestPaidRejectsNonPaidRemuneration(t *testing.T) {
	m, p, store := setup()
	values := paidValues()
	values["remuneration"] = advertising.RemunerationShare

	err := m.Handle(context.Background(), invoke(advertising.CommandPaid, values))
	assertRejected(t, err, advertising.UseUnpaidText, store, p)
}

func TestPaidFixedTermRequiresDuration(t *testing.T) {
	m, p, store := setup()
	values := paidValues()
	values["contrat"] = advertising.ContractFixedTerm

	err := m.Handle(context.Background(), invoke(advertising.CommandPaid, values))
	assertRejected(t, err, advertising.DurationRequiredText, store, p)

	values["duree"] = "6 mois"
	require.NoError(t, m.Handle(context.Background(), invoke(advertising.CommandPaid, values)))
	replies := p.Calls(memory.OpReply)
	require.Len(t, replies, 1)
	assert.Equal(t, "6 mois", replies[0].Message.Embeds[0].Fields[0].Value)
}

func TestPaidRejectsUnknownChoice(t *testing.T) {
	m, p, store := setup()
	values := paidValues()
	values["remote"] = "Sur la lune"

	err := m.Handle(context.Background(), invoke(advertising.CommandPaid, values))
	assertRejected(t, err, advertising.InvalidChoiceText, store, p)
}

func TestPaidMissingOptionsFallBackButChoicesAreChecked(t *testing.T) {
	m, p, store := setup()
	values := paidValues()
	delete(values, "role")
	delete(values, "qualifications")

	require.NoError(t, m.Handle(context.Background(), invoke(advertising.CommandPaid, values)))
	require.Equal(t, 1, store.Len())
	embed := p.Calls(memory.OpReply)[0].Message.Embeds[0]
	assert.Equal(t, "option manquante Chez Studio", embed.Title)

	m, p, store = setup()
	values["remote"] = "Sur la lune"
	err := m.Handle(context.Background(), invoke(advertising.CommandPaid, values))
	assertRejected(t, err, advertising.InvalidChoiceText, store, p)
}

func TestFreelancePortfolioMustBeURL(t *testing.T) {
	m, p, store := setup()
	values := map[string]string{"nom": "Studio", "portfolio": "mon site", "services": "3D", "contact": "mail"}

	err := m.Handle(context.Background(), invoke(advertising.CommandFreelance, values))
	assertRejected(t, err, advertising.PortfolioURLText, store, p)

	values["portfolio"] = "https://studio.example.com"
	require.NoError(t, m.Handle(context.Background(), invoke(advertising.CommandFreelance, values)))
	assert.Equal(t, 1, store.Len())
}

func TestUnpaidUsesPlaceholdersAndTruncates(t *testing.T) {
	m, p, _ := setup()
	long := strings.Repeat("é", platform.MaxFieldValue+10)

	require.NoError(t, m.Handle(context.Background(), invoke(advertising.CommandUnpaid, map[string]string{"contact": long})))

	replies := p.Calls(memory.OpReply)
	require.Len(t, replies, 1)
	embed := replies[0].Message.Embeds[0]
	assert.Equal(t, "Option manquante", embed.Title)
	assert.Equal(t, "Option manquante", embed.Description)
	assert.Equal(t, platform.MaxFieldValue, len([]rune(embed.Fields[0].Value)))
}

func TestConfirmPublishesToCategoryChannel(t *testing.T) {
	ctx := context.Background()
	m, p, store := setup()
	inv := invoke(advertising.CommandUnpaid, map[string]string{"titre": "Cherche artiste", "description": "Jeu", "contact": "alice"})
	require.NoError(t, m.Handle(ctx, inv))

	entry, ok := store.Take(inv.Interaction().ID)
	require.True(t, ok)
	wf := draft.NewWorkflow(p, store)
	require.NoError(t, wf.Resolve(ctx, entry, draft.ActionConfirm))

	sends := p.Calls(memory.OpSend)
	require.Len(t, sends, 1)
	assert.Equal(t, "unpaid-ch", sends[0].ChannelID)
	assert.False(t, sends[0].Message.Ephemeral)
	assert.Empty(t, sends[0].Message.Components)
}
