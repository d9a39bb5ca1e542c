package draft_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
	"github.com/plaenen/bidibip/pkg/platform/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	presented int
	outcomes  []draft.Outcome
}

func (r *recorder) DraftPresented(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presented++
}

func (r *recorder) DraftResolved(_ context.Context, o draft.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func newInvocation() *module.Invocation {
	in := memory.NewInteraction("guild", "dm", platform.User{ID: "u1", Name: "Alice"})
	return module.NewInvocation(in, "unpaid", access.NewRoleSet("member"), nil)
}

func sampleDraft() draft.Draft {
	msg := platform.Message{}.WithEmbed(platform.NewEmbed("Cherche artiste", "Projet de jeu").
		WithField("contact", "alice#0001", false))
	return draft.New("unpaid-channel", msg)
}

func TestPresentShowsEphemeralPreview(t *testing.T) {
	ctx := context.Background()
	p := memory.New()
	store := draft.NewStore()
	rec := &recorder{}
	wf := draft.NewWorkflow(p, store, draft.WithRecorder(rec))
	inv := newInvocation()

	key, err := wf.Present(ctx, inv, sampleDraft())
	require.NoError(t, err)
	assert.Equal(t, inv.Interaction().ID, key)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, rec.presented)

	replies := p.Calls(memory.OpReply)
	require.Len(t, replies, 1)
	preview := replies[0].Message
	assert.True(t, preview.Ephemeral)
	assert.Equal(t, draft.PreviewText, preview.Text)
	require.Len(t, preview.Components, 1)
	buttons := preview.Components[0].Buttons
	require.Len(t, buttons, 2)
	assert.Equal(t, draft.ControlID(draft.ActionCancel, key), buttons[0].ID)
	assert.Equal(t, draft.ControlID(draft.ActionConfirm, key), buttons[1].ID)
	assert.Empty(t, p.Calls(memory.OpSend))
}

func TestPresentFailureLeavesNoEntry(t *testing.T) {
	p := memory.New()
	p.FailOn(memory.OpReply, errors.New("interaction expired"))
	store := draft.NewStore()
	wf := draft.NewWorkflow(p, store)

	_, err := wf.Present(context.Background(), newInvocation(), sampleDraft())
	assert.ErrorIs(t, err, platform.ErrPlatform)
	assert.Zero(t, store.Len())
}

func TestPresentSameInteractionTwice(t *testing.T) {
	p := memory.New()
	store := draft.NewStore()
	wf := draft.NewWorkflow(p, store)
	inv := newInvocation()

	_, err := wf.Present(context.Background(), inv, sampleDraft())
	require.NoError(t, err)
	_, err = wf.Present(context.Background(), inv, sampleDraft())
	assert.ErrorIs(t, err, draft.ErrKeyInUse)
	assert.Len(t, p.Calls(memory.OpReply), 1)
}

func TestResolveConfirmPublishesOnce(t *testing.T) {
	ctx := context.Background()
	p := memory.New()
	store := draft.NewStore()
	rec := &recorder{}
	wf := draft.NewWorkflow(p, store, draft.WithRecorder(rec))

	key, err := wf.Present(ctx, newInvocation(), sampleDraft())
	require.NoError(t, err)

	entry, ok := store.Take(key)
	require.True(t, ok)
	require.NoError(t, wf.Resolve(ctx, entry, draft.ActionConfirm))

	sends := p.Calls(memory.OpSend)
	require.Len(t, sends, 1)
	assert.Equal(t, "unpaid-channel", sends[0].ChannelID)
	assert.False(t, sends[0].Message.Ephemeral)
	assert.Empty(t, sends[0].Message.Components)
	assert.Empty(t, sends[0].Message.Text)
	require.Len(t, sends[0].Message.Embeds, 1)

	edits := p.Calls(memory.OpEdit)
	require.Len(t, edits, 1)
	assert.Equal(t, entry.Preview, edits[0].Ref)
	assert.Contains(t, edits[0].Message.Text, sends[0].Ref.Link("guild"))
	assert.True(t, strings.HasPrefix(edits[0].Message.Text, "Ton annonce a bien été publiée"))
	assert.Equal(t, []draft.Outcome{draft.OutcomePublished}, rec.outcomes)
}

func TestResolveCancelDeletesPreview(t *testing.T) {
	ctx := context.Background()
	p := memory.New()
	store := draft.NewStore()
	wf := draft.NewWorkflow(p, store)

	key, err := wf.Present(ctx, newInvocation(), sampleDraft())
	require.NoError(t, err)
	entry, _ := store.Take(key)

	require.NoError(t, wf.Resolve(ctx, entry, draft.ActionCancel))
	assert.Empty(t, p.Calls(memory.OpSend))
	deletes := p.Calls(memory.OpDelete)
	require.Len(t, deletes, 1)
	assert.Equal(t, entry.Preview, deletes[0].Ref)
}

func TestResolvePublishFailureEditsPreview(t *testing.T) {
	ctx := context.Background()
	p := memory.New()
	store := draft.NewStore()
	rec := &recorder{}
	wf := draft.NewWorkflow(p, store, draft.WithRecorder(rec))

	key, err := wf.Present(ctx, newInvocation(), sampleDraft())
	require.NoError(t, err)
	entry, _ := store.Take(key)

	p.FailOn(memory.OpSend, errors.New("missing access"))
	err = wf.Resolve(ctx, entry, draft.ActionConfirm)
	assert.ErrorIs(t, err, platform.ErrPlatform)

	edits := p.Calls(memory.OpEdit)
	require.Len(t, edits, 1)
	assert.Equal(t, draft.PublishFailedText, edits[0].Message.Text)
	assert.Equal(t, []draft.Outcome{draft.OutcomeFailed}, rec.outcomes)
	// No retry: the draft is gone.
	assert.Zero(t, store.Len())
}

func TestResolveUnknownAction(t *testing.T) {
	p := memory.New()
	wf := draft.NewWorkflow(p, draft.NewStore())
	err := wf.Resolve(context.Background(), draft.Entry{Key: "k"}, "archive")
	assert.ErrorIs(t, err, draft.ErrUnknownAction)
	assert.Empty(t, p.Calls())
}
