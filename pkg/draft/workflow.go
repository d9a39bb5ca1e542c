// Package draft implements the preview, confirm or cancel, then publish flow
// used by commands that show their author an ephemeral draft before posting
// it publicly.
package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// User-facing texts.
const (
	PreviewText       = "Prends le temps de vérifier ton message :"
	PublishedText     = "Ton annonce a bien été publiée : %s"
	PublishFailedText = "Impossible de publier ton annonce :( Réessaie plus tard."
	CancelLabel       = "Annuler"
	ConfirmLabel      = "Envoyer"
)

// ErrUnknownAction is returned by Resolve for an unrecognised control.
var ErrUnknownAction = errors.New("unknown draft action")

// Draft is a message that is not published yet, with its destination.
type Draft struct {
	Destination string
	Message     platform.Message
}

// New creates a draft for a destination channel.
func New(destination string, msg platform.Message) Draft {
	return Draft{Destination: destination, Message: msg}
}

// Outcome is how a pending draft ended.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Recorder observes workflow transitions, typically for metrics.
type Recorder interface {
	DraftPresented(ctx context.Context)
	DraftResolved(ctx context.Context, outcome Outcome, age time.Duration)
}

// Workflow presents drafts and resolves them when a control is activated.
type Workflow struct {
	platform platform.Platform
	store    *Store
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
	now      func() time.Time
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(w *Workflow) {
		w.tracer = tracer
	}
}

// WithRecorder sets the transition recorder.
func WithRecorder(r Recorder) Option {
	return func(w *Workflow) {
		w.recorder = r
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// NewWorkflow creates a workflow over a platform and an injected store.
func NewWorkflow(p platform.Platform, store *Store, opts ...Option) *Workflow {
	w := &Workflow{
		platform: p,
		store:    store,
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("draft"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Store returns the pending draft store.
func (w *Workflow) Store() *Store {
	return w.store
}

// Present shows the draft to its author with confirm and cancel controls and
// returns the correlation key. The entry is recorded before the preview is
// sent so a fast click always finds it; a failed preview removes it again.
func (w *Workflow) Present(ctx context.Context, inv *module.Invocation, d Draft) (string, error) {
	ctx, span := w.tracer.Start(ctx, "draft.Present")
	defer span.End()

	in := inv.Interaction()
	key := in.ID
	if key == "" {
		return "", ErrEmptyKey
	}
	span.SetAttributes(attribute.String("draft.key", key), attribute.String("draft.destination", d.Destination))

	preview := d.Message.
		WithText(PreviewText).
		AsEphemeral(true).
		WithRow(
			platform.Button{ID: ControlID(ActionCancel, key), Label: CancelLabel, Style: platform.ButtonDanger},
			platform.Button{ID: ControlID(ActionConfirm, key), Label: ConfirmLabel, Style: platform.ButtonSuccess},
		)

	entry := Entry{
		Draft:      d,
		Invocation: inv,
		Preview:    platform.OriginalResponse(in),
		CreatedAt:  w.now(),
	}
	if err := w.store.Put(key, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("store draft %s: %w", key, err)
	}

	if _, err := w.platform.Reply(ctx, in, preview); err != nil {
		w.store.Take(key)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if w.recorder != nil {
		w.recorder.DraftPresented(ctx)
	}
	w.logger.DebugContext(ctx, "draft presented",
		slog.String("correlation_key", key),
		slog.String("user_id", in.User.ID),
		slog.String("destination", d.Destination),
	)
	return key, nil
}

// Resolve finishes a pending entry taken from the store. Publishing is a
// single attempt; a failure is reported on the preview and returned.
func (w *Workflow) Resolve(ctx context.Context, entry Entry, action string) error {
	ctx, span := w.tracer.Start(ctx, "draft.Resolve",
		trace.WithAttributes(
			attribute.String("draft.key", entry.Key),
			attribute.String("draft.action", action),
		),
	)
	defer span.End()

	var (
		outcome Outcome
		err     error
	)
	switch action {
	case ActionConfirm:
		outcome, err = w.publish(ctx, entry)
	case ActionCancel:
		outcome = OutcomeCancelled
		err = w.platform.Delete(ctx, entry.Preview)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if outcome != "" && w.recorder != nil {
		w.recorder.DraftResolved(ctx, outcome, w.now().Sub(entry.CreatedAt))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	w.logger.InfoContext(ctx, "draft resolved",
		slog.String("correlation_key", entry.Key),
		slog.String("outcome", string(outcome)),
	)
	return nil
}

func (w *Workflow) publish(ctx context.Context, entry Entry) (Outcome, error) {
	msg := entry.Draft.Message.AsEphemeral(false).WithoutComponents()
	ref, err := w.platform.Send(ctx, entry.Draft.Destination, msg)
	if err != nil {
		if editErr := w.platform.Edit(ctx, entry.Preview, platform.Text(PublishFailedText)); editErr != nil {
			err = errors.Join(err, editErr)
		}
		return OutcomeFailed, fmt.Errorf("publish draft %s: %w", entry.Key, err)
	}

	guildID := ""
	if entry.Invocation != nil {
		guildID = entry.Invocation.GuildID()
	}
	confirmation := platform.Text(fmt.Sprintf(PublishedText, ref.Link(guildID)))
	if err := w.platform.Edit(ctx, entry.Preview, confirmation); err != nil {
		return OutcomePublished, fmt.Errorf("confirm draft %s: %w", entry.Key, err)
	}
	return OutcomePublished, nil
}
