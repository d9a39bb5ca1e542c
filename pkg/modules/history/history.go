// Package history archives shared resources in a git repository.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/gitrepo"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/platform"
	"github.com/plaenen/bidibip/pkg/validators"
)

const (
	// ResourcesFile is the archive file inside the repository.
	ResourcesFile = "resources.md"

	// Author is the identity of every archive commit.
	Author     = "Anonymous <>"
	authorName = "Anonymous"
)

// User-facing texts.
const (
	SavedText       = "Ressource sauvegardée !"
	FailedText      = "Impossible de sauvegarder la ressource :("
	UnavailableText = "L'historique des ressources n'est pas disponible."
	LinkURLText     = "Le lien doit être une URL"
)

// ErrNoRemote is returned by Start when no repository is configured.
var ErrNoRemote = errors.New("no history repository configured")

// Repository is the git working tree the archive lives in.
type Repository interface {
	Dir() string
	Ensure(ctx context.Context, remote string) error
	SetIdentity(ctx context.Context, name, email string) error
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message, author string) error
	Push(ctx context.Context) error
}

// Module implements the save-resource command.
type Module struct {
	platform platform.Platform
	repo     Repository
	remote   string
	logger   *slog.Logger
	now      func() time.Time

	ready atomic.Bool
	// mu serializes writes to the single working tree.
	mu sync.Mutex
}

// Option configures the module.
type Option func(*Module)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Module) {
		m.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Module) {
		m.now = now
	}
}

// New creates the module over a working tree cloned from remote.
func New(p platform.Platform, repo Repository, remote string, opts ...Option) *Module {
	m := &Module{
		platform: p,
		repo:     repo,
		remote:   remote,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) Name() string { return "history" }

func (m *Module) Commands() []command.Spec {
	return []command.Spec{
		command.New("save-resource", "Sauvegarde une nouvelle resource").
			WithText("titre", "Titre de la ressource").
			WithText("lien", "Lien vers la ressource").
			MemberOnly(),
	}
}

// Start prepares the local clone. The command stays registered when it fails
// and answers that the archive is unavailable.
func (m *Module) Start(ctx context.Context) error {
	if m.remote == "" {
		return ErrNoRemote
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.repo.Ensure(ctx, m.remote); err != nil {
		return fmt.Errorf("clone history repository: %w", err)
	}
	if err := m.repo.SetIdentity(ctx, authorName, ""); err != nil {
		return fmt.Errorf("configure history repository: %w", err)
	}
	m.ready.Store(true)
	return nil
}

func (m *Module) Handle(ctx context.Context, inv *module.Invocation) error {
	title := inv.ValueOr("titre", "")
	link := inv.ValueOr("lien", "")
	if err := validators.ValidateHTTPURL(link, "lien", LinkURLText).Err(); err != nil {
		return err
	}
	if !m.ready.Load() {
		return m.reply(ctx, inv, UnavailableText)
	}

	user := inv.User().Name
	if user == "" {
		user = inv.User().ID
	}
	line := fmt.Sprintf("- [%s](%s) (%s, %s)\n", title, link, user, m.now().Format(time.DateOnly))

	if err := m.save(ctx, title, line); err != nil {
		m.logger.ErrorContext(ctx, "failed to save resource",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return m.reply(ctx, inv, FailedText)
	}
	return m.reply(ctx, inv, SavedText)
}

func (m *Module) save(ctx context.Context, title, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(m.repo.Dir(), ResourcesFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := m.repo.Add(ctx, ResourcesFile); err != nil {
		return err
	}
	if err := m.repo.Commit(ctx, "Ajout de "+title, Author); err != nil {
		return err
	}
	return m.repo.Push(ctx)
}

func (m *Module) reply(ctx context.Context, inv *module.Invocation, text string) error {
	_, err := m.platform.Reply(ctx, inv.Interaction(), platform.Text(text).AsEphemeral(true))
	return err
}

var (
	_ module.Module  = (*Module)(nil)
	_ module.Starter = (*Module)(nil)
	_ Repository     = (*gitrepo.Repo)(nil)
)
