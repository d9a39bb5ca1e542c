// Package updater fast-forwards the bot's own checkout before it starts.
package updater

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plaenen/bidibip/pkg/gitrepo"
)

// Repository is the subset of git operations the updater needs.
type Repository interface {
	IsRepo(ctx context.Context) bool
	Head(ctx context.Context) (string, error)
	Pull(ctx context.Context) error
}

// Result describes one update run.
type Result struct {
	Before string
	After  string
}

// Updated reports whether new commits were pulled.
func (r Result) Updated() bool {
	return r.Before != r.After
}

// Updater pulls the latest revision of a checkout.
type Updater struct {
	repo   Repository
	logger *slog.Logger
}

// Option configures an Updater.
type Option func(*Updater)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Updater) {
		u.logger = logger
	}
}

// New creates an updater for repo.
func New(repo Repository, opts ...Option) *Updater {
	u := &Updater{repo: repo, logger: slog.Default()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run pulls once. A changed HEAD only takes effect on the next start.
func (u *Updater) Run(ctx context.Context) (Result, error) {
	if !u.repo.IsRepo(ctx) {
		return Result{}, gitrepo.ErrNotRepository
	}

	before, err := u.repo.Head(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read revision: %w", err)
	}
	if err := u.repo.Pull(ctx); err != nil {
		return Result{Before: before, After: before}, fmt.Errorf("pull: %w", err)
	}
	after, err := u.repo.Head(ctx)
	if err != nil {
		return Result{Before: before, After: before}, fmt.Errorf("read revision: %w", err)
	}

	res := Result{Before: before, After: after}
	if res.Updated() {
		u.logger.InfoContext(ctx, "Update complete", slog.String("from", before), slog.String("to", after))
	} else {
		u.logger.DebugContext(ctx, "Already up to date", slog.String("revision", before))
	}
	return res, nil
}

var _ Repository = (*gitrepo.Repo)(nil)
