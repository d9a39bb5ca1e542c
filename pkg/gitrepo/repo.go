// Package gitrepo drives a local git working tree through the git binary.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotRepository is returned when the directory is not a git working tree.
var ErrNotRepository = errors.New("not a git repository")

// CommandError reports a failed git invocation with its combined output.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Output))
}

func (e *CommandError) Unwrap() error { return e.Err }

// Repo is a working tree rooted at Dir. It is not safe for concurrent
// mutation; callers serialize writes.
type Repo struct {
	dir    string
	binary string
}

// Option configures a Repo.
type Option func(*Repo)

// WithBinary overrides the git executable.
func WithBinary(path string) Option {
	return func(r *Repo) {
		r.binary = path
	}
}

// Open returns a handle on dir. The directory does not need to exist yet.
func Open(dir string, opts ...Option) *Repo {
	r := &Repo{dir: dir, binary: "git"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the working tree root.
func (r *Repo) Dir() string { return r.dir }

// IsRepo reports whether Dir is the root of a working tree.
func (r *Repo) IsRepo(ctx context.Context) bool {
	out, err := r.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return false
	}
	top, err := realpath(strings.TrimSpace(out))
	if err != nil {
		return false
	}
	dir, err := realpath(r.dir)
	return err == nil && top == dir
}

// Ensure clones remote into Dir unless a working tree already exists there.
func (r *Repo) Ensure(ctx context.Context, remote string) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", r.dir, err)
	}
	if r.IsRepo(ctx) {
		return nil
	}
	_, err := r.run(ctx, "clone", remote, ".")
	return err
}

// SetIdentity configures the committer for this working tree only.
func (r *Repo) SetIdentity(ctx context.Context, name, email string) error {
	if _, err := r.run(ctx, "config", "user.name", name); err != nil {
		return err
	}
	_, err := r.run(ctx, "config", "user.email", email)
	return err
}

// Add stages paths relative to Dir.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	_, err := r.run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// Commit records the staged changes. An empty author uses the configured
// identity.
func (r *Repo) Commit(ctx context.Context, message, author string) error {
	args := []string{"commit", "-m", message}
	if author != "" {
		args = append(args, "--author", author)
	}
	_, err := r.run(ctx, args...)
	return err
}

// Push pushes the current branch to origin.
func (r *Repo) Push(ctx context.Context) error {
	_, err := r.run(ctx, "push", "origin", "HEAD")
	return err
}

// Pull fast-forwards the current branch from its upstream.
func (r *Repo) Pull(ctx context.Context) error {
	_, err := r.run(ctx, "pull", "--ff-only")
	return err
}

// Head returns the commit hash of HEAD.
func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), &CommandError{Args: args, Output: out.String(), Err: err}
	}
	return out.String(), nil
}

func realpath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
