package updater_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/plaenen/bidibip/pkg/gitrepo"
	"github.com/plaenen/bidibip/pkg/updater"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	isRepo  bool
	heads   []string
	pullErr error
}

func (f *fakeRepo) IsRepo(context.Context) bool { return f.isRepo }

func (f *fakeRepo) Head(context.Context) (string, error) {
	head := f.heads[0]
	if len(f.heads) > 1 {
		f.heads = f.heads[1:]
	}
	return head, nil
}

func (f *fakeRepo) Pull(context.Context) error { return f.pullErr }

func TestRunReportsUpdate(t *testing.T) {
	res, err := updater.New(&fakeRepo{isRepo: true, heads: []string{"a", "b"}}).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Updated())
	assert.Equal(t, "b", res.After)
}

func TestRunUpToDate(t *testing.T) {
	res, err := updater.New(&fakeRepo{isRepo: true, heads: []string{"a"}}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Updated())
}

func TestRunFailures(t *testing.T) {
	_, err := updater.New(&fakeRepo{}).Run(context.Background())
	assert.ErrorIs(t, err, gitrepo.ErrNotRepository)

	pullErr := errors.New("network down")
	res, err := updater.New(&fakeRepo{isRepo: true, heads: []string{"a"}, pullErr: pullErr}).Run(context.Background())
	assert.ErrorIs(t, err, pullErr)
	assert.False(t, res.Updated())
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestRunAgainstRealCheckout(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	ctx := context.Background()
	root := t.TempDir()
	remote := filepath.Join(root, "remote.git")
	git(t, root, "init", "--bare", remote)

	upstream := gitrepo.Open(filepath.Join(root, "upstream"))
	require.NoError(t, upstream.Ensure(ctx, remote))
	require.NoError(t, upstream.SetIdentity(ctx, "Test", "test@example.com"))
	require.NoError(t, os.WriteFile(filepath.Join(upstream.Dir(), "VERSION"), []byte("1\n"), 0o644))
	require.NoError(t, upstream.Add(ctx, "VERSION"))
	require.NoError(t, upstream.Commit(ctx, "v1", ""))
	require.NoError(t, upstream.Push(ctx))

	deployed := gitrepo.Open(filepath.Join(root, "deployed"))
	require.NoError(t, deployed.Ensure(ctx, remote))

	require.NoError(t, os.WriteFile(filepath.Join(upstream.Dir(), "VERSION"), []byte("2\n"), 0o644))
	require.NoError(t, upstream.Add(ctx, "VERSION"))
	require.NoError(t, upstream.Commit(ctx, "v2", ""))
	require.NoError(t, upstream.Push(ctx))

	res, err := updater.New(deployed).Run(ctx)
	require.NoError(t, err)
	assert.True(t, res.Updated())

	want, err := upstream.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, res.After)
}
