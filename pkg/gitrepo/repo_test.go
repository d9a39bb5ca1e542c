package gitrepo_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/plaenen/bidibip/pkg/gitrepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func newRemote(t *testing.T) string {
	t.Helper()
	remote := filepath.Join(t.TempDir(), "remote.git")
	out, err := exec.Command("git", "init", "--bare", remote).CombinedOutput()
	require.NoError(t, err, string(out))
	return remote
}

func TestEnsureClonesOnce(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	remote := newRemote(t)

	repo := gitrepo.Open(filepath.Join(t.TempDir(), "work"))
	assert.False(t, repo.IsRepo(ctx))

	require.NoError(t, repo.Ensure(ctx, remote))
	assert.True(t, repo.IsRepo(ctx))

	// A second call must reuse the existing clone.
	require.NoError(t, repo.Ensure(ctx, "/does/not/exist"))
}

func TestCommitAndPush(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	remote := newRemote(t)

	repo := gitrepo.Open(filepath.Join(t.TempDir(), "work"))
	require.NoError(t, repo.Ensure(ctx, remote))
	require.NoError(t, repo.SetIdentity(ctx, "Test", "test@example.com"))

	require.NoError(t, os.WriteFile(filepath.Join(repo.Dir(), "resources.md"), []byte("- [a](b)\n"), 0o644))
	require.NoError(t, repo.Add(ctx, "resources.md"))
	require.NoError(t, repo.Commit(ctx, "Add resource", ""))
	require.NoError(t, repo.Push(ctx))

	head, err := repo.Head(ctx)
	require.NoError(t, err)
	assert.Len(t, head, 40)

	// The second clone sees the pushed commit.
	other := gitrepo.Open(filepath.Join(t.TempDir(), "other"))
	require.NoError(t, other.Ensure(ctx, remote))
	otherHead, err := other.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, head, otherHead)
}

func TestCommandErrorCarriesOutput(t *testing.T) {
	requireGit(t)
	repo := gitrepo.Open(t.TempDir())

	_, err := repo.Head(context.Background())
	require.Error(t, err)

	var cmdErr *gitrepo.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, []string{"rev-parse", "HEAD"}, cmdErr.Args)
	assert.NotEmpty(t, cmdErr.Output)
}
