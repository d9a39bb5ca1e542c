package credentials_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/plaenen/bidibip/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeeper = "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4="

func TestSealAndDecrypt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token.enc")

	require.NoError(t, credentials.Seal(ctx, testKeeper, path, &credentials.Credentials{Token: "bot-token"}))

	p, err := credentials.NewSecretProvider(ctx, testKeeper, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	token, err := credentials.Token(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "bot-token", token)

	require.NoError(t, p.Close())
	_, err = p.GetCredentials(ctx)
	assert.ErrorIs(t, err, credentials.ErrProviderClosed)
}

func TestSecretProviderWrongKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token.enc")
	require.NoError(t, credentials.Seal(ctx, testKeeper, path, &credentials.Credentials{Token: "bot-token"}))

	_, err := credentials.NewSecretProvider(ctx, "base64key://AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=", path)
	assert.Error(t, err)
}

func TestSealRejectsEmptyToken(t *testing.T) {
	err := credentials.Seal(context.Background(), testKeeper, filepath.Join(t.TempDir(), "x"), &credentials.Credentials{})
	assert.ErrorIs(t, err, credentials.ErrInvalidCredentials)
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("BIDIBIP_TEST_TOKEN", "from-env")
	token, err := credentials.Token(context.Background(), credentials.NewEnvProvider("BIDIBIP_TEST_TOKEN"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)

	_, err = credentials.NewEnvProvider("BIDIBIP_TEST_UNSET").GetCredentials(context.Background())
	assert.ErrorIs(t, err, credentials.ErrInvalidCredentials)
}

func TestChainProviderFallsBack(t *testing.T) {
	chain := credentials.NewChainProvider(
		credentials.NewEnvProvider("BIDIBIP_TEST_UNSET"),
		credentials.NewStaticProvider("static"),
	)
	token, err := credentials.Token(context.Background(), chain)
	require.NoError(t, err)
	assert.Equal(t, "static", token)
	assert.NoError(t, chain.Close())

	_, err = credentials.NewChainProvider(credentials.NewEnvProvider("BIDIBIP_TEST_UNSET")).GetCredentials(context.Background())
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)
}

func TestExpiredCredentials(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	c := &credentials.Credentials{Token: "t", ExpiresAt: &past}
	assert.True(t, c.IsExpired())
	assert.Equal(t, "credentials(***)", c.String())
}
