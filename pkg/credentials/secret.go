package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gocloud.dev/secrets"
	// Keeper drivers are opt-in; the binary registers the ones it supports.
	_ "gocloud.dev/secrets/localsecrets"
)

// ErrProviderClosed is returned when attempting to use a closed provider.
var ErrProviderClosed = errors.New("provider is closed")

// DefaultCacheTTL is how long decrypted credentials are reused.
const DefaultCacheTTL = 5 * time.Minute

// SecretProvider decrypts a sealed token file with a gocloud keeper.
//
// Keeper URL examples:
//   - "base64key://<32-byte key, base64>" for local development
//   - "awskms://...", "gcpkms://...", "hashivault://..." when the matching
//     driver is linked in
type SecretProvider struct {
	keeper   *secrets.Keeper
	path     string
	cacheTTL time.Duration

	mu          sync.Mutex
	cached      *Credentials
	cacheExpiry time.Time
	closed      bool
}

// NewSecretProvider opens the keeper and decrypts path once to fail fast.
func NewSecretProvider(ctx context.Context, keeperURL, path string) (*SecretProvider, error) {
	if keeperURL == "" {
		return nil, errors.New("secret keeper URL is required")
	}
	keeper, err := secrets.OpenKeeper(ctx, keeperURL)
	if err != nil {
		return nil, fmt.Errorf("open secret keeper: %w", err)
	}

	p := &SecretProvider{keeper: keeper, path: path, cacheTTL: DefaultCacheTTL}
	if _, err := p.GetCredentials(ctx); err != nil {
		_ = keeper.Close()
		return nil, fmt.Errorf("load initial credentials: %w", err)
	}
	return p, nil
}

// GetCredentials returns cached credentials or decrypts the file again.
func (p *SecretProvider) GetCredentials(ctx context.Context) (*Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrProviderClosed
	}
	if p.cached != nil && time.Now().Before(p.cacheExpiry) {
		return p.cached, nil
	}

	ciphertext, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read secret file: %w", err)
	}
	plaintext, err := p.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt secret: %w", err)
	}
	creds, err := decodeSecret(plaintext)
	if err != nil {
		return nil, err
	}

	p.cached = creds
	p.cacheExpiry = time.Now().Add(p.cacheTTL)
	return creds, nil
}

// Close releases the keeper.
func (p *SecretProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.keeper.Close()
}

// Seal encrypts creds with the keeper and writes the ciphertext to path.
func Seal(ctx context.Context, keeperURL, path string, creds *Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	keeper, err := secrets.OpenKeeper(ctx, keeperURL)
	if err != nil {
		return fmt.Errorf("open secret keeper: %w", err)
	}
	defer keeper.Close()

	plaintext, err := json.Marshal(SecretData{Credentials: creds, Version: 1, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	ciphertext, err := keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return fmt.Errorf("encrypt credentials: %w", err)
	}
	if err := os.WriteFile(path, ciphertext, 0o600); err != nil {
		return fmt.Errorf("write secret file: %w", err)
	}
	return nil
}
