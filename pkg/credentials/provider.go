// Package credentials resolves the token the bot uses to authenticate to the
// chat gateway. Tokens come from the environment, a static value, or a file
// sealed with a gocloud.dev/secrets keeper.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCredentialsExpired is returned when credentials have expired.
	ErrCredentialsExpired = errors.New("credentials expired")

	// ErrInvalidCredentials is returned when credentials are malformed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoCredentials is returned when no provider can supply a token.
	ErrNoCredentials = errors.New("no credentials available")
)

// Credentials is a bot token with optional expiry.
type Credentials struct {
	Token     string            `json:"token"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// IsExpired checks if the credentials have expired.
func (c *Credentials) IsExpired() bool {
	return c.ExpiresAt != nil && time.Now().After(*c.ExpiresAt)
}

// Validate ensures the credentials carry a token.
func (c *Credentials) Validate() error {
	if c == nil || c.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidCredentials)
	}
	return nil
}

// String never reveals the token.
func (c *Credentials) String() string {
	return "credentials(***)"
}

// SecretData is the plaintext sealed into a secret file.
type SecretData struct {
	Credentials *Credentials `json:"credentials"`
	Version     int          `json:"version"`
	CreatedAt   time.Time    `json:"created_at"`
}

func decodeSecret(plaintext []byte) (*Credentials, error) {
	var data SecretData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("unmarshal secret data: %w", err)
	}
	if err := data.Credentials.Validate(); err != nil {
		return nil, err
	}
	return data.Credentials, nil
}

// Provider supplies credentials.
type Provider interface {
	GetCredentials(ctx context.Context) (*Credentials, error)
	Close() error
}

// Token resolves the token from p, rejecting expired credentials.
func Token(ctx context.Context, p Provider) (string, error) {
	creds, err := p.GetCredentials(ctx)
	if err != nil {
		return "", err
	}
	if creds.IsExpired() {
		return "", ErrCredentialsExpired
	}
	return creds.Token, nil
}

// ChainProvider tries providers in order until one succeeds.
type ChainProvider struct {
	providers []Provider
}

// NewChainProvider creates a provider that chains multiple providers.
func NewChainProvider(providers ...Provider) *ChainProvider {
	return &ChainProvider{providers: providers}
}

// GetCredentials tries each provider in order.
func (p *ChainProvider) GetCredentials(ctx context.Context) (*Credentials, error) {
	errs := []error{ErrNoCredentials}
	for i, provider := range p.providers {
		creds, err := provider.GetCredentials(ctx)
		if err == nil {
			return creds, nil
		}
		errs = append(errs, fmt.Errorf("provider %d: %w", i, err))
	}
	return nil, errors.Join(errs...)
}

// Close closes every chained provider.
func (p *ChainProvider) Close() error {
	var errs []error
	for _, provider := range p.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
