package credentials

import (
	"context"
	"fmt"
	"os"
)

// StaticProvider serves a fixed token. Use it for tests and dry runs.
type StaticProvider struct {
	creds *Credentials
}

// NewStaticProvider creates a provider for token.
func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{creds: &Credentials{
		Token:    token,
		Metadata: map[string]string{"provider": "static"},
	}}
}

// GetCredentials implements Provider.
func (p *StaticProvider) GetCredentials(context.Context) (*Credentials, error) {
	if err := p.creds.Validate(); err != nil {
		return nil, err
	}
	return p.creds, nil
}

// Close implements Provider.
func (p *StaticProvider) Close() error { return nil }

// EnvProvider reads the token from an environment variable on every call.
type EnvProvider struct {
	variable string
}

// NewEnvProvider creates a provider reading variable.
func NewEnvProvider(variable string) *EnvProvider {
	return &EnvProvider{variable: variable}
}

// GetCredentials implements Provider.
func (p *EnvProvider) GetCredentials(context.Context) (*Credentials, error) {
	token := os.Getenv(p.variable)
	if token == "" {
		return nil, fmt.Errorf("%w: environment variable %s not set", ErrInvalidCredentials, p.variable)
	}
	return &Credentials{
		Token:    token,
		Metadata: map[string]string{"provider": "environment", "env_var": p.variable},
	}, nil
}

// Close implements Provider.
func (p *EnvProvider) Close() error { return nil }
