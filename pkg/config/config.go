// Package config loads the bot configuration from the environment once at
// startup.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Quote storage backends.
const (
	QuoteBackendJSON   = "json"
	QuoteBackendSQLite = "sqlite"
)

// Config is the immutable bot configuration.
type Config struct {
	GuildID            string `env:"BIDIBIP_GUILD_ID,required,notEmpty"`
	MemberRoleID       string `env:"BIDIBIP_MEMBER_ROLE_ID,required,notEmpty"`
	PaidChannelID      string `env:"BIDIBIP_PAID_CHANNEL_ID"`
	UnpaidChannelID    string `env:"BIDIBIP_UNPAID_CHANNEL_ID"`
	FreelanceChannelID string `env:"BIDIBIP_FREELANCE_CHANNEL_ID"`

	Token          string `env:"BIDIBIP_TOKEN"`
	TokenSecretURL string `env:"BIDIBIP_TOKEN_SECRET_URL"`
	TokenFile      string `env:"BIDIBIP_TOKEN_FILE"`

	NATSURL        string        `env:"BIDIBIP_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSEmbedded   bool          `env:"BIDIBIP_NATS_EMBEDDED"`
	RequestTimeout time.Duration `env:"BIDIBIP_REQUEST_TIMEOUT" envDefault:"5s"`
	MaxInFlight    int           `env:"BIDIBIP_MAX_IN_FLIGHT" envDefault:"16"`

	QuoteBackend string `env:"BIDIBIP_QUOTE_BACKEND" envDefault:"json"`
	QuoteFile    string `env:"BIDIBIP_QUOTE_FILE" envDefault:"data/quotes.json"`
	QuoteDB      string `env:"BIDIBIP_QUOTE_DB" envDefault:"data/quotes.db"`

	CacheDir      string `env:"BIDIBIP_CACHE_DIR" envDefault:"cache"`
	HistoryRemote string `env:"BIDIBIP_HISTORY_REMOTE"`

	UpdateEnabled bool   `env:"BIDIBIP_UPDATE_ENABLED"`
	UpdateDir     string `env:"BIDIBIP_UPDATE_DIR" envDefault:"."`

	LogLevel    string `env:"BIDIBIP_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"BIDIBIP_LOG_FORMAT" envDefault:"text"`
	TraceStdout bool   `env:"BIDIBIP_TRACE_STDOUT"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.Token == "" && c.TokenSecretURL == "" && !c.NATSEmbedded {
		errs = append(errs, fmt.Errorf("%w: BIDIBIP_TOKEN or BIDIBIP_TOKEN_SECRET_URL is required", ErrInvalid))
	}
	if c.TokenSecretURL != "" && c.TokenFile == "" {
		errs = append(errs, fmt.Errorf("%w: BIDIBIP_TOKEN_FILE is required with BIDIBIP_TOKEN_SECRET_URL", ErrInvalid))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: BIDIBIP_REQUEST_TIMEOUT must be positive", ErrInvalid))
	}
	if c.MaxInFlight <= 0 {
		errs = append(errs, fmt.Errorf("%w: BIDIBIP_MAX_IN_FLIGHT must be positive", ErrInvalid))
	}
	switch c.QuoteBackend {
	case QuoteBackendJSON, QuoteBackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown quote backend %q", ErrInvalid, c.QuoteBackend))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.LogFormat))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}
