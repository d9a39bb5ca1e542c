package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/bot"
	"github.com/plaenen/bidibip/pkg/config"
	"github.com/plaenen/bidibip/pkg/credentials"
	"github.com/plaenen/bidibip/pkg/dispatch"
	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/plaenen/bidibip/pkg/gitrepo"
	"github.com/plaenen/bidibip/pkg/middleware"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/modules"
	"github.com/plaenen/bidibip/pkg/modules/advertising"
	"github.com/plaenen/bidibip/pkg/modules/quote"
	"github.com/plaenen/bidibip/pkg/natsserver"
	"github.com/plaenen/bidibip/pkg/observability"
	"github.com/plaenen/bidibip/pkg/platform"
	"github.com/plaenen/bidibip/pkg/platform/memory"
	"github.com/plaenen/bidibip/pkg/platform/natsgw"
	"github.com/plaenen/bidibip/pkg/runner"
	"github.com/plaenen/bidibip/pkg/sqlite"
	"github.com/plaenen/bidibip/pkg/updater"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const tracerName = "github.com/plaenen/bidibip"

func newRunCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the gateway and serve commands",
		Long: `Loads the configuration from BIDIBIP_* environment variables, optionally
pulls the latest revision, then runs until SIGINT or SIGTERM.

With --dry-run the bot talks to an in-memory platform instead of the gateway.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			if err := run(cmd.Context(), cfg, logger, dryRun); err != nil {
				logger.Error("bidibip stopped", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "use an in-memory platform instead of the gateway")
	return cmd
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, dryRun bool) error {
	if cfg.UpdateEnabled {
		selfUpdate(ctx, cfg.UpdateDir, logger)
	}

	tel, err := initTelemetry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()
	tracer := tel.Tracer(tracerName)

	quotes, closeQuotes, err := openQuoteStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQuotes()

	var (
		services []runner.Service
		p        platform.Platform
		events   <-chan platform.Event
	)
	if dryRun {
		p = memory.New()
		events = make(chan platform.Event)
		logger.Info("dry run: using the in-memory platform")
	} else {
		token, err := resolveToken(ctx, cfg)
		if err != nil {
			return err
		}
		if cfg.NATSEmbedded {
			svc, err := embeddedNATS(cfg.NATSURL, token, logger)
			if err != nil {
				return err
			}
			services = append(services, svc)
		}
		gw := natsgw.New(natsgw.Config{
			URL:            cfg.NATSURL,
			Token:          token,
			RequestTimeout: cfg.RequestTimeout,
		},
			natsgw.WithLogger(logger),
			natsgw.WithTracer(tracer),
			natsgw.WithMetrics(tel.Metrics),
		)
		services = append(services, gw)
		p = gw
		events = gw.Events()
	}

	store := draft.NewStore()
	if err := tel.Metrics.ObservePending(store); err != nil {
		return fmt.Errorf("observe pending drafts: %w", err)
	}
	wf := draft.NewWorkflow(p, store,
		draft.WithLogger(logger),
		draft.WithTracer(tracer),
		draft.WithRecorder(tel.Metrics),
	)

	gate := access.NewRoleGate(cfg.MemberRoleID)
	registry := module.NewRegistry()
	if err := modules.Register(modules.Deps{
		Platform: p,
		Registry: registry,
		Gate:     gate,
		Workflow: wf,
		Quotes:   quotes,
		Destinations: advertising.Destinations{
			Paid:      cfg.PaidChannelID,
			Unpaid:    cfg.UnpaidChannelID,
			Freelance: cfg.FreelanceChannelID,
		},
		History:       gitrepo.Open(filepath.Join(cfg.CacheDir, "history-repos")),
		HistoryRemote: cfg.HistoryRemote,
		Logger:        logger,
	}); err != nil {
		return fmt.Errorf("register modules: %w", err)
	}

	d := dispatch.New(registry, gate, wf, p,
		dispatch.WithLogger(logger),
		dispatch.WithTracer(tracer),
		dispatch.WithMaxInFlight(cfg.MaxInFlight),
		dispatch.WithMiddleware(
			middleware.Tracing(tracer),
			observability.CommandMetrics(tel.Metrics),
			middleware.Logging(logger),
		),
	)
	services = append(services, bot.New(registry, p, d, events, bot.WithLogger(logger)))

	return runner.New(services,
		runner.WithLogger(runner.SlogLogger(logger)),
		runner.WithSignals(),
	).Run(ctx)
}

// selfUpdate pulls the checkout the bot runs from. Failures never block
// startup.
func selfUpdate(ctx context.Context, dir string, logger *slog.Logger) {
	res, err := updater.New(gitrepo.Open(dir), updater.WithLogger(logger)).Run(ctx)
	if err != nil {
		logger.Warn("Update failed", slog.String("error", err.Error()))
		return
	}
	if res.Updated() {
		logger.Info("New revision pulled; it is used from the next start", slog.String("revision", res.After))
	}
}

func initTelemetry(ctx context.Context, cfg config.Config, logger *slog.Logger) (*observability.Telemetry, error) {
	var exporter sdktrace.SpanExporter
	if cfg.TraceStdout {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		exporter = exp
	}
	return observability.Init(ctx, observability.Config{
		ServiceName:     "bidibip",
		ServiceVersion:  Version,
		TraceExporter:   exporter,
		TraceSampleRate: 1.0,
		Logger:          logger,
	})
}

func openQuoteStore(ctx context.Context, cfg config.Config) (quote.Store, func(), error) {
	switch cfg.QuoteBackend {
	case config.QuoteBackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.QuoteDB), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create quote database directory: %w", err)
		}
		db, err := sqlite.Open(ctx, cfg.QuoteDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open quote database: %w", err)
		}
		return sqlite.NewQuoteStore(db), func() { closeDB(db) }, nil
	default:
		store, err := quote.OpenJSONFile(cfg.QuoteFile)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("failed to close quote database", slog.String("error", err.Error()))
	}
}

// resolveToken returns the gateway login token. A development setup with an
// embedded server may run without one.
func resolveToken(ctx context.Context, cfg config.Config) (string, error) {
	var providers []credentials.Provider
	if cfg.TokenSecretURL != "" {
		secret, err := credentials.NewSecretProvider(ctx, cfg.TokenSecretURL, cfg.TokenFile)
		if err != nil {
			return "", err
		}
		providers = append(providers, secret)
	}
	if cfg.Token != "" {
		providers = append(providers, credentials.NewStaticProvider(cfg.Token))
	}
	if len(providers) == 0 {
		if cfg.NATSEmbedded {
			return "", nil
		}
		return "", credentials.ErrNoCredentials
	}

	chain := credentials.NewChainProvider(providers...)
	defer chain.Close()
	return credentials.Token(ctx, chain)
}

// embeddedNATS serves natsURL in-process so the bot runs without an external
// broker.
func embeddedNATS(natsURL, token string, logger *slog.Logger) (*natsserver.Service, error) {
	u, err := url.Parse(natsURL)
	if err != nil {
		return nil, fmt.Errorf("parse NATS URL: %w", err)
	}
	host, portText, err := net.SplitHostPort(u.Host)
	if err != nil {
		return nil, fmt.Errorf("NATS URL %q: %w", natsURL, err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return nil, fmt.Errorf("NATS URL %q: %w", natsURL, errors.Join(err, config.ErrInvalid))
	}

	opts := []natsserver.Option{natsserver.WithHost(host), natsserver.WithPort(port)}
	if token != "" {
		opts = append(opts, natsserver.WithToken(token))
	}
	return natsserver.NewService(
		natsserver.WithLogger(runner.SlogLogger(logger)),
		natsserver.WithServerOptions(opts...),
	), nil
}
