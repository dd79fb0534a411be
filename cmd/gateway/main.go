// Command gateway runs the marketplace assistant gateway.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/satmarket/assistant-gateway/internal/auth"
	"github.com/satmarket/assistant-gateway/internal/config"
	"github.com/satmarket/assistant-gateway/internal/contextdocs"
	"github.com/satmarket/assistant-gateway/internal/credentials"
	"github.com/satmarket/assistant-gateway/internal/gateway"
	"github.com/satmarket/assistant-gateway/internal/metering"
	"github.com/satmarket/assistant-gateway/internal/monitoring"
	"github.com/satmarket/assistant-gateway/internal/relay"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	pretty := flag.Bool("pretty", false, "human-readable console logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.Logging.Level, *pretty)

	meter, err := metering.Open(cfg.Storage.MeteringPath, metering.Limits{
		MessagesPerDay: cfg.Quota.FreeMessagesPerDay,
		TokensPerDay:   cfg.Quota.FreeTokensPerDay,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open metering store")
	}
	defer func() { _ = meter.Close() }()

	var docStore contextdocs.DocumentStore
	if cfg.Storage.DocumentsPath != "" {
		store, err := contextdocs.OpenSQLiteStore(cfg.Storage.DocumentsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open documents store")
		}
		defer func() { _ = store.Close() }()
		docStore = store
	}
	assembler := contextdocs.NewAssembler(docStore, cfg.Context.TokenBudget, cfg.Context.MaxDocuments)

	var keyStore credentials.KeyStore
	if cfg.Keys.ServiceURL != "" {
		keyStore = credentials.NewHTTPKeyStore(cfg.Keys.ServiceURL, cfg.Keys.Token, cfg.Keys.Timeout.Std())
	}

	tracker, err := monitoring.NewTracker(cfg.Logging.TelemetryPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init telemetry")
	}
	defer func() { _ = tracker.Close() }()

	g := gateway.New(cfg, gateway.Deps{
		Verifier:  auth.NewHTTPVerifier(cfg.Auth.VerifyURL, cfg.Auth.Timeout.Std()),
		Resolver:  credentials.NewResolver(keyStore),
		Meter:     meter,
		Assembler: assembler,
		Relay:     relay.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout.Std(), cfg.Upstream.Temperature),
		Metrics:   monitoring.NewMetricsCollector(),
		Tracker:   tracker,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- g.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("gateway exited")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
		defer cancel()
		if err := g.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown incomplete")
		}
	}
}

func setupLogging(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
