package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/akave-ai/vaultgate/internal/config"
	"github.com/akave-ai/vaultgate/internal/database"
	"github.com/akave-ai/vaultgate/internal/forwarder"
	"github.com/akave-ai/vaultgate/internal/handler"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters/azul"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters/cybersource"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters/segpay"
	"github.com/akave-ai/vaultgate/internal/logger"
	"github.com/akave-ai/vaultgate/internal/pipeline"
	"github.com/akave-ai/vaultgate/internal/repository"
	"github.com/akave-ai/vaultgate/internal/server"
	"github.com/akave-ai/vaultgate/internal/vault"
)

func main() {
	// .env is optional; the environment wins.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		bootstrap := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootstrap.Fatal().Err(err).Msg("load config")
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)
	nrApp := loggerService.Application()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		audit       pipeline.AuditSink
		invocations handler.InvocationLister
	)
	if cfg.Database != nil {
		if err := database.RunMigrations(ctx, cfg.Database, log); err != nil {
			log.Fatal().Err(err).Msg("migrations")
		}
		pool, err := database.NewPool(ctx, cfg.Database, log, nrApp != nil)
		if err != nil {
			log.Fatal().Err(err).Msg("database pool")
		}
		defer pool.Close()
		repo := repository.NewInvocationRepository(pool)
		audit, invocations = repo, repo
	} else {
		log.Warn().Msg("no database configured, invocation audit disabled")
	}

	vaultHTTP := &http.Client{Timeout: cfg.VaultTimeout()}
	if nrApp != nil {
		vaultHTTP.Transport = newrelic.NewRoundTripper(nil)
	}
	var tokens vault.TokenProvider = vault.StaticToken(cfg.Vault.BearerToken)
	if cfg.Vault.Credentials != "" {
		tokens, err = vault.NewServiceAccountProvider(cfg.Vault.Credentials, vaultHTTP)
		if err != nil {
			log.Fatal().Err(err).Msg("vault credentials")
		}
	}

	fwdOpts := []forwarder.Option{forwarder.WithTimeout(cfg.PSPCallTimeout())}
	if nrApp != nil {
		fwdOpts = append(fwdOpts, forwarder.WithRoundTripper(newrelic.NewRoundTripper))
	}

	registry := adapters.NewRegistry()
	registry.Register(&azul.Factory{})
	registry.Register(&cybersource.Factory{})
	registry.Register(&segpay.Factory{})
	built, err := registry.Build(cfg, adapters.Deps{
		Vault: vault.NewClient(cfg.Vault, tokens, vaultHTTP),
		PSP:   forwarder.New(fwdOpts...),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build adapters")
	}
	if len(built) == 0 {
		log.Warn().Msg("no adapters configured")
	}
	log.Info().Strs("adapters", built).Msg("adapters ready")

	p := pipeline.New(registry, log, pipeline.WithAudit(audit), pipeline.WithNewRelic(nrApp))

	srv := server.New(cfg, log, server.Deps{
		Pipeline:    p,
		Registry:    registry,
		Invocations: invocations,
	})
	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
		stop()
		loggerService.Shutdown()
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
