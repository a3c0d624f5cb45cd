package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"orgledger/internal/auth"
	"orgledger/internal/backend"
	"orgledger/internal/cache"
	"orgledger/internal/cli"
	apphttp "orgledger/internal/http"
	"orgledger/internal/ingest"
	"orgledger/internal/log"
	"orgledger/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	if _, err := cli.SeedDatabase(context.Background(), logger, repo, cfg.SeedScriptPath); err != nil {
		logger.Error("Failed to apply seed script", log.FieldError, err, "path", cfg.SeedScriptPath)
		os.Exit(1)
	}

	aliases, err := ingest.LoadAliases(cfg.ImportFieldMap)
	if err != nil {
		logger.Error("Failed to load import field map", log.FieldError, err, "path", cfg.ImportFieldMap)
		os.Exit(1)
	}

	// Sheet import source (optional): a Google Sheet or a local file
	sourceConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid sheet source configuration", log.FieldError, err)
		os.Exit(1)
	}
	source, err := backend.NewFactory(logger).CreateSource(context.Background(), sourceConfig)
	if err != nil {
		logger.Error("Failed to initialize sheet import source", log.FieldError, err, "source", sourceConfig.Type)
		os.Exit(1)
	}

	amqpClient := cli.InitAMQP(logger, cfg)
	var publisher services.Publisher
	if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	ledger := services.NewLedgerService(repo, services.LedgerConfig{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		TopN:      cfg.TopN,
	}, logger)
	normalizer := ingest.NewNormalizer(aliases)
	svc := apphttp.Services{
		Catalog:      services.NewCatalogService(repo, ledger, logger),
		Ledger:       ledger,
		Transactions: services.NewTransactionService(repo, publisher, ledger, logger),
		Imports:      services.NewImportService(repo, normalizer, source.Reader, logger),
		Auth:         auth.NewAuthenticator(repo),
		Normalizer:   normalizer,
	}

	caches := cache.NewManager(logger)
	for _, c := range ledger.Caches() {
		caches.Register(c)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AllowedOrigins:     cfg.AllowedOrigins,
		TrustedProxies:     cfg.TrustedProxies,
		Ready:              repo.Ping,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
	})
	caches.StartCleanup(ctx, cfg.CacheTTL)

	logger.Info("Starting orgledger server", "port", cfg.Port, "amqp", amqpClient != nil, "sheet_source", source.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
