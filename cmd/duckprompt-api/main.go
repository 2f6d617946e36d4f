package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/duckmesh/duckprompt/internal/api"
	"github.com/duckmesh/duckprompt/internal/api/uistatic"
	"github.com/duckmesh/duckprompt/internal/config"
	"github.com/duckmesh/duckprompt/internal/dataset"
	registrypostgres "github.com/duckmesh/duckprompt/internal/dataset/postgres"
	"github.com/duckmesh/duckprompt/internal/nl2sql"
	"github.com/duckmesh/duckprompt/internal/observability"
	"github.com/duckmesh/duckprompt/internal/pipeline"
	duckdbengine "github.com/duckmesh/duckprompt/internal/query/duckdb"
	"github.com/duckmesh/duckprompt/internal/session"
	"github.com/duckmesh/duckprompt/internal/storage"
	"github.com/duckmesh/duckprompt/internal/storage/local"
	s3store "github.com/duckmesh/duckprompt/internal/storage/s3"
)

const sessionSweepInterval = time.Minute

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.Any("error", err))
	}

	cfg, err := config.LoadFromEnv("duckprompt-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, registryDB, err := openRegistry(ctx, cfg)
	if err != nil {
		logger.Error("failed to open dataset registry", slog.Any("error", err))
		os.Exit(1)
	}
	if registryDB != nil {
		defer func() { _ = registryDB.Close() }()
	}

	datasets, err := openDatasetStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize dataset store", slog.Any("error", err))
		os.Exit(1)
	}

	providerCfg := cfg.AI.Providers[cfg.AI.Provider]
	generator, generatorErr := nl2sql.NewGenerator(cfg.AI.Provider, nl2sql.Config{
		APIKey:      providerCfg.APIKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if generatorErr != nil {
		logger.Warn("query generator unavailable; queries will report the error",
			slog.String("provider", cfg.AI.Provider),
			slog.Any("error", generatorErr),
		)
	}

	sessions := session.NewStore(
		func() *pipeline.Session { return nil },
		cfg.Session.IdleTimeout,
		observability.SetActiveSessions,
	)
	go sessions.Run(ctx, sessionSweepInterval)

	deps := api.Dependencies{
		Logger:       logger,
		Registry:     registry,
		Datasets:     datasets,
		Engine:       duckdbengine.NewEngine(datasets),
		Generator:    generator,
		GeneratorErr: generatorErr,
		Sessions:     sessions,
		UI:           uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckRegistry(registry),
			api.CheckObjectStoreConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("provider", cfg.AI.Provider),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openRegistry(ctx context.Context, cfg config.Config) (dataset.Registry, *sql.DB, error) {
	if cfg.Registry.DSN == "" {
		return dataset.NewMemoryRegistry(), nil, nil
	}
	db, err := registrypostgres.Open(ctx, registrypostgres.DBConfigFrom(cfg.Registry))
	if err != nil {
		return nil, nil, err
	}
	return registrypostgres.NewRegistry(db), db, nil
}

func openDatasetStore(ctx context.Context, cfg config.Config) (storage.DatasetStore, error) {
	if cfg.ObjectStore.Endpoint == "" {
		return local.New(cfg.Uploads.Dir)
	}
	return s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
}
