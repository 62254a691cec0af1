package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/querypilot/querypilot/internal/agent"
	"github.com/querypilot/querypilot/internal/api"
	"github.com/querypilot/querypilot/internal/archive"
	"github.com/querypilot/querypilot/internal/config"
	"github.com/querypilot/querypilot/internal/embedding"
	historypostgres "github.com/querypilot/querypilot/internal/history/postgres"
	"github.com/querypilot/querypilot/internal/nl2sql"
	"github.com/querypilot/querypilot/internal/observability"
	retrievalpostgres "github.com/querypilot/querypilot/internal/retrieval/postgres"
	s3store "github.com/querypilot/querypilot/internal/storage/s3"
	"github.com/querypilot/querypilot/internal/warehouse/duckdb"
)

func main() {
	cfg, err := config.LoadFromEnv("querypilot-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	storeDB, err := historypostgres.Open(context.Background(), historypostgres.DBConfig{
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open store db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = storeDB.Close() }()

	historyRepo := historypostgres.NewRepository(storeDB)
	exampleRepo := retrievalpostgres.NewRepository(storeDB, cfg.Retrieval.CandidateWindow)

	engine, err := duckdb.NewEngine(duckdb.Config{
		Path:     cfg.Warehouse.Path,
		RowLimit: cfg.Warehouse.RowLimit,
	})
	if err != nil {
		logger.Error("failed to open warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = engine.Close() }()

	var translator nl2sql.Translator
	if cfg.AI.Enabled {
		translator, err = nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize sql translator", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var embedder embedding.Embedder
	if cfg.Embedding.Enabled {
		embedder, err = embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
			Timeout: cfg.Embedding.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize embedder", slog.Any("error", err))
			os.Exit(1)
		}
	}

	agentService := agent.NewService(agent.Config{
		TopK:            cfg.Retrieval.TopK,
		GenerateTimeout: cfg.AI.Timeout,
		ExecuteTimeout:  cfg.Warehouse.ExecuteTimeout,
		ApprovalTTL:     cfg.Approval.TTL,
	}, agent.Dependencies{
		Translator: translator,
		Embedder:   embedder,
		Examples:   exampleRepo,
		History:    historyRepo,
		Engine:     engine,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var archiveService *archive.Service
	if cfg.Archive.Enabled {
		objectStore, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize archive store", slog.Any("error", err))
			os.Exit(1)
		}
		archiveService = &archive.Service{
			Log:         historyRepo,
			ObjectStore: objectStore,
			Config: archive.Config{
				Interval:  cfg.Archive.Interval,
				BatchSize: cfg.Archive.BatchSize,
			},
			Logger: logger,
		}
		go func() {
			if err := archiveService.Run(ctx); err != nil {
				logger.Error("archive loop stopped", slog.Any("error", err))
			}
		}()
	}

	deps := api.Dependencies{
		Logger: logger,
		Agent:  agentService,
		Readiness: api.CombineReadinessChecks(
			historyRepo.HealthCheck,
			engine.Ping,
			api.CheckStoreDSN(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if archiveService != nil {
		deps.Archive = archiveService
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
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
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
