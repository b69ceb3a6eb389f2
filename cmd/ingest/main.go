package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xaenox/chat-ingest/internal/audit"
	"github.com/xaenox/chat-ingest/internal/classifier"
	"github.com/xaenox/chat-ingest/internal/pipeline"
	"github.com/xaenox/chat-ingest/internal/storage"
	"github.com/xaenox/chat-ingest/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Store
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize the intent classifier
	engine := classifier.NewGPTEngine(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		logger,
	)
	adapter := classifier.NewAdapter(
		engine,
		cfg.Classifier.MinConfidence,
		cfg.Classifier.MaxLabels,
		cfg.Classifier.Timeout,
		logger,
	)

	// Initialize the pipeline and worker pool
	p := pipeline.New(adapter, store, pipeline.NewLogSink(logger), pipeline.Config{
		MaxRetries:     cfg.Pipeline.MaxRetries,
		RetryBaseDelay: cfg.Pipeline.RetryBaseDelay,
	}, logger)
	pool := pipeline.NewPool(p, cfg.Pipeline.Workers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Consume the event batch from stdin
	source := pipeline.NewJSONLinesSource(os.Stdin, logger)
	if err := pool.Run(ctx, source); err != nil {
		logger.Fatal("Pipeline run failed", zap.Error(err))
	}

	// Reconcile the written rows against the pipeline invariants
	violations, err := audit.NewAuditor(store, logger).Run(ctx)
	if err != nil {
		logger.Error("Audit run failed", zap.Error(err))
		return
	}
	logger.Info("Run complete", zap.Int("audit_violations", len(violations)))
}
