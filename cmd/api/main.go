package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/faceops/groupcore/internal/api"
	"github.com/faceops/groupcore/internal/audit"
	"github.com/faceops/groupcore/internal/config"
	"github.com/faceops/groupcore/internal/groupengine"
	"github.com/faceops/groupcore/internal/groupstore"
	"github.com/faceops/groupcore/internal/manualops"
	"github.com/faceops/groupcore/internal/matchresolver"
	"github.com/faceops/groupcore/internal/provider/rekognition"
	"github.com/faceops/groupcore/internal/reachability"
	"github.com/faceops/groupcore/internal/reconciler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting groupcore API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("connected to database")

	store := groupstore.NewPgStore(pool)
	auditLog := audit.NewSlogLogger(logger)
	prober := reachability.New(cfg.HeadTimeout)

	resolver, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize match resolver: %w", err)
	}

	engine := groupengine.New(store, resolver, prober,
		groupengine.WithTolerance(cfg.BoundingBoxTolerance),
		groupengine.WithAuditLogger(auditLog),
		groupengine.WithLogger(logger),
	)

	ops := manualops.New(store, engine,
		manualops.WithTestUserID(cfg.TestUserID),
		manualops.WithAuditLogger(auditLog),
		manualops.WithLogger(logger),
	)

	sweeper := reconciler.New(store, engine, reconciler.WithLogger(logger))

	// Setup dependencies
	deps := &api.Dependencies{
		Engine:     engine,
		Ops:        ops,
		Reconciler: sweeper,
	}

	// Setup router with dependencies
	router := api.NewRouter(logger, deps)
	router.Setup()

	// Graceful shutdown
	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	gracefulCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-gracefulCtx.Done()
	logger.Info("server stopped")

	return nil
}

// newResolver builds the Match Resolver's recognition engine from
// configuration. The Rekognition engine backs the default
// collection-per-user face search the grouping core depends on; the
// pgvector-based embedding path (matchresolver.EmbeddingResolver) remains
// available for deployments that supply raw embeddings instead.
func newResolver(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*matchresolver.Resolver, error) {
	client, err := rekognition.NewClient(ctx, rekognition.Config{
		Region:           cfg.AWSRegion,
		CollectionPrefix: cfg.RecognitionCollectionPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}

	engine := matchresolver.NewRekognitionEngine(client)
	return matchresolver.New(engine, cfg.RecognitionCollectionPrefix,
		matchresolver.WithThreshold(cfg.SimilarityThreshold),
		matchresolver.WithMaxMatches(cfg.MaxMatches),
		matchresolver.WithLogger(logger),
	), nil
}
