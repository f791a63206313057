package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/fableforge/internal/api"
	"github.com/hyperengineering/fableforge/internal/assets"
	"github.com/hyperengineering/fableforge/internal/config"
	"github.com/hyperengineering/fableforge/internal/cost"
	"github.com/hyperengineering/fableforge/internal/embedding"
	"github.com/hyperengineering/fableforge/internal/provider"
	"github.com/hyperengineering/fableforge/internal/ratelimit"
	"github.com/hyperengineering/fableforge/internal/store"
	"github.com/hyperengineering/fableforge/internal/vector"
	"github.com/hyperengineering/fableforge/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "fableforge",
	Short: "FableForge - Game Content Creation Service",
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	// 1. Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 3. Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)
	slog.Info("logger initialized", "level", cfg.Log.Level)

	// 4. Initialize store (migrations, WAL mode)
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	// 5. Initialize embedder and vector index
	embedder := embedding.NewOpenAI(cfg.Embedding.APIKey, cfg.Embedding.Model)
	slog.Info("embedder initialized", "model", cfg.Embedding.Model)

	index, err := buildIndex(ctx, cfg, db)
	if err != nil {
		return err
	}
	slog.Info("vector index initialized", "mode", index.Mode())

	// 6. Rate limiter, seeded from the ledger so restarts keep quotas
	limiter := ratelimit.New(ratelimit.Limits{
		PerMinute:               cfg.Limits.PerMinute,
		PerHour:                 cfg.Limits.PerHour,
		PerDay:                  cfg.Limits.PerDay,
		MonthlyBudgetMicrocents: cfg.Limits.MonthlyBudgetMicrocents,
	})
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	seedFrom := monthStart
	if dayAgo := now.Add(-24 * time.Hour); dayAgo.Before(seedFrom) {
		seedFrom = dayAgo // month is younger than the largest window
	}
	calls, err := db.ListServiceCallsSince(ctx, seedFrom)
	if err != nil {
		return fmt.Errorf("seed rate limiter: %w", err)
	}
	limiter.Seed(calls)
	slog.Info("rate limiter seeded", "ledger_rows", len(calls))

	// 7. Providers and asset storage
	calc := cost.NewCalculator()
	text := map[string]provider.TextGenerator{
		provider.NameOpenAI:    provider.NewOpenAIText(cfg.Embedding.APIKey, cfg.Providers.TextModel),
		provider.NameAnthropic: provider.NewAnthropic(cfg.Providers.AnthropicAPIKey, cfg.Providers.AnthropicModel),
	}
	speech := provider.NewElevenLabs(cfg.Providers.ElevenLabsAPIKey, cfg.Providers.VoiceModel)
	models := provider.NewMeshy(cfg.Providers.MeshyAPIKey)

	uploader, err := assets.NewUploader(cfg.Assets)
	if err != nil {
		return err
	}

	// 8. Initialize HTTP router
	handler := api.NewHandler(api.Deps{
		Store:    db,
		Embedder: embedder,
		Index:    index,
		Limiter:  limiter,
		Calc:     calc,
		Text:     text,
		Speech:   speech,
		Models:   models,
		Uploader: uploader,
		APIKey:   cfg.Auth.APIKey,
		Version:  Version,
	})
	router := api.NewRouter(handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// 9. Background workers
	var wg sync.WaitGroup
	coordinator := worker.NewEmbeddingCoordinator(
		db, embedder, index, limiter, calc,
		time.Duration(cfg.Worker.EmbeddingInterval),
		cfg.Worker.EmbeddingMaxAttempts,
		cfg.Worker.EmbeddingBatchSize,
	)
	startWorker(ctx, &wg, "embedding-coordinator", coordinator.Run)

	reporter := worker.NewUsageReporter(db, time.Duration(cfg.Worker.UsageReportInterval))
	startWorker(ctx, &wg, "usage-reporter", reporter.Run)

	// 10. Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		// Any other error indicates an actual server failure that should trigger shutdown.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel() // Trigger shutdown on server failure
		}
	}()

	// 11. Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// 12. Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// 12a. Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// 12b. Wait for workers to complete
	wg.Wait()

	// 12c. Close store
	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// buildIndex selects the vector index implementation. A configured Qdrant
// host gets the gRPC-backed index with its collection ensured; otherwise
// searches fall back to the local cosine scan over SQLite.
func buildIndex(ctx context.Context, cfg *config.Config, db *store.SQLiteStore) (vector.Index, error) {
	if cfg.Vector.Host == "" {
		return vector.NewLocalIndex(db), nil
	}

	index, err := vector.NewQdrantIndex(vector.QdrantConfig{
		Host:       cfg.Vector.Host,
		Port:       cfg.Vector.Port,
		APIKey:     cfg.Vector.APIKey,
		Collection: cfg.Vector.Collection,
		UseTLS:     cfg.Vector.UseTLS,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	if err := index.Ensure(ctx); err != nil {
		return nil, err
	}
	return index, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
