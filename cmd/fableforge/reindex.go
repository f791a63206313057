package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/fableforge/internal/config"
	"github.com/hyperengineering/fableforge/internal/store"
	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/hyperengineering/fableforge/internal/vector"
)

// reindexBatchSize bounds upsert request size against Qdrant.
const reindexBatchSize = 200

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from stored embeddings",
	Long: "Replays every completed embedding into the vector index. " +
		"Point IDs are deterministic, so rerunning is a no-op with respect " +
		"to index contents.",
	RunE: runReindex,
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	if cfg.Vector.Host == "" {
		// The local index reads embeddings straight from SQLite; there is
		// nothing to rebuild.
		slog.Info("no qdrant host configured, local index needs no reindex")
		return nil
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	index, err := vector.NewQdrantIndex(vector.QdrantConfig{
		Host:       cfg.Vector.Host,
		Port:       cfg.Vector.Port,
		APIKey:     cfg.Vector.APIKey,
		Collection: cfg.Vector.Collection,
		UseTLS:     cfg.Vector.UseTLS,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return err
	}
	if err := index.Ensure(ctx); err != nil {
		return err
	}

	// Empty project ID lists embedded lore across all projects
	entries, err := db.ListEmbeddedLore(ctx, "")
	if err != nil {
		return fmt.Errorf("list embedded lore: %w", err)
	}

	var upserted int
	for start := 0; start < len(entries); start += reindexBatchSize {
		end := start + reindexBatchSize
		if end > len(entries) {
			end = len(entries)
		}

		points := make([]vector.Point, 0, end-start)
		for _, entry := range entries[start:end] {
			points = append(points, toPoint(entry))
		}
		if err := index.Upsert(ctx, points); err != nil {
			return fmt.Errorf("upsert batch at offset %d: %w", start, err)
		}
		upserted += len(points)
	}

	slog.Info("reindex complete", "entries", upserted)
	return nil
}

func toPoint(entry types.LoreEntry) vector.Point {
	return vector.Point{
		ID:        entry.ID,
		ProjectID: entry.ProjectID,
		Title:     entry.Title,
		Category:  string(entry.Category),
		Vector:    entry.Embedding,
	}
}
