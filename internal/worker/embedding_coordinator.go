// Package worker contains the background loops: the embedding coordinator
// that drives pending lore entries through the embedding pipeline, and the
// usage reporter that periodically logs ledger aggregates.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hyperengineering/fableforge/internal/cost"
	"github.com/hyperengineering/fableforge/internal/embedding"
	"github.com/hyperengineering/fableforge/internal/provider"
	"github.com/hyperengineering/fableforge/internal/ratelimit"
	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/hyperengineering/fableforge/internal/vector"
)

// EmbeddingStore defines the store operations the coordinator needs.
// Implemented by SQLiteStore.
type EmbeddingStore interface {
	GetPendingLoreEmbeddings(ctx context.Context, limit int) ([]types.LoreEntry, error)
	UpdateLoreEmbedding(ctx context.Context, id string, embedding []float32) error
	MarkLoreEmbeddingFailed(ctx context.Context, id string) error
	RecordServiceCall(ctx context.Context, call types.ServiceCall) (*types.ServiceCall, error)
}

// EmbeddingCoordinator batches pending lore entries through the embedder
// and upserts the resulting vectors into the index.
type EmbeddingCoordinator struct {
	store       EmbeddingStore
	embedder    embedding.Embedder
	index       vector.Index
	limiter     *ratelimit.Limiter
	calc        *cost.Calculator
	interval    time.Duration
	maxAttempts int
	batchSize   int

	mu         sync.Mutex
	retryCount map[string]int // entryID -> failed attempts
}

// NewEmbeddingCoordinator creates a coordinator for the embedding pipeline.
func NewEmbeddingCoordinator(
	store EmbeddingStore,
	embedder embedding.Embedder,
	index vector.Index,
	limiter *ratelimit.Limiter,
	calc *cost.Calculator,
	interval time.Duration,
	maxAttempts int,
	batchSize int,
) *EmbeddingCoordinator {
	return &EmbeddingCoordinator{
		store:       store,
		embedder:    embedder,
		index:       index,
		limiter:     limiter,
		calc:        calc,
		interval:    interval,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		retryCount:  make(map[string]int),
	}
}

// Run starts the coordinator loop. It blocks until ctx is cancelled.
//
// The first pass runs immediately on start so entries left pending by a
// previous run are embedded promptly rather than waiting a full interval.
func (c *EmbeddingCoordinator) Run(ctx context.Context) {
	slog.Info("embedding coordinator started",
		"component", "worker",
		"worker", "embedding-coordinator",
		"interval", c.interval.String(),
		"max_attempts", c.maxAttempts,
		"batch_size", c.batchSize,
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.processBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("embedding coordinator stopped",
				"component", "worker",
				"worker", "embedding-coordinator",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.processBatch(ctx)
		}
	}
}

// processBatch embeds one batch of pending entries.
func (c *EmbeddingCoordinator) processBatch(ctx context.Context) {
	entries, err := c.store.GetPendingLoreEmbeddings(ctx, c.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return // Graceful shutdown
		}
		slog.Error("failed to get pending embeddings",
			"component", "worker",
			"worker", "embedding-coordinator",
			"error", err,
		)
		return
	}

	if len(entries) == 0 {
		return
	}

	// Filter out entries that have exhausted their attempts
	var toProcess []types.LoreEntry
	for _, entry := range entries {
		c.mu.Lock()
		attempts := c.retryCount[entry.ID]
		c.mu.Unlock()

		if attempts >= c.maxAttempts {
			c.markAsFailed(ctx, entry.ID, attempts)
			continue
		}
		toProcess = append(toProcess, entry)
	}

	if len(toProcess) == 0 {
		return
	}

	model := c.embedder.ModelName()
	if d := c.limiter.Allow(provider.NameOpenAI, provider.OpEmbed); !d.Allowed {
		// Denied calls never consume quota but are ledgered; the batch stays
		// pending and the next tick retries it.
		c.ledger(ctx, model, 0, types.CallRateLimited)
		slog.Warn("embedding batch rate limited",
			"component", "worker",
			"worker", "embedding-coordinator",
			"reason", d.Reason,
			"entries_count", len(toProcess),
		)
		return
	}

	contents := make([]string, len(toProcess))
	for i, entry := range toProcess {
		contents[i] = entry.Content
	}

	embeddings, tokens, err := c.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		c.ledger(ctx, model, 0, types.CallFailed)
		slog.Warn("embedding batch failed, will retry",
			"component", "worker",
			"worker", "embedding-coordinator",
			"error", err,
			"entries_count", len(toProcess),
		)
		c.mu.Lock()
		for _, entry := range toProcess {
			c.retryCount[entry.ID]++
		}
		c.mu.Unlock()
		return
	}

	costMicrocents := c.ledger(ctx, model, tokens, types.CallOK)
	c.limiter.Record(provider.NameOpenAI, provider.OpEmbed, costMicrocents)

	// Persist each embedding and collect points for the index
	var points []vector.Point
	var successCount int
	for i, entry := range toProcess {
		if err := c.store.UpdateLoreEmbedding(ctx, entry.ID, embeddings[i]); err != nil {
			slog.Error("failed to update embedding",
				"component", "worker",
				"worker", "embedding-coordinator",
				"lore_id", entry.ID,
				"error", err,
			)
			c.mu.Lock()
			c.retryCount[entry.ID]++
			c.mu.Unlock()
			continue
		}
		c.mu.Lock()
		delete(c.retryCount, entry.ID)
		c.mu.Unlock()
		successCount++

		points = append(points, vector.Point{
			ID:        entry.ID,
			ProjectID: entry.ProjectID,
			Title:     entry.Title,
			Category:  string(entry.Category),
			Vector:    embeddings[i],
		})
	}

	if len(points) > 0 {
		// Upserts are idempotent, so a failure here is safe to leave for the
		// reindex subcommand; the embeddings themselves are already stored.
		if err := c.index.Upsert(ctx, points); err != nil {
			slog.Error("vector upsert failed",
				"component", "worker",
				"worker", "embedding-coordinator",
				"points", len(points),
				"error", err,
			)
		}
	}

	if successCount > 0 {
		slog.Info("processed pending embeddings",
			"component", "worker",
			"worker", "embedding-coordinator",
			"entries_processed", successCount,
		)
	}
}

// ledger appends one ledger row for the batch embedding call and returns
// the computed cost.
func (c *EmbeddingCoordinator) ledger(ctx context.Context, model string, tokens int64, status types.CallStatus) int64 {
	var costMicrocents int64
	if status == types.CallOK {
		costMicrocents = c.calc.Cost(provider.NameOpenAI, model, tokens, 0)
	}

	call := types.ServiceCall{
		Provider:       provider.NameOpenAI,
		Operation:      provider.OpEmbed,
		Model:          model,
		InputUnits:     tokens,
		UnitKind:       c.calc.UnitKind(provider.NameOpenAI, model),
		CostMicrocents: costMicrocents,
		Status:         status,
	}
	if _, err := c.store.RecordServiceCall(ctx, call); err != nil {
		slog.Error("failed to record embedding service call",
			"component", "worker",
			"worker", "embedding-coordinator",
			"error", err,
		)
	}
	return costMicrocents
}

// markAsFailed marks an entry as permanently failed after exhausting retries.
func (c *EmbeddingCoordinator) markAsFailed(ctx context.Context, entryID string, attempts int) {
	if err := c.store.MarkLoreEmbeddingFailed(ctx, entryID); err != nil {
		slog.Error("failed to mark embedding as failed",
			"component", "worker",
			"worker", "embedding-coordinator",
			"lore_id", entryID,
			"error", err,
		)
		return
	}

	slog.Warn("embedding permanently failed after max attempts",
		"component", "worker",
		"worker", "embedding-coordinator",
		"lore_id", entryID,
		"attempts", attempts,
	)

	c.mu.Lock()
	delete(c.retryCount, entryID)
	c.mu.Unlock()
}
