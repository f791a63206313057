package vector

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/hyperengineering/fableforge/internal/types"
)

// Compile-time interface check
var _ Index = (*LocalIndex)(nil)

// EmbeddingSource provides embedded lore entries for the local scan.
// Implemented by store.SQLiteStore.
type EmbeddingSource interface {
	ListEmbeddedLore(ctx context.Context, projectID string) ([]types.LoreEntry, error)
}

// LocalIndex serves searches by scanning embeddings stored in SQLite.
// Used when Qdrant is not configured. SQLite is the source of truth for
// embeddings either way, so Upsert and Delete are no-ops here.
type LocalIndex struct {
	source EmbeddingSource
}

// NewLocalIndex creates a local cosine-scan index over the given source.
func NewLocalIndex(source EmbeddingSource) *LocalIndex {
	return &LocalIndex{source: source}
}

// Ensure is a no-op; there is no external collection to create.
func (l *LocalIndex) Ensure(ctx context.Context) error {
	return nil
}

// Upsert is a no-op; the store already holds the embedding.
func (l *LocalIndex) Upsert(ctx context.Context, points []Point) error {
	return nil
}

// Search scans all embedded entries and returns cosine scores at or above
// the threshold, best first.
func (l *LocalIndex) Search(ctx context.Context, vector []float32, projectID string, limit int, threshold float32) ([]Match, error) {
	entries, err := l.source.ListEmbeddedLore(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list embedded lore: %w", err)
	}

	var matches []Match
	for _, entry := range entries {
		if len(entry.Embedding) != len(vector) {
			continue // dimension mismatch, e.g. model changed
		}
		score := cosineSimilarity(vector, entry.Embedding)
		if score >= threshold {
			matches = append(matches, Match{ID: entry.ID, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Delete is a no-op; soft deletes in the store exclude entries from scans.
func (l *LocalIndex) Delete(ctx context.Context, ids []string) error {
	return nil
}

// Mode identifies this implementation.
func (l *LocalIndex) Mode() string {
	return "local"
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
