// Package vector provides the semantic retrieval index over lore embeddings.
//
// Two implementations exist: a Qdrant-backed index used when a Qdrant host
// is configured, and a local cosine scan over embeddings stored in SQLite
// used otherwise. Both serve the same interface, so callers never branch
// on the deployment mode.
package vector

import (
	"context"

	"github.com/google/uuid"
)

// Point is one vector with its retrieval payload.
type Point struct {
	ID        string // lore entry ULID
	ProjectID string
	Title     string
	Category  string
	Vector    []float32
}

// Match is a scored retrieval result.
type Match struct {
	ID    string
	Score float32
}

// Index defines the interface contract for the semantic retrieval index.
type Index interface {
	// Ensure creates the backing collection if it does not exist.
	Ensure(ctx context.Context) error

	// Upsert writes points idempotently: re-upserting the same lore entry
	// replaces its vector and payload rather than duplicating it.
	Upsert(ctx context.Context, points []Point) error

	// Search returns matches scoring at or above threshold, best first.
	// An empty projectID searches across all projects.
	Search(ctx context.Context, vector []float32, projectID string, limit int, threshold float32) ([]Match, error)

	// Delete removes points by lore entry ID. Missing IDs are not an error.
	Delete(ctx context.Context, ids []string) error

	// Mode identifies the implementation ("qdrant" or "local").
	Mode() string
}

// pointNamespace is the fixed UUIDv5 namespace for deriving point IDs.
// Deriving the point UUID from the lore ULID makes upserts idempotent
// across reindex runs.
var pointNamespace = uuid.MustParse("8f9e0d6a-41c3-4b8e-9f27-5b1a6c3d2e10")

// PointID returns the deterministic UUID for a lore entry ID.
func PointID(loreID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(loreID)).String()
}
