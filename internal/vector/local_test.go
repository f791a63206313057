package vector

import (
	"context"
	"testing"

	"github.com/hyperengineering/fableforge/internal/types"
)

// stubSource returns a fixed set of embedded lore entries.
type stubSource struct {
	entries []types.LoreEntry
	err     error
}

func (s *stubSource) ListEmbeddedLore(ctx context.Context, projectID string) ([]types.LoreEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	if projectID == "" {
		return s.entries, nil
	}
	var filtered []types.LoreEntry
	for _, e := range s.entries {
		if e.ProjectID == projectID {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func entry(id, projectID string, embedding []float32) types.LoreEntry {
	return types.LoreEntry{ID: id, ProjectID: projectID, Embedding: embedding}
}

func TestLocalSearch_RanksByCosineSimilarity(t *testing.T) {
	source := &stubSource{entries: []types.LoreEntry{
		entry("exact", "p1", []float32{1, 0, 0}),
		entry("close", "p1", []float32{0.9, 0.1, 0}),
		entry("orthogonal", "p1", []float32{0, 1, 0}),
	}}
	idx := NewLocalIndex(source)

	matches, err := idx.Search(context.Background(), []float32{1, 0, 0}, "p1", 10, 0.5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2 (orthogonal below threshold)", len(matches))
	}
	if matches[0].ID != "exact" {
		t.Errorf("matches[0].ID = %q, want exact", matches[0].ID)
	}
	if matches[1].ID != "close" {
		t.Errorf("matches[1].ID = %q, want close", matches[1].ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("matches not sorted by descending score")
	}
}

func TestLocalSearch_RespectsLimit(t *testing.T) {
	source := &stubSource{entries: []types.LoreEntry{
		entry("a", "p1", []float32{1, 0}),
		entry("b", "p1", []float32{0.9, 0.1}),
		entry("c", "p1", []float32{0.8, 0.2}),
	}}
	idx := NewLocalIndex(source)

	matches, err := idx.Search(context.Background(), []float32{1, 0}, "p1", 2, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("len(matches) = %d, want 2", len(matches))
	}
}

func TestLocalSearch_SkipsDimensionMismatch(t *testing.T) {
	// An entry embedded under an older model with different dimensions
	source := &stubSource{entries: []types.LoreEntry{
		entry("old-model", "p1", []float32{1, 0, 0, 0}),
		entry("current", "p1", []float32{1, 0}),
	}}
	idx := NewLocalIndex(source)

	matches, err := idx.Search(context.Background(), []float32{1, 0}, "p1", 10, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "current" {
		t.Errorf("matches = %v, want only current", matches)
	}
}

func TestLocalSearch_ProjectScoping(t *testing.T) {
	source := &stubSource{entries: []types.LoreEntry{
		entry("mine", "p1", []float32{1, 0}),
		entry("other", "p2", []float32{1, 0}),
	}}
	idx := NewLocalIndex(source)

	matches, err := idx.Search(context.Background(), []float32{1, 0}, "p1", 10, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "mine" {
		t.Errorf("matches = %v, want only mine", matches)
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	if got := cosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("cosineSimilarity(zero, x) = %f, want 0", got)
	}
}

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("01J5XYZABC0123456789ABCDEF")
	b := PointID("01J5XYZABC0123456789ABCDEF")
	c := PointID("01J5XYZABC0123456789ABCDEG")

	if a != b {
		t.Errorf("PointID not deterministic: %q vs %q", a, b)
	}
	if a == c {
		t.Error("distinct lore IDs produced the same point ID")
	}
	if len(a) != 36 {
		t.Errorf("PointID %q is not a canonical UUID string", a)
	}
}
