package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Compile-time interface check
var _ Index = (*QdrantIndex)(nil)

// QdrantIndex is the Qdrant-backed retrieval index.
// The collection stores one point per lore entry, keyed by a deterministic
// UUID derived from the entry's ULID, with project/title/category payload
// for filtered search.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimensions uint64
}

// QdrantConfig holds connection settings for the Qdrant index.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	UseTLS     bool
	Dimensions int
}

// NewQdrantIndex connects to Qdrant over gRPC.
func NewQdrantIndex(cfg QdrantConfig) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		dimensions: uint64(cfg.Dimensions),
	}, nil
}

// Ensure creates the collection with cosine distance if it does not exist.
// Safe to call on every startup.
func (q *QdrantIndex) Ensure(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", q.collection, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.dimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", q.collection, err)
	}
	return nil
}

// Upsert writes points with deterministic IDs, replacing existing vectors.
func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(p.ID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"lore_id":    p.ID,
				"project_id": p.ProjectID,
				"title":      p.Title,
				"category":   p.Category,
			}),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         qdrantPoints,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search queries the collection with an optional project filter and a
// score threshold.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, projectID string, limit int, threshold float32) ([]Match, error) {
	query := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(threshold),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if projectID != "" {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("project_id", projectID),
			},
		}
	}

	scored, err := q.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query collection %q: %w", q.collection, err)
	}

	matches := make([]Match, 0, len(scored))
	for _, sp := range scored {
		loreID := sp.GetPayload()["lore_id"].GetStringValue()
		if loreID == "" {
			continue
		}
		matches = append(matches, Match{ID: loreID, Score: sp.GetScore()})
	}
	return matches, nil
}

// Delete removes points by lore entry ID.
func (q *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(PointID(id))
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("delete %d points: %w", len(ids), err)
	}
	return nil
}

// Mode identifies this implementation.
func (q *QdrantIndex) Mode() string {
	return "qdrant"
}
