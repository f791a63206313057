package embedding

import "context"

// Embedder defines the interface contract for embedding generation services.
// Implementations report prompt token usage alongside the vectors so calls
// can be costed into the usage ledger.
type Embedder interface {
	Embed(ctx context.Context, content string) ([]float32, int64, error)
	EmbedBatch(ctx context.Context, contents []string) ([][]float32, int64, error)
	ModelName() string
}
