package adapter

import "context"

// Embedder turns text into fixed-dimension vectors. The model behind it is a
// black box; all vectors produced by one instance share the same dimension.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
