package port

import (
	"context"

	"repolens/internal/domain"
)

// EmbeddingClient calls a remote embedding service.
type EmbeddingClient interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// Embedder turns text into a vector and never fails. When the remote
// service is unusable the returned embedding has Fallback set.
type Embedder interface {
	Generate(ctx context.Context, text string) domain.Embedding
}
