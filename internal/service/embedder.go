package service

import "context"

// EmbeddingProvider is the raw upstream text-to-vector service. The
// EmbeddingGateway wraps it with normalization, truncation and caching;
// nothing else should call a provider directly.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
