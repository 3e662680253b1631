package embeddings

import (
	"context"
)

// EmbeddingService defines the interface for embedding generation services
type EmbeddingService interface {
	GenerateEmbedding(ctx context.Context, text string) (*EmbeddingResult, error)
	GenerateBatchEmbeddings(ctx context.Context, texts []string) (*BatchEmbeddingResult, error)
	ComputeSimilarity(vec1, vec2 []float32) float32
	Dimensions() int
	GetStats() *ModelStats
	Close() error
}

// Cache stores embeddings by key. Misses and backend failures both report false.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, embedding []float32) error
}

// Ensure implementations satisfy the interface
var (
	_ EmbeddingService = (*HashEmbeddingService)(nil)
	_ EmbeddingService = (*GeminiService)(nil)
	_ EmbeddingService = (*CachedService)(nil)
)
