package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Embedder is the part of the Gemini client the service needs
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// GeminiService delegates encoding to a hosted embedding model.
type GeminiService struct {
	embedder Embedder
	dims     int
	logger   *zap.Logger
	stats    *statsTracker
}

// NewGeminiService creates a service on top of embedder. dims is learned
// from the first response when zero.
func NewGeminiService(embedder Embedder, dims int, logger *zap.Logger) (*GeminiService, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: gemini embedder is required", ErrConfigError)
	}
	logger.Info("Gemini embedding service initialized")
	return &GeminiService{
		embedder: embedder,
		dims:     dims,
		logger:   logger,
		stats:    newStatsTracker("gemini", 0),
	}, nil
}

// GenerateEmbedding encodes one text
func (s *GeminiService) GenerateEmbedding(ctx context.Context, text string) (*EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrInvalidInput)
	}

	start := time.Now()
	vectors, err := s.embedder.Embed(ctx, []string{text})
	duration := time.Since(start)
	if err != nil {
		s.stats.record(0, 0, duration, false)
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}

	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d embeddings for one text", ErrInferenceFailed, len(vectors))
	}

	tokens := len(strings.Fields(text))
	s.stats.record(1, tokens, duration, true)

	return &EmbeddingResult{
		Embedding:   vectors[0],
		Duration:    duration,
		TokenCount:  tokens,
		ServiceType: "gemini",
	}, nil
}

// GenerateBatchEmbeddings encodes every non-empty text in one request.
func (s *GeminiService) GenerateBatchEmbeddings(ctx context.Context, texts []string) (*BatchEmbeddingResult, error) {
	result := &BatchEmbeddingResult{
		Embeddings:  make([][]float32, len(texts)),
		ServiceType: "gemini",
	}

	var (
		index []int
		valid []string
	)
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			result.Errors = append(result.Errors, fmt.Errorf("%w: empty text at index %d", ErrInvalidInput, i))
			result.Failed++
			continue
		}
		index = append(index, i)
		valid = append(valid, text)
		result.TotalTokens += len(strings.Fields(text))
	}
	if len(valid) == 0 {
		return result, nil
	}

	start := time.Now()
	vectors, err := s.embedder.Embed(ctx, valid)
	result.Duration = time.Since(start)
	if err != nil {
		s.stats.record(0, 0, result.Duration, false)
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}

	if len(vectors) != len(valid) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrInferenceFailed, len(vectors), len(valid))
	}
	for i, vec := range vectors {
		result.Embeddings[index[i]] = vec
	}
	result.Successful = len(vectors)

	s.stats.record(int64(len(vectors)), result.TotalTokens, result.Duration, true)
	return result, nil
}

// ComputeSimilarity returns the cosine similarity of two embeddings
func (s *GeminiService) ComputeSimilarity(vec1, vec2 []float32) float32 {
	return CosineSimilarity(vec1, vec2)
}

// Dimensions returns the configured size, or 0 when it comes from the model
func (s *GeminiService) Dimensions() int { return s.dims }

// GetStats returns model performance statistics
func (s *GeminiService) GetStats() *ModelStats { return s.stats.snapshot() }

// Close is a no-op; the client belongs to the caller.
func (s *GeminiService) Close() error { return nil }
