package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// CachedService looks embeddings up in a Cache before asking the wrapped service.
type CachedService struct {
	inner  EmbeddingService
	cache  Cache
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedService wraps inner with cache
func NewCachedService(inner EmbeddingService, cache Cache, logger *zap.Logger) *CachedService {
	return &CachedService{inner: inner, cache: cache, logger: logger}
}

func (s *CachedService) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return s.inner.GetStats().ServiceType + ":" + hex.EncodeToString(sum[:16])
}

// GenerateEmbedding returns the cached embedding or computes and stores it.
func (s *CachedService) GenerateEmbedding(ctx context.Context, text string) (*EmbeddingResult, error) {
	start := time.Now()
	key := s.key(text)
	if vec, ok := s.cache.Get(ctx, key); ok {
		s.hits.Add(1)
		return &EmbeddingResult{
			Embedding:   vec,
			Duration:    time.Since(start),
			ServiceType: s.inner.GetStats().ServiceType,
			CacheHit:    true,
		}, nil
	}
	s.misses.Add(1)

	result, err := s.inner.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, result.Embedding); err != nil {
		s.logger.Warn("Failed to cache embedding", zap.Error(err))
	}
	return result, nil
}

// GenerateBatchEmbeddings serves cached entries and computes the rest in one batch.
func (s *CachedService) GenerateBatchEmbeddings(ctx context.Context, texts []string) (*BatchEmbeddingResult, error) {
	start := time.Now()
	out := &BatchEmbeddingResult{
		Embeddings:  make([][]float32, len(texts)),
		ServiceType: s.inner.GetStats().ServiceType,
	}

	var (
		missIndex []int
		missTexts []string
	)
	for i, text := range texts {
		if vec, ok := s.cache.Get(ctx, s.key(text)); ok {
			out.Embeddings[i] = vec
			out.CacheHits++
			out.Successful++
			continue
		}
		missIndex = append(missIndex, i)
		missTexts = append(missTexts, text)
	}
	s.hits.Add(int64(out.CacheHits))
	s.misses.Add(int64(len(missTexts)))

	if len(missTexts) > 0 {
		computed, err := s.inner.GenerateBatchEmbeddings(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range computed.Embeddings {
			out.Embeddings[missIndex[j]] = vec
			if vec == nil {
				continue
			}
			if err := s.cache.Set(ctx, s.key(missTexts[j]), vec); err != nil {
				s.logger.Warn("Failed to cache embedding", zap.Error(err))
			}
		}
		out.Successful += computed.Successful
		out.Failed += computed.Failed
		out.Errors = append(out.Errors, computed.Errors...)
		out.TotalTokens += computed.TotalTokens
	}

	out.Duration = time.Since(start)
	return out, nil
}

// ComputeSimilarity delegates to the wrapped service
func (s *CachedService) ComputeSimilarity(vec1, vec2 []float32) float32 {
	return s.inner.ComputeSimilarity(vec1, vec2)
}

// Dimensions delegates to the wrapped service
func (s *CachedService) Dimensions() int { return s.inner.Dimensions() }

// GetStats returns the wrapped service's stats with the cache hit ratio filled in.
func (s *CachedService) GetStats() *ModelStats {
	stats := s.inner.GetStats()
	hits, misses := s.hits.Load(), s.misses.Load()
	if total := hits + misses; total > 0 {
		stats.CacheHitRatio = float64(hits) / float64(total)
	}
	return stats
}

// Close closes the wrapped service. The cache is closed by its owner.
func (s *CachedService) Close() error { return s.inner.Close() }
