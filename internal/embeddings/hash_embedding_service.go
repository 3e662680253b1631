package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

const (
	// projections per feature; each picks one dimension and a sign
	hashProjections = 8
	trigramWeight   = 0.3
)

var hashStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "of": true, "in": true,
	"on": true, "to": true, "for": true, "with": true, "or": true, "is": true,
	"are": true, "be": true, "as": true, "at": true, "by": true, "we": true,
	"you": true, "our": true, "your": true, "will": true, "this": true, "that": true,
}

// HashEmbeddingService builds deterministic bag-of-words embeddings by
// feature hashing words and their character trigrams into a fixed number of
// dimensions. Word order does not affect the result.
type HashEmbeddingService struct {
	dims   int
	logger *zap.Logger
	stats  *statsTracker
}

// NewHashEmbeddingService creates a new hash-based embedding service
func NewHashEmbeddingService(dims int, logger *zap.Logger) (*HashEmbeddingService, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", ErrConfigError, dims)
	}

	start := time.Now()
	service := &HashEmbeddingService{
		dims:   dims,
		logger: logger,
	}
	service.stats = newStatsTracker("hash", time.Since(start))

	logger.Info("Hash embedding service initialized",
		zap.String("type", "feature_hashing"),
		zap.Int("embedding_dimensions", dims))

	return service, nil
}

// GenerateEmbedding generates a deterministic embedding for text
func (s *HashEmbeddingService) GenerateEmbedding(ctx context.Context, text string) (*EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrInvalidInput)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrTimeoutError, ctx.Err())
	default:
	}

	start := time.Now()
	tokens := bagOfWords(text)
	embedding := s.embed(tokens)
	duration := time.Since(start)

	s.stats.record(1, len(tokens), duration, true)

	return &EmbeddingResult{
		Embedding:   embedding,
		Duration:    duration,
		TokenCount:  len(tokens),
		ServiceType: "hash",
	}, nil
}

// GenerateBatchEmbeddings generates embeddings for multiple texts. Failed
// entries are nil in the result.
func (s *HashEmbeddingService) GenerateBatchEmbeddings(ctx context.Context, texts []string) (*BatchEmbeddingResult, error) {
	result := &BatchEmbeddingResult{
		Embeddings:  make([][]float32, len(texts)),
		ServiceType: "hash",
	}
	if len(texts) == 0 {
		return result, nil
	}

	start := time.Now()
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: batch cancelled at item %d", ErrTimeoutError, i)
		default:
		}

		if strings.TrimSpace(text) == "" {
			result.Errors = append(result.Errors, fmt.Errorf("%w: empty text at index %d", ErrInvalidInput, i))
			result.Failed++
			continue
		}

		tokens := bagOfWords(text)
		result.Embeddings[i] = s.embed(tokens)
		result.TotalTokens += len(tokens)
		result.Successful++
	}
	result.Duration = time.Since(start)

	s.stats.record(int64(result.Successful), result.TotalTokens, result.Duration, result.Failed == 0)
	return result, nil
}

func (s *HashEmbeddingService) embed(tokens []string) []float32 {
	vec := make([]float32, s.dims)
	for _, token := range tokens {
		s.addFeature(vec, "w:"+token, 1)

		grams := trigrams(token)
		weight := trigramWeight / math.Sqrt(float64(len(grams)))
		for _, gram := range grams {
			s.addFeature(vec, "t:"+gram, weight)
		}
	}
	return NormalizeEmbedding(vec)
}

// addFeature projects one hashed feature onto the vector with random signs.
func (s *HashEmbeddingService) addFeature(vec []float32, feature string, weight float64) {
	sum := sha256.Sum256([]byte(feature))
	for p := 0; p < hashProjections; p++ {
		word := binary.LittleEndian.Uint32(sum[p*4:])
		dim := int(word>>1) % s.dims
		if word&1 == 1 {
			vec[dim] += float32(weight)
		} else {
			vec[dim] -= float32(weight)
		}
	}
}

// bagOfWords lowercases text and keeps word-like tokens. Symbols common in
// skill names (c++, c#, node.js) stay attached.
func bagOfWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.')
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if f == "" || hashStopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func trigrams(token string) []string {
	runes := []rune("<" + token + ">")
	if len(runes) <= 3 {
		return []string{string(runes)}
	}
	grams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+3]))
	}
	return grams
}

// ComputeSimilarity returns the cosine similarity of two embeddings
func (s *HashEmbeddingService) ComputeSimilarity(vec1, vec2 []float32) float32 {
	return CosineSimilarity(vec1, vec2)
}

// Dimensions returns the embedding size
func (s *HashEmbeddingService) Dimensions() int { return s.dims }

// GetStats returns model performance statistics
func (s *HashEmbeddingService) GetStats() *ModelStats {
	return s.stats.snapshot()
}

// Close cleans up resources
func (s *HashEmbeddingService) Close() error {
	s.logger.Debug("Hash embedding service closed")
	return nil
}
