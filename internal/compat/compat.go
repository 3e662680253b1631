// Package compat scores how well a skill list matches a job description.
package compat

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/raaihank/fairhire/internal/embeddings"
	"go.uber.org/zap"
)

// Band is the color band of a display value
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// Band thresholds on the 0-10 display scale
const (
	MediumThreshold = 3.3
	HighThreshold   = 6.6
	MaxDisplay      = 10.0
)

// Score is the compatibility of a description and a skill list
type Score struct {
	// Similarity is the raw cosine similarity in [-1, 1].
	Similarity float64 `json:"similarity"`
	// Display is Similarity on the 0-10 gauge scale.
	Display  float64       `json:"display"`
	Band     Band          `json:"band"`
	Duration time.Duration `json:"duration"`
}

// Formatted returns the similarity with two decimals
func (s Score) Formatted() string {
	return fmt.Sprintf("%.2f", s.Similarity)
}

// DisplayValue maps a similarity onto the clamped 0-10 scale
func DisplayValue(similarity float64) float64 {
	if math.IsNaN(similarity) {
		return 0
	}
	return math.Min(math.Max(similarity*10, 0), MaxDisplay)
}

// BandFor returns the band a display value falls in
func BandFor(display float64) Band {
	switch {
	case display < MediumThreshold:
		return BandLow
	case display < HighThreshold:
		return BandMedium
	default:
		return BandHigh
	}
}

// NewScore builds a Score from a raw similarity
func NewScore(similarity float64) Score {
	display := DisplayValue(similarity)
	return Score{Similarity: similarity, Display: display, Band: BandFor(display)}
}

// Scorer embeds both texts and compares them
type Scorer struct {
	service embeddings.EmbeddingService
	logger  *zap.Logger
}

// NewScorer creates a scorer on top of an embedding service
func NewScorer(service embeddings.EmbeddingService, logger *zap.Logger) *Scorer {
	return &Scorer{service: service, logger: logger}
}

// Score returns the cosine similarity of description and skills
func (s *Scorer) Score(ctx context.Context, description, skills string) (*Score, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: description cannot be empty", embeddings.ErrInvalidInput)
	}
	if strings.TrimSpace(skills) == "" {
		return nil, fmt.Errorf("%w: skills cannot be empty", embeddings.ErrInvalidInput)
	}

	start := time.Now()
	batch, err := s.service.GenerateBatchEmbeddings(ctx, []string{description, skills})
	if err != nil {
		return nil, fmt.Errorf("embedding texts: %w", err)
	}
	if batch.Failed > 0 || len(batch.Embeddings) != 2 || batch.Embeddings[0] == nil || batch.Embeddings[1] == nil {
		if len(batch.Errors) > 0 {
			return nil, fmt.Errorf("embedding texts: %w", batch.Errors[0])
		}
		return nil, fmt.Errorf("%w: missing embeddings", embeddings.ErrInferenceFailed)
	}

	similarity := float64(s.service.ComputeSimilarity(batch.Embeddings[0], batch.Embeddings[1]))
	score := NewScore(similarity)
	score.Duration = time.Since(start)

	s.logger.Debug("Compatibility scored",
		zap.String("similarity", score.Formatted()),
		zap.String("band", string(score.Band)),
		zap.Bool("cache_hit", batch.CacheHits == 2),
		zap.Duration("duration", score.Duration))

	return &score, nil
}
