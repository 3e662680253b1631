package embeddings

import (
	"math"
	"sync"
	"time"
)

// NormalizeEmbedding scales a vector to unit length. Zero vectors are returned as is.
func NormalizeEmbedding(embedding []float32) []float32 {
	var norm float64
	for _, val := range embedding {
		norm += float64(val) * float64(val)
	}
	if norm == 0 {
		return embedding
	}
	norm = math.Sqrt(norm)

	normalized := make([]float32, len(embedding))
	for i, val := range embedding {
		normalized[i] = float32(float64(val) / norm)
	}
	return normalized
}

// CosineSimilarity returns the cosine of the angle between two vectors, or 0
// when their lengths differ or either is zero.
func CosineSimilarity(vec1, vec2 []float32) float32 {
	if len(vec1) != len(vec2) || len(vec1) == 0 {
		return 0.0
	}

	var dotProduct, norm1, norm2 float64
	for i := range vec1 {
		dotProduct += float64(vec1[i]) * float64(vec2[i])
		norm1 += float64(vec1[i]) * float64(vec1[i])
		norm2 += float64(vec2[i]) * float64(vec2[i])
	}

	if norm1 == 0 || norm2 == 0 {
		return 0.0
	}

	sim := dotProduct / (math.Sqrt(norm1) * math.Sqrt(norm2))
	return float32(math.Max(-1, math.Min(1, sim)))
}

// statsTracker keeps ModelStats behind a mutex
type statsTracker struct {
	mu    sync.RWMutex
	stats ModelStats
}

func newStatsTracker(serviceType string, loadTime time.Duration) *statsTracker {
	return &statsTracker{stats: ModelStats{
		ServiceType:   serviceType,
		StartTime:     time.Now(),
		ModelLoadTime: loadTime,
	}}
}

// record adds one run of inferences texts and tokens to the totals.
func (t *statsTracker) record(inferences int64, tokens int, duration time.Duration, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.stats
	if success {
		s.SuccessfulRuns++
	} else {
		s.FailedRuns++
	}

	if inferences > 0 {
		total := time.Duration(s.TotalInferences)*s.AvgInferenceTime + duration
		s.TotalInferences += inferences
		s.AvgInferenceTime = total / time.Duration(s.TotalInferences)
	}
	s.TotalTokens += int64(tokens)
	s.LastInferenceTime = time.Now()

	if s.TotalInferences > 0 {
		s.AvgTokensPerText = float64(s.TotalTokens) / float64(s.TotalInferences)
	}
	if runs := s.SuccessfulRuns + s.FailedRuns; runs > 0 {
		s.ErrorRate = float64(s.FailedRuns) / float64(runs)
	}
}

func (t *statsTracker) snapshot() *ModelStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats := t.stats
	return &stats
}
