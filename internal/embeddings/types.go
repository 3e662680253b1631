package embeddings

import (
	"time"
)

// EmbeddingDimensions is the default vector size of the hash and MiniLM encoders
const EmbeddingDimensions = 384

// EmbeddingResult represents the result of embedding generation
type EmbeddingResult struct {
	Embedding   []float32     `json:"embedding"`
	Duration    time.Duration `json:"duration"`
	TokenCount  int           `json:"token_count"`
	ServiceType string        `json:"service_type"`
	CacheHit    bool          `json:"cache_hit"`
}

// BatchEmbeddingResult represents the result of batch embedding generation
type BatchEmbeddingResult struct {
	Embeddings  [][]float32   `json:"embeddings"`
	Duration    time.Duration `json:"duration"`
	TotalTokens int           `json:"total_tokens"`
	Successful  int           `json:"successful"`
	Failed      int           `json:"failed"`
	Errors      []error       `json:"errors,omitempty"`
	ServiceType string        `json:"service_type"`
	CacheHits   int           `json:"cache_hits"`
}

// ModelStats represents model performance statistics
type ModelStats struct {
	TotalInferences   int64         `json:"total_inferences"`
	TotalTokens       int64         `json:"total_tokens"`
	SuccessfulRuns    int64         `json:"successful_runs"`
	FailedRuns        int64         `json:"failed_runs"`
	AvgInferenceTime  time.Duration `json:"avg_inference_time"`
	AvgTokensPerText  float64       `json:"avg_tokens_per_text"`
	ModelLoadTime     time.Duration `json:"model_load_time"`
	LastInferenceTime time.Time     `json:"last_inference_time"`
	CacheHitRatio     float64       `json:"cache_hit_ratio"`
	ErrorRate         float64       `json:"error_rate"`
	ServiceType       string        `json:"service_type"`
	StartTime         time.Time     `json:"start_time"`
}

// EmbeddingErrors define custom error types
type EmbeddingError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *EmbeddingError) Error() string {
	return e.Message
}

// Common error types
var (
	ErrInvalidInput       = &EmbeddingError{Type: "invalid_input", Message: "invalid input text", Code: 1001}
	ErrModelNotLoaded     = &EmbeddingError{Type: "model_not_loaded", Message: "model not loaded", Code: 1002}
	ErrInferenceFailed    = &EmbeddingError{Type: "inference_failed", Message: "inference failed", Code: 1003}
	ErrCacheError         = &EmbeddingError{Type: "cache_error", Message: "cache operation failed", Code: 1004}
	ErrConfigError        = &EmbeddingError{Type: "config_error", Message: "configuration error", Code: 1005}
	ErrNetworkError       = &EmbeddingError{Type: "network_error", Message: "network operation failed", Code: 1006}
	ErrTimeoutError       = &EmbeddingError{Type: "timeout_error", Message: "operation timed out", Code: 1007}
	ErrTokenizationFailed = &EmbeddingError{Type: "tokenization_failed", Message: "tokenization failed", Code: 1008}
	ErrDimensionMismatch  = &EmbeddingError{Type: "dimension_mismatch", Message: "embedding dimensions differ", Code: 1009}
)
