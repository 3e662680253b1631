//go:build onnx
// +build onnx

package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raaihank/fairhire/internal/config"
	"github.com/raaihank/fairhire/internal/onnxrt"
	"github.com/raaihank/fairhire/internal/tokenizer"
	"go.uber.org/zap"
)

// ONNXService encodes text with a sentence-transformer exported to ONNX.
type ONNXService struct {
	session   *onnxrt.Session
	tokenizer *tokenizer.WordPiece
	dims      int
	logger    *zap.Logger
	stats     *statsTracker
}

// NewONNXService loads the model and vocabulary named in cfg. Requires build tag 'onnx'.
func NewONNXService(cfg config.ONNXModelConfig, dims int, logger *zap.Logger) (EmbeddingService, error) {
	start := time.Now()

	tok, err := tokenizer.Load(cfg.VocabPath, cfg.LowerCase, cfg.MaxLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelNotLoaded, err)
	}

	session, err := onnxrt.Open(cfg.ModelPath, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelNotLoaded, err)
	}

	service := &ONNXService{
		session:   session,
		tokenizer: tok,
		dims:      dims,
		logger:    logger,
	}
	service.stats = newStatsTracker("onnx", time.Since(start))

	logger.Info("ONNX embedding service initialized",
		zap.String("model", cfg.ModelPath),
		zap.Int("vocab_size", tok.VocabSize()),
		zap.Int("embedding_dimensions", dims))

	return service, nil
}

// GenerateEmbedding encodes one text
func (s *ONNXService) GenerateEmbedding(ctx context.Context, text string) (*EmbeddingResult, error) {
	batch, err := s.GenerateBatchEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if batch.Failed > 0 {
		return nil, batch.Errors[0]
	}
	return &EmbeddingResult{
		Embedding:   batch.Embeddings[0],
		Duration:    batch.Duration,
		TokenCount:  batch.TotalTokens,
		ServiceType: "onnx",
	}, nil
}

// GenerateBatchEmbeddings runs one inference for all non-empty texts.
func (s *ONNXService) GenerateBatchEmbeddings(ctx context.Context, texts []string) (*BatchEmbeddingResult, error) {
	result := &BatchEmbeddingResult{
		Embeddings:  make([][]float32, len(texts)),
		ServiceType: "onnx",
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
	}
	if len(valid) == 0 {
		return result, nil
	}

	start := time.Now()
	encodings := s.tokenizer.EncodeBatch(valid)
	masks := make([][]int32, len(encodings))
	for i, enc := range encodings {
		masks[i] = enc.AttentionMask
		for _, m := range enc.AttentionMask {
			result.TotalTokens += int(m)
		}
	}

	data, shape, err := s.session.Run(ctx, encodings)
	if err != nil {
		s.stats.record(0, 0, time.Since(start), false)
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}

	var vectors [][]float32
	switch len(shape) {
	case 2:
		if int(shape[1]) != s.dims {
			return nil, fmt.Errorf("%w: model returned %d dims, want %d", ErrDimensionMismatch, shape[1], s.dims)
		}
		vectors = make([][]float32, len(valid))
		for i := range vectors {
			vectors[i] = append([]float32(nil), data[i*s.dims:(i+1)*s.dims]...)
		}
	case 3:
		if int(shape[2]) != s.dims {
			return nil, fmt.Errorf("%w: model returned %d dims, want %d", ErrDimensionMismatch, shape[2], s.dims)
		}
		if vectors, err = MeanPool(data, masks, int(shape[1]), s.dims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported output shape %v", ErrInferenceFailed, shape)
	}

	for i, vec := range vectors {
		result.Embeddings[index[i]] = NormalizeEmbedding(vec)
	}
	result.Successful = len(vectors)
	result.Duration = time.Since(start)

	s.stats.record(int64(len(vectors)), result.TotalTokens, result.Duration, true)
	return result, nil
}

// ComputeSimilarity returns the cosine similarity of two embeddings
func (s *ONNXService) ComputeSimilarity(vec1, vec2 []float32) float32 {
	return CosineSimilarity(vec1, vec2)
}

// Dimensions returns the embedding size
func (s *ONNXService) Dimensions() int { return s.dims }

// GetStats returns model performance statistics
func (s *ONNXService) GetStats() *ModelStats { return s.stats.snapshot() }

// Close releases the model session
func (s *ONNXService) Close() error { return s.session.Close() }
