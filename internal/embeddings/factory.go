package embeddings

import (
	"fmt"
	"strings"

	"github.com/raaihank/fairhire/internal/config"
	"go.uber.org/zap"
)

// ServiceType represents the type of embedding service
type ServiceType string

const (
	// HashEmbedding uses deterministic feature hashing; no model files needed
	HashEmbedding ServiceType = "hash"

	// ONNXEmbedding runs a sentence-transformer through ONNX Runtime
	ONNXEmbedding ServiceType = "onnx"

	// GeminiEmbedding calls the Gemini embedding API
	GeminiEmbedding ServiceType = "gemini"
)

// Dependencies carries collaborators only some services need
type Dependencies struct {
	Embedder Embedder
	Cache    Cache
}

// Factory creates embedding services based on configuration
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates a new embedding service factory
func NewFactory(logger *zap.Logger) *Factory {
	return &Factory{
		logger: logger,
	}
}

// CreateService creates the service selected by cfg, wrapped with deps.Cache when set.
func (f *Factory) CreateService(cfg config.EmbeddingsConfig, deps Dependencies) (EmbeddingService, error) {
	var (
		service EmbeddingService
		err     error
	)

	switch ServiceType(strings.ToLower(cfg.Type)) {
	case HashEmbedding, "":
		service, err = NewHashEmbeddingService(cfg.Dimensions, f.logger)
	case ONNXEmbedding:
		service, err = NewONNXService(cfg.ONNX, cfg.Dimensions, f.logger)
	case GeminiEmbedding:
		service, err = NewGeminiService(deps.Embedder, 0, f.logger)
	default:
		return nil, fmt.Errorf("%w: unknown embedding service type: %s", ErrConfigError, cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Created embedding service", zap.String("type", service.GetStats().ServiceType))

	if deps.Cache != nil {
		return NewCachedService(service, deps.Cache, f.logger), nil
	}
	return service, nil
}

// GetServiceDescription returns a description of each service type
func GetServiceDescription(serviceType ServiceType) string {
	switch serviceType {
	case HashEmbedding:
		return "Deterministic feature-hashed bag of words. Fast, offline, order-invariant."
	case ONNXEmbedding:
		return "Sentence-transformer embeddings through ONNX Runtime. Needs the onnx build tag and model files."
	case GeminiEmbedding:
		return "Hosted Gemini embeddings. Needs an API key and network access."
	default:
		return "Unknown service type"
	}
}

// IsHeuristic reports whether a service type works without a trained model.
// Its similarities reflect shared words, not meaning.
func IsHeuristic(serviceType ServiceType) bool {
	return serviceType == HashEmbedding
}

// GetAllServiceTypes returns every known service type
func GetAllServiceTypes() []ServiceType {
	return []ServiceType{HashEmbedding, ONNXEmbedding, GeminiEmbedding}
}
