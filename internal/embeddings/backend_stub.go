//go:build !onnx
// +build !onnx

package embeddings

import (
	"fmt"

	"github.com/raaihank/fairhire/internal/config"
	"go.uber.org/zap"
)

// NewONNXService is unavailable without the 'onnx' build tag.
func NewONNXService(cfg config.ONNXModelConfig, dims int, logger *zap.Logger) (EmbeddingService, error) {
	return nil, fmt.Errorf("%w: onnx backend not compiled in (rebuild with -tags onnx)", ErrModelNotLoaded)
}
