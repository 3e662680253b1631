//go:build !onnx
// +build !onnx

package ner

import (
	"fmt"

	"github.com/raaihank/fairhire/internal/config"
	"go.uber.org/zap"
)

// NewONNXRecognizer reports that this build has no ONNX Runtime.
func NewONNXRecognizer(cfg config.ONNXModelConfig, logger *zap.Logger) (Recognizer, error) {
	return nil, fmt.Errorf("%w: onnx (rebuild with -tags onnx)", ErrBackendUnavailable)
}
