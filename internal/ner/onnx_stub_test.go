//go:build !onnx
// +build !onnx

package ner

import (
	"errors"
	"testing"

	"github.com/raaihank/fairhire/internal/config"
	"go.uber.org/zap"
)

func TestONNXUnavailableWithoutTag(t *testing.T) {
	cfg := config.GetDefaults().NER
	cfg.Type = "onnx"
	if _, err := New(cfg, Options{}, zap.NewNop()); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("New(onnx) error = %v, want ErrBackendUnavailable", err)
	}
}
