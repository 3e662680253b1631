package ner

import (
	"fmt"
	"strings"

	"github.com/raaihank/fairhire/internal/config"
	"go.uber.org/zap"
)

// Options carries dependencies that only some backends need
type Options struct {
	Generator JSONGenerator
}

// New creates the recognizer selected by cfg.Type.
func New(cfg config.NERConfig, opts Options, logger *zap.Logger) (Recognizer, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "gazetteer":
		return NewGazetteer(cfg.Gazetteer.ExtraNames, cfg.Gazetteer.ExtraLocations, logger), nil
	case "gemini":
		if opts.Generator == nil {
			return nil, fmt.Errorf("gemini recognizer requires a configured gemini client")
		}
		return NewGeminiRecognizer(opts.Generator, logger), nil
	case "onnx":
		return NewONNXRecognizer(cfg.ONNX, logger)
	default:
		return nil, fmt.Errorf("unsupported ner type: %s", cfg.Type)
	}
}

// Backends returns every recognizer type New accepts
func Backends() []string {
	return []string{"gazetteer", "gemini", "onnx"}
}

// Description describes a recognizer type
func Description(name string) string {
	switch strings.ToLower(name) {
	case "", "gazetteer":
		return "Word lists of given names and place names. Heuristic, no trained model."
	case "gemini":
		return "Hosted Gemini model prompted for PER/LOC spans. Needs an API key and network access."
	case "onnx":
		return "Token-classification transformer through ONNX Runtime. Needs the onnx build tag and model files."
	default:
		return "Unknown recognizer type"
	}
}

// IsHeuristic reports whether a recognizer type matches word lists instead
// of running a trained model.
func IsHeuristic(name string) bool {
	switch strings.ToLower(name) {
	case "", "gazetteer":
		return true
	}
	return false
}
