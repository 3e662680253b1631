//go:build onnx
// +build onnx

package ner

import (
	"context"
	"fmt"

	"github.com/raaihank/fairhire/internal/config"
	"github.com/raaihank/fairhire/internal/onnxrt"
	"github.com/raaihank/fairhire/internal/tokenizer"
	"go.uber.org/zap"
)

// ONNXRecognizer runs a BERT token-classification model.
type ONNXRecognizer struct {
	session   *onnxrt.Session
	tokenizer *tokenizer.WordPiece
	labels    []string
	maxLength int
	logger    *zap.Logger
}

// NewONNXRecognizer loads the model and vocabulary named in cfg.
func NewONNXRecognizer(cfg config.ONNXModelConfig, logger *zap.Logger) (Recognizer, error) {
	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("onnx recognizer needs the model's label list")
	}

	tok, err := tokenizer.Load(cfg.VocabPath, cfg.LowerCase, cfg.MaxLength)
	if err != nil {
		return nil, err
	}

	session, err := onnxrt.Open(cfg.ModelPath, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("ONNX recognizer ready",
		zap.Int("vocab_size", tok.VocabSize()),
		zap.Strings("labels", cfg.Labels))

	return &ONNXRecognizer{
		session:   session,
		tokenizer: tok,
		labels:    cfg.Labels,
		maxLength: cfg.MaxLength,
		logger:    logger,
	}, nil
}

// Name returns the backend name
func (r *ONNXRecognizer) Name() string { return "onnx" }

// Close releases the model session
func (r *ONNXRecognizer) Close() error { return r.session.Close() }

// Recognize classifies text line group by line group.
func (r *ONNXRecognizer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	count := func(s string) int { return len(r.tokenizer.Tokenize(s)) }

	var entities []Entity
	for _, c := range chunkLines(text, count, r.maxLength-2) {
		enc := r.tokenizer.Encode(c.text)
		if enc.Truncated {
			r.logger.Debug("NER input truncated", zap.Int("chunk_offset", c.offset))
		}

		data, shape, err := r.session.Run(ctx, []*tokenizer.Encoding{enc})
		if err != nil {
			return nil, fmt.Errorf("token classification: %w", err)
		}
		if len(shape) != 3 || int(shape[2]) != len(r.labels) || int(shape[1]) != len(enc.Tokens) {
			return nil, fmt.Errorf("unexpected classifier output shape %v for %d labels", shape, len(r.labels))
		}

		numLabels := len(r.labels)
		tags := make([]TokenTag, 0, len(enc.Tokens))
		for i, tok := range enc.Tokens {
			if tok.Special {
				continue
			}
			best, score := argmaxSoftmax(data[i*numLabels : (i+1)*numLabels])
			tags = append(tags, TokenTag{
				Label:        r.labels[best],
				Score:        score,
				Start:        c.offset + tok.Start,
				End:          c.offset + tok.End,
				Continuation: tok.Continuation,
			})
		}
		entities = append(entities, GroupEntities(text, tags)...)
	}

	SortEntities(entities)
	return entities, nil
}
