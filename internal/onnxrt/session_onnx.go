//go:build onnx
// +build onnx

package onnxrt

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/raaihank/fairhire/internal/tokenizer"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

var (
	envMu   sync.Mutex
	envRefs int
)

func acquire() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
			ort.SetSharedLibraryPath(shlib)
		} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
			ort.SetSharedLibraryPath(shlib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx runtime environment init: %w", err)
		}
	}
	envRefs++
	return nil
}

func release() {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		return
	}
	envRefs--
	if envRefs == 0 {
		_ = ort.DestroyEnvironment()
	}
}

// Session runs one transformer model with a single float32 output.
type Session struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	inputKinds []InputKind
	outputName string
	logger     *zap.Logger
	mu         sync.Mutex
}

// Open loads modelPath. The returned session holds a reference on the shared
// runtime environment until Close.
func Open(modelPath string, logger *zap.Logger) (*Session, error) {
	if err := acquire(); err != nil {
		return nil, err
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		release()
		return nil, fmt.Errorf("inspecting model %s: %w", modelPath, err)
	}
	if len(outputsInfo) == 0 {
		release()
		return nil, fmt.Errorf("model %s reports no outputs", modelPath)
	}

	declared := make([]string, 0, len(inputsInfo))
	for _, info := range inputsInfo {
		declared = append(declared, info.Name)
	}
	inputNames, inputKinds := ResolveInputs(declared)
	outputName := outputsInfo[0].Name

	sess, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputName}, nil)
	if err != nil {
		release()
		return nil, fmt.Errorf("creating session for %s: %w", modelPath, err)
	}

	logger.Info("ONNX Runtime session ready",
		zap.String("model", modelPath),
		zap.Strings("inputs", inputNames),
		zap.String("output", outputName))

	return &Session{
		session:    sess,
		inputNames: inputNames,
		inputKinds: inputKinds,
		outputName: outputName,
		logger:     logger,
	}, nil
}

// Run feeds a padded batch and returns the flat output data with its shape.
func (s *Session) Run(ctx context.Context, batch []*tokenizer.Encoding) ([]float32, []int64, error) {
	if len(batch) == 0 {
		return nil, nil, nil
	}
	seqLen := len(batch[0].InputIDs)

	ids := make([]int64, 0, len(batch)*seqLen)
	mask := make([]int64, 0, len(batch)*seqLen)
	types := make([]int64, 0, len(batch)*seqLen)
	for _, enc := range batch {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if len(enc.InputIDs) != seqLen {
			return nil, nil, fmt.Errorf("batch is not padded: %d vs %d tokens", len(enc.InputIDs), seqLen)
		}
		for i := 0; i < seqLen; i++ {
			ids = append(ids, int64(enc.InputIDs[i]))
			mask = append(mask, int64(enc.AttentionMask[i]))
			types = append(types, int64(enc.TokenTypeIDs[i]))
		}
	}

	shape := ort.NewShape(int64(len(batch)), int64(seqLen))
	byKind := map[InputKind][]int64{
		InputIDs:           ids,
		InputAttentionMask: mask,
		InputTokenTypes:    types,
	}

	inputs := make([]ort.Value, 0, len(s.inputKinds))
	for _, kind := range s.inputKinds {
		tensor, err := ort.NewTensor[int64](shape, byKind[kind])
		if err != nil {
			return nil, nil, fmt.Errorf("creating %s tensor: %w", kind, err)
		}
		defer tensor.Destroy()
		inputs = append(inputs, tensor)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil, fmt.Errorf("onnx session is closed")
	}

	outputs := make([]ort.Value, 1)
	if err := s.session.Run(inputs, outputs); err != nil {
		return nil, nil, fmt.Errorf("onnx run failed: %w", err)
	}
	if outputs[0] == nil {
		return nil, nil, fmt.Errorf("onnx returned no outputs")
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("unexpected output type (want float32 tensor)")
	}

	data := append([]float32(nil), out.GetData()...)
	return data, []int64(out.GetShape()), nil
}

// Close releases the session and its reference on the environment.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	release()
	return err
}
