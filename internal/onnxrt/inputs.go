// Package onnxrt shares one ONNX Runtime environment and the transformer
// session plumbing between the recognizer and the embedding backends. The
// runtime itself is only linked into builds with the onnx tag.
package onnxrt

import (
	"sort"
	"strings"
)

// InputKind is the role a model input plays for a BERT-style encoder
type InputKind int

const (
	InputUnknown InputKind = iota
	InputIDs
	InputAttentionMask
	InputTokenTypes
)

func (k InputKind) String() string {
	switch k {
	case InputIDs:
		return "input_ids"
	case InputAttentionMask:
		return "attention_mask"
	case InputTokenTypes:
		return "token_type_ids"
	default:
		return "unknown"
	}
}

// ClassifyInput guesses the role of a model input from its declared name.
func ClassifyInput(name string) InputKind {
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "token_type") || strings.Contains(name, "segment"):
		return InputTokenTypes
	case strings.Contains(name, "attention") || strings.Contains(name, "mask"):
		return InputAttentionMask
	case name == "input" || strings.Contains(name, "ids"):
		return InputIDs
	default:
		return InputUnknown
	}
}

// ResolveInputs orders the declared inputs and assigns each a role. Unknown
// names take the first unused role in ids, mask, types order.
func ResolveInputs(declared []string) ([]string, []InputKind) {
	names := append([]string(nil), declared...)
	sort.SliceStable(names, func(i, j int) bool {
		return rank(ClassifyInput(names[i])) < rank(ClassifyInput(names[j]))
	})

	used := map[InputKind]bool{}
	kinds := make([]InputKind, len(names))
	for i, name := range names {
		kind := ClassifyInput(name)
		if kind == InputUnknown {
			for _, candidate := range []InputKind{InputIDs, InputAttentionMask, InputTokenTypes} {
				if !used[candidate] {
					kind = candidate
					break
				}
			}
			if kind == InputUnknown {
				kind = InputIDs
			}
		}
		used[kind] = true
		kinds[i] = kind
	}
	return names, kinds
}

func rank(k InputKind) int {
	if k == InputUnknown {
		return 4
	}
	return int(k)
}
