package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// JSONGenerator is the part of the Gemini client the recognizer needs
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
}

const geminiInstruction = `You are a named-entity recognizer for resumes.
Return JSON of the form {"entities":[{"label":"PER","text":"Jane Doe","start":0,"end":8}]}.
Labels: PER for people, LOC for places and postal addresses, ORG for organizations, MISC otherwise.
"text" must be copied exactly from the input. "start" and "end" are character offsets into the input.
List every occurrence separately. Return {"entities":[]} when there are none.`

const defaultGeminiScore = 0.9

// GeminiRecognizer asks a Gemini model for entities and anchors each one
// back into the page text.
type GeminiRecognizer struct {
	generator JSONGenerator
	logger    *zap.Logger
}

// NewGeminiRecognizer creates a recognizer backed by generator
func NewGeminiRecognizer(generator JSONGenerator, log *zap.Logger) *GeminiRecognizer {
	return &GeminiRecognizer{generator: generator, logger: log}
}

// Name returns the backend name
func (r *GeminiRecognizer) Name() string { return "gemini" }

// Close is a no-op; the client belongs to the caller.
func (r *GeminiRecognizer) Close() error { return nil }

type geminiEntity struct {
	Label string   `json:"label"`
	Text  string   `json:"text"`
	Start int      `json:"start"`
	End   int      `json:"end"`
	Score *float64 `json:"score,omitempty"`
}

type geminiResponse struct {
	Entities []geminiEntity `json:"entities"`
}

// Recognize prompts the model and returns validated spans.
func (r *GeminiRecognizer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	prompt := "Input:\n<<<\n" + text + "\n>>>"
	raw, err := r.generator.GenerateJSON(ctx, geminiInstruction, prompt)
	if err != nil {
		return nil, fmt.Errorf("gemini entity request: %w", err)
	}

	// The response echoes page text, so only its size is logged.
	r.logger.Debug("gemini entity response", zap.Int("response_length", utf8.RuneCountInString(raw)))

	var resp geminiResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		// Never log the response itself: it echoes page text.
		r.logger.Debug("unparseable gemini response",
			zap.Error(err),
			zap.Int("response_length", utf8.RuneCountInString(raw)))
		return nil, fmt.Errorf("parse gemini entities: %w", err)
	}

	return anchorEntities(text, resp.Entities, r.logger), nil
}

// anchorEntities converts model-reported character offsets to byte offsets
// and checks them against text. A span whose offsets do not match its surface
// text moves to the nearest unused occurrence; spans with no occurrence are dropped.
func anchorEntities(text string, found []geminiEntity, log *zap.Logger) []Entity {
	taken := make(map[int]bool)
	out := make([]Entity, 0, len(found))
	dropped := 0

	for _, fe := range found {
		surface := fe.Text
		if strings.TrimSpace(surface) == "" {
			dropped++
			continue
		}

		hint := byteOffset(text, fe.Start)
		start := -1
		if hint >= 0 && hint+len(surface) <= len(text) && text[hint:hint+len(surface)] == surface && !taken[hint] {
			start = hint
		} else {
			start = nearestOccurrence(text, surface, max(hint, 0), taken)
		}
		if start < 0 {
			dropped++
			continue
		}

		taken[start] = true
		score := defaultGeminiScore
		if fe.Score != nil {
			score = *fe.Score
		}
		out = append(out, Entity{
			Label: normalizeLabel(fe.Label),
			Text:  surface,
			Start: start,
			End:   start + len(surface),
			Score: score,
		})
	}

	if dropped > 0 {
		log.Debug("dropped entities not found in text", zap.Int("dropped", dropped))
	}

	SortEntities(out)
	return out
}

// byteOffset maps a rune index to a byte index, or -1 when out of range.
func byteOffset(text string, runeIndex int) int {
	if runeIndex < 0 {
		return -1
	}
	n := 0
	for i := range text {
		if n == runeIndex {
			return i
		}
		n++
	}
	if n == runeIndex {
		return len(text)
	}
	return -1
}

func nearestOccurrence(text, surface string, hint int, taken map[int]bool) int {
	best := -1
	for from := 0; from < len(text); {
		idx := strings.Index(text[from:], surface)
		if idx < 0 {
			break
		}
		idx += from
		if !taken[idx] && (best < 0 || abs(idx-hint) < abs(best-hint)) {
			best = idx
		}
		from = idx + 1
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func normalizeLabel(label string) string {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PER", "PERSON", "NAME":
		return LabelPerson
	case "LOC", "LOCATION", "GPE", "ADDRESS":
		return LabelLocation
	case "ORG", "ORGANIZATION", "ORGANISATION":
		return LabelOrganization
	default:
		return LabelMisc
	}
}
