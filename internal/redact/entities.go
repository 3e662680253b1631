package redact

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/raaihank/fairhire/internal/ner"
	"go.uber.org/zap"
)

// EntityRedactor replaces recognized entity spans whose label has a token.
type EntityRedactor struct {
	recognizer ner.Recognizer
	labels     map[string]string
	minScore   float64
	logger     *zap.Logger
}

// NewEntityRedactor creates a redactor. labels maps entity labels such as PER
// to their replacement token; other labels are left in place.
func NewEntityRedactor(recognizer ner.Recognizer, labels map[string]string, minScore float64, logger *zap.Logger) *EntityRedactor {
	normalized := make(map[string]string, len(labels))
	for label, token := range labels {
		normalized[strings.ToUpper(label)] = token
	}
	return &EntityRedactor{
		recognizer: recognizer,
		labels:     normalized,
		minScore:   minScore,
		logger:     logger,
	}
}

// Redact recognizes entities in text and replaces them by offset.
func (r *EntityRedactor) Redact(ctx context.Context, text string) (ProcessResult, error) {
	entities, err := r.recognizer.Recognize(ctx, text)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("recognizing entities with %s: %w", r.recognizer.Name(), err)
	}

	masked, findings := ReplaceSpans(text, entities, r.labels, r.minScore)

	r.logger.Debug("Entities masked",
		zap.String("recognizer", r.recognizer.Name()),
		zap.Int("recognized", len(entities)),
		zap.Int("finding_types", len(findings)))

	return ProcessResult{MaskedText: masked, Findings: findings, Original: text}, nil
}

// ReplaceSpans replaces each allowed entity span of text with its token.
// Overlapping spans merge into the earliest one, which keeps its label.
// Bytes outside spans are copied unchanged.
func ReplaceSpans(text string, entities []ner.Entity, labels map[string]string, minScore float64) (string, []Finding) {
	kept := make([]ner.Entity, 0, len(entities))
	for _, e := range entities {
		e.Label = strings.ToUpper(e.Label)
		if _, ok := labels[e.Label]; !ok {
			continue
		}
		if e.Score < minScore || e.Start < 0 || e.End > len(text) || e.Start >= e.End {
			continue
		}
		kept = append(kept, e)
	}
	ner.SortEntities(kept)

	merged := make([]ner.Entity, 0, len(kept))
	for _, e := range kept {
		if n := len(merged); n > 0 && e.Start < merged[n-1].End {
			merged[n-1].End = max(merged[n-1].End, e.End)
			continue
		}
		merged = append(merged, e)
	}

	var b strings.Builder
	b.Grow(len(text))
	byLabel := make(map[string]*Finding)
	last := 0
	for _, e := range merged {
		token := labels[e.Label]
		b.WriteString(text[last:e.Start])
		b.WriteString(token)
		last = e.End

		f, ok := byLabel[e.Label]
		if !ok {
			f = &Finding{EntityType: e.Label, Masked: token}
			byLabel[e.Label] = f
		}
		f.Count++
		f.Positions = append(f.Positions, e.Start)
	}
	b.WriteString(text[last:])

	findings := make([]Finding, 0, len(byLabel))
	for _, f := range byLabel {
		findings = append(findings, *f)
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].EntityType < findings[j].EntityType })

	return b.String(), findings
}
