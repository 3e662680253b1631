// Package anonymizer runs the resume anonymization pipeline: extract page
// text, mask recognized entities, mask contact patterns and render the masked
// pages to a new PDF.
package anonymizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/raaihank/fairhire/internal/document"
	"github.com/raaihank/fairhire/internal/redact"
	"github.com/raaihank/fairhire/internal/storage"
	"go.uber.org/zap"
)

// DefaultOutputName is the file name used when no output path is given
const DefaultOutputName = "anonymized_output.pdf"

// PageResult is one masked page
type PageResult struct {
	Number   int              `json:"number"`
	Text     string           `json:"text"`
	Findings []redact.Finding `json:"findings"`
}

// Report summarizes one anonymization
type Report struct {
	Format   document.Format       `json:"format"`
	Pages    int                   `json:"pages"`
	Findings []redact.Finding      `json:"findings"`
	Render   *document.RenderStats `json:"render,omitempty"`
	Artifact *storage.Artifact     `json:"artifact,omitempty"`
	Duration time.Duration         `json:"duration"`
}

// Pipeline wires the anonymization stages
type Pipeline struct {
	extractor *document.Extractor
	entities  *redact.EntityRedactor
	patterns  *redact.PatternRedactor
	renderer  *document.Renderer
	store     storage.Store
	logger    *zap.Logger
}

// Dependencies are the stages of a Pipeline. Store is optional.
type Dependencies struct {
	Extractor *document.Extractor
	Entities  *redact.EntityRedactor
	Patterns  *redact.PatternRedactor
	Renderer  *document.Renderer
	Store     storage.Store
}

// NewPipeline creates a pipeline from its stages
func NewPipeline(deps Dependencies, logger *zap.Logger) (*Pipeline, error) {
	if deps.Extractor == nil || deps.Entities == nil || deps.Patterns == nil || deps.Renderer == nil {
		return nil, fmt.Errorf("anonymizer requires an extractor, both redactors and a renderer")
	}
	return &Pipeline{
		extractor: deps.Extractor,
		entities:  deps.Entities,
		patterns:  deps.Patterns,
		renderer:  deps.Renderer,
		store:     deps.Store,
		logger:    logger,
	}, nil
}

// AnonymizeText masks each page, entities first and then patterns
func (p *Pipeline) AnonymizeText(ctx context.Context, pages []string) ([]PageResult, error) {
	results := make([]PageResult, len(pages))
	for i, text := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entityResult, err := p.entities.Redact(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		patternResult := p.patterns.Redact(entityResult.MaskedText)

		results[i] = PageResult{
			Number:   i + 1,
			Text:     patternResult.MaskedText,
			Findings: append(entityResult.Findings, patternResult.Findings...),
		}
	}
	return results, nil
}

// Anonymize reads a document from rs and writes the masked PDF to w. The
// output has exactly one page per input page.
func (p *Pipeline) Anonymize(ctx context.Context, rs io.ReadSeeker, format document.Format, w io.Writer) (*Report, error) {
	start := time.Now()

	doc, err := p.extractor.Extract(ctx, rs, format)
	if err != nil {
		return nil, err
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%w: %w", document.ErrInvalidDocument, document.ErrNoPages)
	}

	pages, err := p.AnonymizeText(ctx, doc.Texts())
	if err != nil {
		return nil, err
	}

	masked := make([]string, len(pages))
	for i, page := range pages {
		masked[i] = page.Text
	}

	var out bytes.Buffer
	stats, err := p.renderer.Render(ctx, masked, &out)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Format:   format,
		Pages:    len(pages),
		Findings: MergeFindings(pages),
		Render:   stats,
	}

	if p.store != nil {
		artifact, err := p.store.Save(ctx, bytes.NewReader(out.Bytes()))
		if err != nil {
			return nil, fmt.Errorf("storing artifact: %w", err)
		}
		report.Artifact = artifact
	}

	if _, err := w.Write(out.Bytes()); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	report.Duration = time.Since(start)

	fields := []zap.Field{
		zap.String("format", string(format)),
		zap.Int("pages", report.Pages),
		zap.Int("masked", totalCount(report.Findings)),
		zap.Duration("duration", report.Duration),
	}
	if report.Artifact != nil {
		fields = append(fields, zap.String("artifact", report.Artifact.Name))
	}
	p.logger.Info("Document anonymized", fields...)

	return report, nil
}

// AnonymizeFile anonymizes the document at in and writes the PDF to out,
// or to DefaultOutputName when out is empty.
func (p *Pipeline) AnonymizeFile(ctx context.Context, in, out string) (*Report, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", in, err)
	}
	rs := bytes.NewReader(data)
	format, err := document.Sniff(rs, in)
	if err != nil {
		return nil, err
	}

	if out == "" {
		out = DefaultOutputName
	}

	var buf bytes.Buffer
	report, err := p.Anonymize(ctx, rs, format, &buf)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", out, err)
	}
	return report, nil
}

// MergeFindings sums per-page findings by entity type. Positions are page
// relative and are dropped.
func MergeFindings(pages []PageResult) []redact.Finding {
	byType := make(map[string]*redact.Finding)
	for _, page := range pages {
		for _, f := range page.Findings {
			if merged, ok := byType[f.EntityType]; ok {
				merged.Count += f.Count
				continue
			}
			byType[f.EntityType] = &redact.Finding{EntityType: f.EntityType, Masked: f.Masked, Count: f.Count}
		}
	}

	merged := make([]redact.Finding, 0, len(byType))
	for _, f := range byType {
		merged = append(merged, *f)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].EntityType < merged[j].EntityType })
	return merged
}

func totalCount(findings []redact.Finding) int {
	n := 0
	for _, f := range findings {
		n += f.Count
	}
	return n
}
