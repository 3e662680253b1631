package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

// Extractor reads per-page text out of PDF and DOCX files
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// pdfConfig returns a fresh pdfcpu configuration; pdfcpu keeps per-run state in it.
func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Pages returns a lazy sequence over the pages of rs. The sequence reads rs
// as it is consumed and cannot be restarted; extract again to re-read.
// An error ends the sequence.
func (e *Extractor) Pages(ctx context.Context, rs io.ReadSeeker, format Format) iter.Seq2[Page, error] {
	switch format {
	case FormatPDF:
		return e.pdfPages(ctx, rs)
	case FormatDOCX:
		return e.docxPages(ctx, rs)
	default:
		return func(yield func(Page, error) bool) {
			yield(Page{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format))
		}
	}
}

func (e *Extractor) pdfPages(ctx context.Context, rs io.ReadSeeker) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		pdfCtx, err := api.ReadContext(rs, pdfConfig())
		if err != nil {
			yield(Page{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err))
			return
		}
		if err := api.ValidateContext(pdfCtx); err != nil {
			yield(Page{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err))
			return
		}

		e.logger.Debug("PDF opened", zap.Int("page_count", pdfCtx.PageCount))

		fonts := make(fontCache)
		for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
			if err := ctx.Err(); err != nil {
				yield(Page{}, err)
				return
			}

			pageDict, _, inherited, err := pdfCtx.PageDict(pageNr, false)
			if err == nil && pageDict == nil {
				err = errors.New("page not found")
			}
			if err != nil {
				yield(Page{}, fmt.Errorf("%w: page %d: %w", ErrInvalidDocument, pageNr, err))
				return
			}
			data, err := pdfCtx.PageContent(pageDict, pageNr)
			if err != nil && !errors.Is(err, model.ErrNoContent) {
				yield(Page{}, fmt.Errorf("%w: page %d content: %w", ErrInvalidDocument, pageNr, err))
				return
			}

			res := newPDFResources(pdfCtx, inherited.Resources, fonts, e.logger)
			if !yield(Page{Number: pageNr, Text: extractText(data, res)}, nil) {
				return
			}
		}
	}
}

// Extract reads every page of rs into a Document.
func (e *Extractor) Extract(ctx context.Context, rs io.ReadSeeker, format Format) (*Document, error) {
	doc := &Document{Format: format}
	for page, err := range e.Pages(ctx, rs, format) {
		if err != nil {
			return nil, err
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

// PageCount returns the number of pages of a PDF.
func PageCount(rs io.ReadSeeker) (int, error) {
	n, err := api.PageCount(rs, pdfConfig())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return n, nil
}
