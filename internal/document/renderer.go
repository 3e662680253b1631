package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// ErrNoPages is returned when asked to render an empty document
var ErrNoPages = errors.New("document has no pages")

// RenderOptions controls page geometry, in PDF points
type RenderOptions struct {
	Paper        string
	FontName     string
	FontSize     int
	Left         float64
	Top          float64
	LineHeight   float64
	BottomMargin float64
}

// DefaultRenderOptions matches a plain A4 page with Helvetica 11pt lines every 15pt.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Paper:        "A4",
		FontName:     "Helvetica",
		FontSize:     11,
		Left:         72,
		Top:          72,
		LineHeight:   15,
		BottomMargin: 36,
	}
}

// RenderStats summarizes a render
type RenderStats struct {
	Pages        int `json:"pages"`
	Lines        int `json:"lines"`
	ClippedLines int `json:"clipped_lines"`
}

// Renderer writes page text onto fresh PDF pages
type Renderer struct {
	opts   RenderOptions
	height float64
	logger *zap.Logger
}

// NewRenderer creates a renderer for the given geometry
func NewRenderer(opts RenderOptions, logger *zap.Logger) (*Renderer, error) {
	dim, ok := types.PaperSize[opts.Paper]
	if !ok {
		return nil, fmt.Errorf("unknown paper size %q", opts.Paper)
	}
	if opts.FontSize <= 0 || opts.LineHeight <= 0 {
		return nil, fmt.Errorf("font size and line height must be positive")
	}
	return &Renderer{opts: opts, height: dim.Height, logger: logger}, nil
}

// The create spec is pdfcpu's JSON page description.
type createSpec struct {
	Paper string                `json:"paper"`
	Pages map[string]createPage `json:"pages"`
}

type createPage struct {
	Content createContent `json:"content"`
}

type createContent struct {
	Text []createText `json:"text,omitempty"`
}

type createText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  createFont `json:"font"`
}

type createFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// layout places each line of each page. Line i sits Top+i*LineHeight below the
// top edge; lines past the bottom margin are dropped.
func (r *Renderer) layout(pages []string) (*createSpec, RenderStats) {
	spec := &createSpec{
		Paper: r.opts.Paper,
		Pages: make(map[string]createPage, len(pages)),
	}
	stats := RenderStats{Pages: len(pages)}
	limit := r.height - r.opts.BottomMargin

	for i, text := range pages {
		var content createContent
		for j, line := range strings.Split(text, "\n") {
			fromTop := r.opts.Top + float64(j)*r.opts.LineHeight
			if fromTop > limit {
				stats.ClippedLines++
				continue
			}
			line = printable(line)
			if strings.TrimSpace(line) == "" {
				continue
			}
			content.Text = append(content.Text, createText{
				Value: line,
				Pos:   [2]float64{r.opts.Left, r.height - fromTop},
				Font:  createFont{Name: r.opts.FontName, Size: r.opts.FontSize},
			})
			stats.Lines++
		}
		spec.Pages[strconv.Itoa(i+1)] = createPage{Content: content}
	}

	return spec, stats
}

// Render writes one output page per entry of pages to w.
func (r *Renderer) Render(ctx context.Context, pages []string, w io.Writer) (*RenderStats, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spec, stats := r.layout(pages)
	payload, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encoding page description: %w", err)
	}

	if err := api.Create(nil, bytes.NewReader(payload), w, pdfConfig()); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}

	if stats.ClippedLines > 0 {
		r.logger.Warn("Lines beyond the page bottom were not rendered",
			zap.Int("clipped_lines", stats.ClippedLines),
			zap.Int("pages", stats.Pages))
	}

	return &stats, nil
}

// printable replaces characters the standard fonts cannot show.
func printable(line string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r < 0x20:
			return -1
		}
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return '?'
		}
		return r
	}, line)
}
