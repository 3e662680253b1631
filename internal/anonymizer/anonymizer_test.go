package anonymizer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raaihank/fairhire/internal/config"
	"github.com/raaihank/fairhire/internal/document"
	"github.com/raaihank/fairhire/internal/ner"
	"github.com/raaihank/fairhire/internal/redact"
	"github.com/raaihank/fairhire/internal/storage"
	"go.uber.org/zap"
)

func newPipeline(t *testing.T, store storage.Store) *Pipeline {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.GetDefaults()

	patterns, err := redact.NewPatternRedactor(cfg.Anonymizer.Detectors, logger)
	if err != nil {
		t.Fatal(err)
	}
	renderer, err := document.NewRenderer(document.DefaultRenderOptions(), logger)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewPipeline(Dependencies{
		Extractor: document.NewExtractor(logger),
		Entities:  redact.NewEntityRedactor(ner.NewGazetteer(nil, nil, logger), cfg.Anonymizer.Labels, cfg.NER.MinScore, logger),
		Patterns:  patterns,
		Renderer:  renderer,
		Store:     store,
	}, logger)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func renderPDF(t *testing.T, pages []string) []byte {
	t.Helper()
	r, err := document.NewRenderer(document.DefaultRenderOptions(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := r.Render(context.Background(), pages, &buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAnonymizeText(t *testing.T) {
	p := newPipeline(t, nil)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "contact scenario",
			in:   "Contact me at jane.doe@example.com or 555-123-4567, I am 29 years old",
			want: "Contact me at [EMAIL] or [PHONE], I am [AGE] old",
		},
		{
			name: "names and places",
			in:   "Jane Doe\nBased in Berlin, Germany\n35 years of experience",
			want: "[NAME]\nBased in [ADDRESS], [ADDRESS]\n[AGE] of experience",
		},
		{
			name: "phone formats",
			in:   "Call 5551234567 or (555) 123-4567",
			want: "Call [PHONE] or [PHONE]",
		},
		{
			name: "nothing to mask",
			in:   "Skills: Go, Kubernetes, PostgreSQL",
			want: "Skills: Go, Kubernetes, PostgreSQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := p.AnonymizeText(context.Background(), []string{tt.in})
			if err != nil {
				t.Fatalf("AnonymizeText() error = %v", err)
			}
			if pages[0].Text != tt.want {
				t.Errorf("got %q, want %q", pages[0].Text, tt.want)
			}
		})
	}
}

func TestAnonymizeKeepsPageCount(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	p := newPipeline(t, store)

	input := renderPDF(t, []string{
		"Jane Doe\njane.doe@example.com\n555-123-4567",
		"Experience\nSenior engineer, 12 years",
		"",
	})

	var out bytes.Buffer
	report, err := p.Anonymize(ctx, bytes.NewReader(input), document.FormatPDF, &out)
	if err != nil {
		t.Fatalf("Anonymize() error = %v", err)
	}
	if report.Pages != 3 {
		t.Errorf("report.Pages = %d, want 3", report.Pages)
	}

	n, err := document.PageCount(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("output has %d pages, want 3", n)
	}

	doc, err := document.NewExtractor(zap.NewNop()).Extract(ctx, bytes.NewReader(out.Bytes()), document.FormatPDF)
	if err != nil {
		t.Fatal(err)
	}
	first := doc.Pages[0].Text
	for _, token := range []string{"[NAME]", "[EMAIL]", "[PHONE]"} {
		if !strings.Contains(first, token) {
			t.Errorf("page 1 missing %s: %q", token, first)
		}
	}
	if strings.Contains(first, "Jane") || strings.Contains(first, "example.com") {
		t.Errorf("page 1 leaks personal data: %q", first)
	}
	if !strings.Contains(doc.Pages[1].Text, "[AGE]") {
		t.Errorf("page 2 = %q", doc.Pages[1].Text)
	}

	if report.Artifact == nil {
		t.Fatal("expected a stored artifact")
	}
	stored, err := os.ReadFile(filepath.Join(store.Dir(), report.Artifact.Name))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stored, out.Bytes()) {
		t.Error("stored artifact differs from the streamed output")
	}
}

func TestAnonymizeFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "resume.pdf")
	out := filepath.Join(dir, "masked.pdf")
	if err := os.WriteFile(in, renderPDF(t, []string{"Mary Smith", "Paris"}), 0o600); err != nil {
		t.Fatal(err)
	}

	report, err := newPipeline(t, nil).AnonymizeFile(context.Background(), in, out)
	if err != nil {
		t.Fatalf("AnonymizeFile() error = %v", err)
	}
	if report.Artifact != nil {
		t.Error("no store configured, no artifact expected")
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := document.PageCount(bytes.NewReader(data)); n != 2 {
		t.Errorf("output has %d pages, want 2", n)
	}
}

func TestAnonymizeRejectsBadInput(t *testing.T) {
	p := newPipeline(t, nil)
	var out bytes.Buffer

	_, err := p.Anonymize(context.Background(), bytes.NewReader([]byte("%PDF-1.4 broken")), document.FormatPDF, &out)
	if !errors.Is(err, document.ErrInvalidDocument) {
		t.Errorf("error = %v, want ErrInvalidDocument", err)
	}
	_, err = p.Anonymize(context.Background(), bytes.NewReader([]byte("hello")), document.Format("txt"), &out)
	if !errors.Is(err, document.ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
	if out.Len() != 0 {
		t.Error("failed runs must not write output")
	}
}

func TestMergeFindings(t *testing.T) {
	pages := []PageResult{
		{Findings: []redact.Finding{{EntityType: "email", Masked: "[EMAIL]", Count: 1, Positions: []int{4}}}},
		{Findings: []redact.Finding{
			{EntityType: "PER", Masked: "[NAME]", Count: 2},
			{EntityType: "email", Masked: "[EMAIL]", Count: 2},
		}},
	}
	got := MergeFindings(pages)
	if len(got) != 2 {
		t.Fatalf("got %d findings", len(got))
	}
	if got[0].EntityType != "PER" || got[0].Count != 2 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].EntityType != "email" || got[1].Count != 3 || got[1].Positions != nil {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestNewPipelineRequiresStages(t *testing.T) {
	if _, err := NewPipeline(Dependencies{}, zap.NewNop()); err == nil {
		t.Fatal("expected error")
	}
}
