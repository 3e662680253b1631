package importer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raaihank/fairhire/internal/catalog"
	"github.com/raaihank/fairhire/internal/embeddings"
	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"
)

func newPipeline(t *testing.T, cfg Config) (*Pipeline, *catalog.MemoryStore) {
	t.Helper()
	store := catalog.NewMemoryStore(nil, zap.NewNop())
	return NewPipeline(store, nil, cfg, zap.NewNop()), store
}

func TestDetectFileFormat(t *testing.T) {
	tests := map[string]FileFormat{
		"jobs.csv":         FormatCSV,
		"jobs.PARQUET":     FormatParquet,
		"jobs.jsonl":       FormatJSON,
		"jobs.json":        FormatJSON,
		"jobs.ndjson":      FormatJSON,
		"jobs":             FormatCSV,
		"dir.parquet/jobs": FormatCSV,
	}
	for name, want := range tests {
		if got := DetectFileFormat(name); got != want {
			t.Errorf("DetectFileFormat(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestProcessCSV(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	p, store := newPipeline(t, cfg)

	input := "id,title,description\n" +
		"1,Data Analyst,\"SQL, dashboards and reporting\"\n" +
		"2,Backend Engineer,Go services and PostgreSQL\n" +
		"3,data analyst,duplicate title\n" +
		"4,,missing title\n" +
		"5,UX Researcher,Interviews and usability testing\n"

	result, err := p.Process(ctx, strings.NewReader(input), FormatCSV)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if result.TotalRecords != 5 {
		t.Errorf("TotalRecords = %d, want 5", result.TotalRecords)
	}
	if result.Inserted != 3 || result.Duplicates != 1 || result.Invalid != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.Batches != 2 {
		t.Errorf("Batches = %d, want 2", result.Batches)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "record 4") {
		t.Errorf("Errors = %v", result.Errors)
	}

	job, err := store.Get(ctx, "Data Analyst")
	if err != nil {
		t.Fatal(err)
	}
	if job.Description != "SQL, dashboards and reporting" {
		t.Errorf("first duplicate should win, got %q", job.Description)
	}
}

func TestProcessCSVRequiresColumns(t *testing.T) {
	p, _ := newPipeline(t, DefaultConfig())
	if _, err := p.Process(context.Background(), strings.NewReader("name,text\na,b\n"), FormatCSV); err == nil {
		t.Fatal("expected header error")
	}
}

func TestProcessJSON(t *testing.T) {
	ctx := context.Background()
	p, store := newPipeline(t, DefaultConfig())

	input := `{"title": "Content Writer", "description": "Blogs and SEO"}
{"title": "Illustrator", "description": "Editorial illustration"}
`
	result, err := p.Process(ctx, strings.NewReader(input), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 2 {
		t.Errorf("Inserted = %d", result.Inserted)
	}
	jobs, _ := store.List(ctx)
	if len(jobs) != 2 || jobs[1].Title != "Illustrator" {
		t.Errorf("jobs = %+v", jobs)
	}

	if _, err := p.Process(ctx, strings.NewReader("{not json"), FormatJSON); err == nil {
		t.Error("expected syntax error")
	}
}

func TestProcessFileParquet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.parquet")

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[Record](&buf)
	records := []Record{
		{Title: "Mechanical Engineer", Description: "CAD and product development"},
		{Title: "Graphic Designer", Description: "Branding, Photoshop, Illustrator"},
	}
	if _, err := w.Write(records); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	p, store := newPipeline(t, DefaultConfig())
	result, err := p.ProcessFile(ctx, path)
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	if result.Inserted != 2 {
		t.Errorf("result = %+v", result)
	}
	job, err := store.Get(ctx, "graphic designer")
	if err != nil {
		t.Fatal(err)
	}
	if job.Description != "Branding, Photoshop, Illustrator" {
		t.Errorf("description = %q", job.Description)
	}
}

func TestValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDescriptionLength = 10
	p, _ := newPipeline(t, cfg)

	tests := []struct {
		record Record
		want   string
	}{
		{Record{Title: "A", Description: "short"}, ""},
		{Record{Title: "A", Description: "far too long for the limit"}, "description too long"},
		{Record{Title: "", Description: "x"}, "empty title"},
		{Record{Title: "A", Description: ""}, "empty description"},
		{Record{Title: strings.Repeat("t", 201), Description: "x"}, "title too long"},
	}
	for _, tt := range tests {
		if got := p.validateRecord(tt.record); got != tt.want {
			t.Errorf("validateRecord(%+v) = %q, want %q", tt.record, got, tt.want)
		}
	}
}

func TestWarmEmbeddings(t *testing.T) {
	service, err := embeddings.NewHashEmbeddingService(16, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.WarmEmbeddings = true
	p := NewPipeline(catalog.NewMemoryStore(nil, zap.NewNop()), service, cfg, zap.NewNop())

	input := `{"title": "QA Engineer", "description": "Test automation"}`
	if _, err := p.Process(context.Background(), strings.NewReader(input), FormatJSON); err != nil {
		t.Fatal(err)
	}
	if service.GetStats().TotalInferences != 1 {
		t.Errorf("TotalInferences = %d, want 1", service.GetStats().TotalInferences)
	}
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _ := newPipeline(t, DefaultConfig())
	if _, err := p.Process(ctx, strings.NewReader("title,description\na,b\n"), FormatCSV); err == nil {
		t.Fatal("expected context error")
	}
}
