package ner

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/raaihank/fairhire/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spans(entities []Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Label+":"+e.Text)
	}
	return out
}

func TestGazetteerRecognize(t *testing.T) {
	g := NewGazetteer([]string{"Zorblax"}, []string{"Gotham"}, zap.NewNop())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"name with surname", "Jane Doe\nSoftware Engineer", []string{"PER:Jane Doe"}},
		{"place with region", "Lives in Austin, TX 78701", []string{"LOC:Austin, TX 78701"}},
		{"ambiguous word followed by surname", "Austin Miller, Designer", []string{"PER:Austin Miller"}},
		{"multi word place", "Moved to New York City last year", []string{"LOC:New York City"}},
		{"street address", "Office: 123 Main Street", []string{"LOC:123 Main Street"}},
		{"middle initial", "Maria J. Garcia", []string{"PER:Maria J. Garcia"}},
		{"stops at title words", "John Smith Senior Developer", []string{"PER:John Smith"}},
		{"all caps header", "JANE DOE", []string{"PER:JANE DOE"}},
		{"email local part ignored", "mail Jane.Doe@example.com", []string{}},
		{"extra entries", "Zorblax Quux moved to Gotham", []string{"PER:Zorblax Quux", "LOC:Gotham"}},
		{"contact line", "Contact me at jane.doe@example.com or 555-123-4567, I am 29 years old", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Recognize(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Recognize() error = %v", err)
			}
			if s := spans(got); !reflect.DeepEqual(s, tt.want) {
				t.Errorf("Recognize() = %v, want %v", s, tt.want)
			}
			for _, e := range got {
				if tt.text[e.Start:e.End] != e.Text {
					t.Errorf("offsets %d:%d do not match %q", e.Start, e.End, e.Text)
				}
			}
		})
	}
}

func TestGazetteerHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewGazetteer(nil, nil, zap.NewNop()).Recognize(ctx, "Jane Doe"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Recognize() error = %v, want context.Canceled", err)
	}
}

func TestGroupEntities(t *testing.T) {
	text := "Jonathon Doe lives in Paris"
	tags := []TokenTag{
		{Label: "B-PER", Score: 0.9, Start: 0, End: 3},
		{Label: "O", Score: 0.5, Start: 3, End: 8, Continuation: true},
		{Label: "I-PER", Score: 0.7, Start: 9, End: 12},
		{Label: "O", Score: 0.99, Start: 13, End: 18},
		{Label: "O", Score: 0.99, Start: 19, End: 21},
		{Label: "B-LOC", Score: 0.8, Start: 22, End: 27},
	}

	got := GroupEntities(text, tags)
	if !reflect.DeepEqual(spans(got), []string{"PER:Jonathon Doe", "LOC:Paris"}) {
		t.Fatalf("GroupEntities() = %v", spans(got))
	}
	if got[0].Score < 0.79 || got[0].Score > 0.81 {
		t.Errorf("PER score = %v, want mean of word scores 0.8", got[0].Score)
	}
}

func TestGroupEntitiesTagSchemes(t *testing.T) {
	text := "Ann Bo Rome"
	tags := []TokenTag{
		{Label: "S-PER", Start: 0, End: 3, Score: 1},
		{Label: "B-PER", Start: 4, End: 6, Score: 1},
		{Label: "LOC", Start: 7, End: 11, Score: 1},
	}
	want := []string{"PER:Ann", "PER:Bo", "LOC:Rome"}
	if got := spans(GroupEntities(text, tags)); !reflect.DeepEqual(got, want) {
		t.Errorf("GroupEntities() = %v, want %v", got, want)
	}
}

func TestArgmaxSoftmax(t *testing.T) {
	idx, p := argmaxSoftmax([]float32{0, 0, 0, 0})
	if idx != 0 || p != 0.25 {
		t.Errorf("uniform logits = (%d, %v)", idx, p)
	}
	idx, p = argmaxSoftmax([]float32{1, 9, 2})
	if idx != 1 || p < 0.99 {
		t.Errorf("peaked logits = (%d, %v)", idx, p)
	}
	if idx, _ := argmaxSoftmax(nil); idx != -1 {
		t.Errorf("empty logits index = %d", idx)
	}
}

func TestChunkLines(t *testing.T) {
	text := "one two\nthree\n\nfour five six\nseven"
	count := func(s string) int { return len(strings.Fields(s)) }

	chunks := chunkLines(text, count, 3)
	var got []string
	for _, c := range chunks {
		if text[c.offset:c.offset+len(c.text)] != c.text {
			t.Errorf("chunk offset %d does not match %q", c.offset, c.text)
		}
		got = append(got, c.text)
	}
	want := []string{"one two\nthree\n", "four five six", "seven"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("chunkLines() = %q, want %q", got, want)
	}

	if len(chunkLines("", count, 3)) != 0 {
		t.Error("empty text should give no chunks")
	}
}

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func TestGeminiRecognizerAnchorsOffsets(t *testing.T) {
	text := "Jane met Jane in Paris"
	gen := &fakeGenerator{response: `{"entities":[
		{"label":"PER","text":"Jane","start":9,"end":13},
		{"label":"person","text":"Jane","start":50,"end":54},
		{"label":"LOC","text":"Paris","start":0,"end":5,"score":0.7},
		{"label":"PER","text":"Bob","start":0,"end":3}
	]}`}

	r := NewGeminiRecognizer(gen, zap.NewNop())
	got, err := r.Recognize(context.Background(), text)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	want := []Entity{
		{Label: "PER", Text: "Jane", Start: 0, End: 4, Score: 0.9},
		{Label: "PER", Text: "Jane", Start: 9, End: 13, Score: 0.9},
		{Label: "LOC", Text: "Paris", Start: 17, End: 22, Score: 0.7},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Recognize() = %+v\nwant %+v", got, want)
	}
	if !strings.Contains(gen.prompts[0], text) {
		t.Error("prompt should carry the page text")
	}
}

func TestGeminiRecognizerRuneOffsets(t *testing.T) {
	text := "Zoë Doe"
	gen := &fakeGenerator{response: `{"entities":[{"label":"PER","text":"Doe","start":4,"end":7}]}`}
	got, err := NewGeminiRecognizer(gen, zap.NewNop()).Recognize(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Start != 5 || got[0].End != 8 {
		t.Errorf("Recognize() = %+v", got)
	}
}

func TestGeminiRecognizerErrors(t *testing.T) {
	r := NewGeminiRecognizer(&fakeGenerator{response: "not json"}, zap.NewNop())
	if _, err := r.Recognize(context.Background(), "Jane"); err == nil {
		t.Error("expected parse error")
	}

	boom := errors.New("quota")
	r = NewGeminiRecognizer(&fakeGenerator{err: boom}, zap.NewNop())
	if _, err := r.Recognize(context.Background(), "Jane"); !errors.Is(err, boom) {
		t.Errorf("Recognize() error = %v, want wrapped quota error", err)
	}

	got, err := r.Recognize(context.Background(), "   ")
	if err != nil || got != nil {
		t.Errorf("blank text = (%v, %v), want no call", got, err)
	}
}

func TestGeminiRecognizerDoesNotLogPageText(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	text := "Jane Doe, 12 Baker Street"
	gen := &fakeGenerator{response: `{"entities":[{"text":"Jane Doe", "start":0`}

	if _, err := NewGeminiRecognizer(gen, zap.New(core)).Recognize(context.Background(), text); err == nil {
		t.Fatal("expected parse error")
	}
	if logs.Len() == 0 {
		t.Fatal("expected debug logs")
	}
	for _, entry := range logs.All() {
		for key, value := range entry.ContextMap() {
			if s, ok := value.(string); ok && (strings.Contains(s, "Jane") || strings.Contains(s, "Baker")) {
				t.Errorf("%q logged page text in %s: %q", entry.Message, key, s)
			}
		}
	}
}

func TestBackendDescriptions(t *testing.T) {
	for _, name := range Backends() {
		if Description(name) == "Unknown recognizer type" {
			t.Errorf("no description for %s", name)
		}
	}
	if !IsHeuristic("gazetteer") || !IsHeuristic("") {
		t.Error("gazetteer should be heuristic")
	}
	if IsHeuristic("gemini") || IsHeuristic("onnx") {
		t.Error("model backends should not be heuristic")
	}
}

func TestFactory(t *testing.T) {
	cfg := config.GetDefaults().NER

	r, err := New(cfg, Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New(gazetteer) error = %v", err)
	}
	if r.Name() != "gazetteer" {
		t.Errorf("Name() = %q", r.Name())
	}

	cfg.Type = "gemini"
	if _, err := New(cfg, Options{}, zap.NewNop()); err == nil {
		t.Error("gemini without a generator should fail")
	}
	r, err = New(cfg, Options{Generator: &fakeGenerator{}}, zap.NewNop())
	if err != nil || r.Name() != "gemini" {
		t.Errorf("New(gemini) = (%v, %v)", r, err)
	}

	cfg.Type = "spacy"
	if _, err := New(cfg, Options{}, zap.NewNop()); err == nil {
		t.Error("unknown type should fail")
	}
}
