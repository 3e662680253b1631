package embeddings

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/raaihank/fairhire/internal/config"
	"go.uber.org/zap"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

// TestHashEmbeddingService tests the feature-hashing encoder
func TestHashEmbeddingService(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	service, err := NewHashEmbeddingService(EmbeddingDimensions, logger)
	if err != nil {
		t.Fatalf("Failed to create hash service: %v", err)
	}
	defer service.Close()

	embed := func(t *testing.T, text string) []float32 {
		t.Helper()
		res, err := service.GenerateEmbedding(ctx, text)
		if err != nil {
			t.Fatalf("GenerateEmbedding(%q) error = %v", text, err)
		}
		return res.Embedding
	}

	t.Run("Dimensions and norm", func(t *testing.T) {
		vec := embed(t, "Go developer with Kubernetes experience")
		if len(vec) != EmbeddingDimensions {
			t.Fatalf("len = %d, want %d", len(vec), EmbeddingDimensions)
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if math.Abs(norm-1) > 1e-5 {
			t.Errorf("norm = %f, want 1", norm)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		a := embed(t, "reactJS, development")
		b := embed(t, "reactJS, development")
		if !approx(service.ComputeSimilarity(a, b), 1) {
			t.Error("same text should give identical embeddings")
		}
	})

	t.Run("Order invariant", func(t *testing.T) {
		a := embed(t, "python, javascript")
		b := embed(t, "javascript, python")
		if sim := service.ComputeSimilarity(a, b); !approx(sim, 1) {
			t.Errorf("similarity = %f, want 1", sim)
		}
		if service.ComputeSimilarity(a, b) != service.ComputeSimilarity(b, a) {
			t.Error("similarity should be symmetric")
		}
	})

	t.Run("Related text scores higher", func(t *testing.T) {
		skills := embed(t, "python, machine learning, pandas")
		related := embed(t, "We need a python engineer for machine learning pipelines")
		unrelated := embed(t, "Graphic designer skilled in typography and illustration")
		if service.ComputeSimilarity(skills, related) <= service.ComputeSimilarity(skills, unrelated) {
			t.Error("related description should score above unrelated one")
		}
	})

	t.Run("Empty text", func(t *testing.T) {
		_, err := service.GenerateEmbedding(ctx, "   ")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := service.GenerateEmbedding(cctx, "text"); !errors.Is(err, ErrTimeoutError) {
			t.Errorf("error = %v, want ErrTimeoutError", err)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		res, err := service.GenerateBatchEmbeddings(ctx, []string{"go", "", "rust"})
		if err != nil {
			t.Fatalf("GenerateBatchEmbeddings() error = %v", err)
		}
		if res.Successful != 2 || res.Failed != 1 || len(res.Errors) != 1 {
			t.Errorf("batch = %+v", res)
		}
		if res.Embeddings[1] != nil || res.Embeddings[2] == nil {
			t.Error("embeddings should stay aligned with inputs")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		stats := service.GetStats()
		if stats.ServiceType != "hash" || stats.TotalInferences == 0 {
			t.Errorf("stats = %+v", stats)
		}
	})
}

func TestNewHashEmbeddingServiceRejectsBadDims(t *testing.T) {
	if _, err := NewHashEmbeddingService(0, zap.NewNop()); !errors.Is(err, ErrConfigError) {
		t.Fatalf("error = %v, want ErrConfigError", err)
	}
}

func TestBagOfWords(t *testing.T) {
	got := bagOfWords("C++, C#, Node.js and the ReactJS.")
	want := []string{"c++", "c#", "node.js", "reactjs"}
	if len(got) != len(want) {
		t.Fatalf("bagOfWords() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); !approx(got, tt.want) {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestMeanPool(t *testing.T) {
	// batch 2, seq 3, dims 2
	hidden := []float32{
		1, 1, 3, 3, 100, 100,
		2, 4, 0, 0, 0, 0,
	}
	masks := [][]int32{{1, 1, 0}, {1, 0, 0}}

	got, err := MeanPool(hidden, masks, 3, 2)
	if err != nil {
		t.Fatalf("MeanPool() error = %v", err)
	}
	if !approx(got[0][0], 2) || !approx(got[0][1], 2) {
		t.Errorf("row 0 = %v, want [2 2] (padding ignored)", got[0])
	}
	if !approx(got[1][0], 2) || !approx(got[1][1], 4) {
		t.Errorf("row 1 = %v, want [2 4]", got[1])
	}

	if _, err := MeanPool(hidden[:5], masks, 3, 2); err == nil {
		t.Error("expected error for short hidden state")
	}
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func TestGeminiService(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	service, err := NewGeminiService(emb, 0, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	res, err := service.GenerateEmbedding(ctx, "abc")
	if err != nil {
		t.Fatalf("GenerateEmbedding() error = %v", err)
	}
	if res.Embedding[0] != 3 || res.ServiceType != "gemini" {
		t.Errorf("result = %+v", res)
	}

	batch, err := service.GenerateBatchEmbeddings(ctx, []string{"a", " ", "abcd"})
	if err != nil {
		t.Fatal(err)
	}
	if batch.Embeddings[0][0] != 1 || batch.Embeddings[1] != nil || batch.Embeddings[2][0] != 4 {
		t.Errorf("batch embeddings misaligned: %v", batch.Embeddings)
	}

	emb.err = errors.New("503")
	if _, err := service.GenerateEmbedding(ctx, "abc"); !errors.Is(err, ErrNetworkError) {
		t.Errorf("error = %v, want ErrNetworkError", err)
	}

	if _, err := NewGeminiService(nil, 0, zap.NewNop()); !errors.Is(err, ErrConfigError) {
		t.Errorf("nil embedder error = %v", err)
	}
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]float32
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memoryCache) Set(ctx context.Context, key string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = embedding
	return nil
}

func TestCachedService(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	inner, _ := NewGeminiService(emb, 0, zap.NewNop())
	cache := &memoryCache{data: map[string][]float32{}}
	service := NewCachedService(inner, cache, zap.NewNop())

	first, err := service.GenerateEmbedding(ctx, "golang")
	if err != nil {
		t.Fatal(err)
	}
	second, err := service.GenerateEmbedding(ctx, "golang")
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit || !second.CacheHit {
		t.Errorf("cache hits = %v, %v; want false, true", first.CacheHit, second.CacheHit)
	}
	if emb.calls != 1 {
		t.Errorf("embedder called %d times, want 1", emb.calls)
	}

	batch, err := service.GenerateBatchEmbeddings(ctx, []string{"golang", "rust"})
	if err != nil {
		t.Fatal(err)
	}
	if batch.CacheHits != 1 || batch.Successful != 2 || batch.Embeddings[1][0] != 4 {
		t.Errorf("batch = %+v", batch)
	}
	if ratio := service.GetStats().CacheHitRatio; ratio != 0.5 {
		t.Errorf("CacheHitRatio = %f, want 0.5", ratio)
	}
}

func TestFactory(t *testing.T) {
	logger := zap.NewNop()
	factory := NewFactory(logger)
	cfg := config.GetDefaults().Embeddings

	t.Run("hash default", func(t *testing.T) {
		service, err := factory.CreateService(cfg, Dependencies{})
		if err != nil {
			t.Fatalf("CreateService() error = %v", err)
		}
		if service.Dimensions() != EmbeddingDimensions {
			t.Errorf("Dimensions() = %d", service.Dimensions())
		}
	})

	t.Run("cache wrapper", func(t *testing.T) {
		service, err := factory.CreateService(cfg, Dependencies{Cache: &memoryCache{data: map[string][]float32{}}})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := service.(*CachedService); !ok {
			t.Errorf("service = %T, want *CachedService", service)
		}
	})

	t.Run("gemini needs embedder", func(t *testing.T) {
		c := cfg
		c.Type = "gemini"
		if _, err := factory.CreateService(c, Dependencies{}); !errors.Is(err, ErrConfigError) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		c := cfg
		c.Type = "word2vec"
		if _, err := factory.CreateService(c, Dependencies{}); err == nil {
			t.Error("expected error")
		}
	})

	for _, st := range GetAllServiceTypes() {
		if GetServiceDescription(st) == "Unknown service type" {
			t.Errorf("missing description for %s", st)
		}
	}
}
