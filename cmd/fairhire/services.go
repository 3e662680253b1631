package main

import (
	"context"
	"strings"

	"github.com/raaihank/fairhire/internal/ai/gemini"
	"github.com/raaihank/fairhire/internal/anonymizer"
	"github.com/raaihank/fairhire/internal/cache"
	"github.com/raaihank/fairhire/internal/catalog"
	"github.com/raaihank/fairhire/internal/compat"
	"github.com/raaihank/fairhire/internal/config"
	"github.com/raaihank/fairhire/internal/document"
	"github.com/raaihank/fairhire/internal/embeddings"
	"github.com/raaihank/fairhire/internal/logger"
	"github.com/raaihank/fairhire/internal/ner"
	"github.com/raaihank/fairhire/internal/redact"
	"github.com/raaihank/fairhire/internal/secrets"
	"github.com/raaihank/fairhire/internal/storage"
	"go.uber.org/zap"
)

// services builds components on first use and closes them in reverse order
type services struct {
	cfg *config.Config
	log *logger.Logger

	gemini       *gemini.Client
	recognizer   ner.Recognizer
	embeddings   embeddings.EmbeddingService
	catalog      catalog.Store
	artifacts    storage.Store
	artifactsSet bool

	closers []func() error
}

func newServices(cfg *config.Config, log *logger.Logger) *services {
	return &services{cfg: cfg, log: log}
}

func (s *services) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Close releases everything that was opened
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Warn("Failed to close component", zap.Error(err))
		}
	}
	s.closers = nil
}

func (s *services) geminiClient(ctx context.Context) (*gemini.Client, error) {
	if s.gemini != nil {
		return s.gemini, nil
	}
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: s.cfg.Gemini.APIKey,
		File:  s.cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}
	client, err := gemini.NewClient(ctx, apiKey, s.cfg.Gemini.Model, s.cfg.Gemini.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	s.log.Info("Gemini client ready",
		zap.String("model", client.Model()),
		zap.String("embedding_model", client.EmbeddingModel()))
	s.gemini = client
	return client, nil
}

func (s *services) entityRecognizer(ctx context.Context) (ner.Recognizer, error) {
	if s.recognizer != nil {
		return s.recognizer, nil
	}
	var opts ner.Options
	if strings.EqualFold(s.cfg.NER.Type, "gemini") {
		client, err := s.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		opts.Generator = client
	}
	rec, err := ner.New(s.cfg.NER, opts, s.log.WithComponent("ner").Logger)
	if err != nil {
		return nil, err
	}
	s.onClose(rec.Close)
	s.recognizer = rec
	return rec, nil
}

func (s *services) artifactStore(ctx context.Context) (storage.Store, error) {
	if s.artifactsSet {
		return s.artifacts, nil
	}
	store, err := storage.New(ctx, s.cfg.Storage, s.log.WithComponent("storage").Logger)
	if err != nil {
		return nil, err
	}
	if store != nil {
		s.onClose(store.Close)
	}
	s.artifacts, s.artifactsSet = store, true
	return store, nil
}

// anonymizer wires extraction, both redactors, rendering and storage
func (s *services) anonymizer(ctx context.Context) (*anonymizer.Pipeline, error) {
	log := s.log.WithComponent("anonymizer").Logger

	rec, err := s.entityRecognizer(ctx)
	if err != nil {
		return nil, err
	}
	patterns, err := redact.NewPatternRedactor(s.cfg.Anonymizer.Detectors, log)
	if err != nil {
		return nil, err
	}
	renderer, err := document.NewRenderer(renderOptions(s.cfg.Anonymizer.Render), log)
	if err != nil {
		return nil, err
	}
	store, err := s.artifactStore(ctx)
	if err != nil {
		return nil, err
	}

	return anonymizer.NewPipeline(anonymizer.Dependencies{
		Extractor: document.NewExtractor(log),
		Entities:  redact.NewEntityRedactor(rec, s.cfg.Anonymizer.Labels, s.cfg.NER.MinScore, log),
		Patterns:  patterns,
		Renderer:  renderer,
		Store:     store,
	}, log)
}

// renderOptions fills unset render settings from the defaults
func renderOptions(rc config.RenderConfig) document.RenderOptions {
	opts := document.DefaultRenderOptions()
	if rc.Paper != "" {
		opts.Paper = rc.Paper
	}
	if rc.FontName != "" {
		opts.FontName = rc.FontName
	}
	if rc.FontSize > 0 {
		opts.FontSize = rc.FontSize
	}
	if rc.Left > 0 {
		opts.Left = rc.Left
	}
	if rc.Top > 0 {
		opts.Top = rc.Top
	}
	if rc.LineHeight > 0 {
		opts.LineHeight = rc.LineHeight
	}
	if rc.BottomMargin > 0 {
		opts.BottomMargin = rc.BottomMargin
	}
	return opts
}

// embeddingService creates the configured encoder, behind the redis cache
// when it is enabled
func (s *services) embeddingService(ctx context.Context) (embeddings.EmbeddingService, error) {
	if s.embeddings != nil {
		return s.embeddings, nil
	}
	log := s.log.WithComponent("embeddings").Logger

	var deps embeddings.Dependencies
	if strings.EqualFold(s.cfg.Embeddings.Type, string(embeddings.GeminiEmbedding)) {
		client, err := s.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		deps.Embedder = client
	}
	if s.cfg.Compatibility.Cache.Enabled {
		c, err := cache.NewEmbeddingCache(s.cfg.Compatibility.Cache, log)
		if err != nil {
			return nil, err
		}
		s.onClose(c.Close)
		deps.Cache = c
	}

	service, err := embeddings.NewFactory(log).CreateService(s.cfg.Embeddings, deps)
	if err != nil {
		return nil, err
	}
	s.onClose(service.Close)
	s.embeddings = service
	return service, nil
}

func (s *services) catalogStore(ctx context.Context) (catalog.Store, error) {
	if s.catalog != nil {
		return s.catalog, nil
	}
	store, err := catalog.New(ctx, s.cfg.Catalog, s.log.WithComponent("catalog").Logger)
	if err != nil {
		return nil, err
	}
	s.onClose(store.Close)
	s.catalog = store
	return store, nil
}

// scorers returns the single-description and the catalog scorer
func (s *services) scorers(ctx context.Context) (*compat.Scorer, *compat.CatalogScorer, error) {
	service, err := s.embeddingService(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := s.catalogStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	log := s.log.WithComponent("compat").Logger
	scorer := compat.NewScorer(service, log)
	return scorer, compat.NewCatalogScorer(scorer, store, s.cfg.Compatibility.CatalogConcurrency, log), nil
}
