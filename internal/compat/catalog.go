package compat

import (
	"context"
	"fmt"
	"time"

	"github.com/raaihank/fairhire/internal/catalog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JobScore is the score of one catalog job
type JobScore struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Score       Score  `json:"score"`
}

// CatalogScorer scores a skill list against every job of a catalog
type CatalogScorer struct {
	scorer      *Scorer
	store       catalog.Store
	concurrency int
	logger      *zap.Logger
}

// NewCatalogScorer creates a catalog scorer running at most concurrency
// scores at once
func NewCatalogScorer(scorer *Scorer, store catalog.Store, concurrency int, logger *zap.Logger) *CatalogScorer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &CatalogScorer{scorer: scorer, store: store, concurrency: concurrency, logger: logger}
}

// ScoreAll returns one score per job, in catalog order
func (c *CatalogScorer) ScoreAll(ctx context.Context, skills string) ([]JobScore, error) {
	jobs, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}

	start := time.Now()
	results := make([]JobScore, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			score, err := c.scorer.Score(gctx, job.Description, skills)
			if err != nil {
				return fmt.Errorf("scoring %q: %w", job.Title, err)
			}
			results[i] = JobScore{Title: job.Title, Description: job.Description, Score: *score}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("Catalog scored",
		zap.Int("jobs", len(results)),
		zap.Duration("duration", time.Since(start)))

	return results, nil
}

// ScoreJob scores skills against the job with the given title
func (c *CatalogScorer) ScoreJob(ctx context.Context, title, skills string) (*JobScore, error) {
	job, err := c.store.Get(ctx, title)
	if err != nil {
		return nil, err
	}
	score, err := c.scorer.Score(ctx, job.Description, skills)
	if err != nil {
		return nil, err
	}
	return &JobScore{Title: job.Title, Description: job.Description, Score: *score}, nil
}
