package catalog

import (
	"context"
	"fmt"

	"github.com/raaihank/fairhire/internal/config"
	"github.com/raaihank/fairhire/internal/secrets"
	"go.uber.org/zap"
)

// New opens the catalog selected by cfg.Driver. With SeedDefaults the
// predefined jobs are upserted on open.
func New(ctx context.Context, cfg config.CatalogConfig, logger *zap.Logger) (Store, error) {
	var seed []Job
	if cfg.SeedDefaults {
		seed = DefaultJobs()
	}

	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(seed, logger), nil

	case "postgres":
		url, err := secrets.Load(secrets.Source{
			Name:  "catalog database url",
			Value: cfg.Database.URL,
			File:  cfg.Database.URLFile,
		})
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(ctx, url, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if len(seed) > 0 {
			if _, err := store.Upsert(ctx, seed); err != nil {
				store.Close()
				return nil, fmt.Errorf("seeding catalog: %w", err)
			}
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported catalog driver: %s", cfg.Driver)
	}
}
