package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/raaihank/fairhire/internal/config"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_descriptions (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps the catalog in PostgreSQL
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresStore connects to databaseURL and creates the schema if needed
func NewPostgresStore(ctx context.Context, databaseURL string, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	logger.Info("Job catalog initialized",
		zap.String("database_url", maskDatabaseURL(databaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return store, nil
}

func (s *PostgresStore) initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// List returns all jobs ordered by id
func (s *PostgresStore) List(ctx context.Context) ([]Job, error) {
	var jobs []Job
	query := `SELECT id, title, description, created_at, updated_at FROM job_descriptions ORDER BY id`
	if err := s.db.SelectContext(ctx, &jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Get finds a job by title, ignoring case
func (s *PostgresStore) Get(ctx context.Context, title string) (*Job, error) {
	var job Job
	query := `SELECT id, title, description, created_at, updated_at FROM job_descriptions WHERE lower(title) = lower($1)`
	err := s.db.GetContext(ctx, &job, query, strings.TrimSpace(title))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// Upsert writes jobs in one transaction, replacing descriptions of known titles
func (s *PostgresStore) Upsert(ctx context.Context, jobs []Job) (*UpsertResult, error) {
	for _, job := range jobs {
		if err := validate(job); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result := &UpsertResult{}
	if len(jobs) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// xmax is zero for freshly inserted rows.
	query := `
		INSERT INTO job_descriptions (title, description)
		VALUES ($1, $2)
		ON CONFLICT (title) DO UPDATE
		SET description = EXCLUDED.description, updated_at = NOW()
		RETURNING (xmax = 0) AS inserted`

	for _, job := range jobs {
		var inserted bool
		if err := tx.QueryRowxContext(ctx, query, strings.TrimSpace(job.Title), strings.TrimSpace(job.Description)).Scan(&inserted); err != nil {
			s.logger.Error("Failed to upsert job", zap.Error(err), zap.String("title", job.Title))
			return nil, fmt.Errorf("failed to upsert job %q: %w", job.Title, err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}
	result.Duration = time.Since(start)

	s.logger.Info("Catalog upserted",
		zap.Int64("inserted", result.Inserted),
		zap.Int64("updated", result.Updated),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks the password of a database URL for logging
func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userPart := url[:at]
	colon := strings.LastIndex(userPart, ":")
	if colon < 0 || colon < strings.Index(userPart, "//") {
		return url
	}
	return userPart[:colon+1] + "***" + url[at:]
}
