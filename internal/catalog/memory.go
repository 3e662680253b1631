package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryStore keeps jobs in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   []Job
	byKey  map[string]int
	nextID int64
	logger *zap.Logger
}

// NewMemoryStore creates an in-memory catalog holding seed
func NewMemoryStore(seed []Job, logger *zap.Logger) *MemoryStore {
	s := &MemoryStore{byKey: make(map[string]int), logger: logger}
	if len(seed) > 0 {
		if _, err := s.Upsert(context.Background(), seed); err != nil {
			logger.Warn("Skipping invalid seed jobs", zap.Error(err))
		}
	}
	return s
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// List returns a copy of all jobs
func (s *MemoryStore) List(ctx context.Context) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Job(nil), s.jobs...), nil
}

// Get finds a job by title, ignoring case
func (s *MemoryStore) Get(ctx context.Context, title string) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byKey[titleKey(title)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	job := s.jobs[i]
	return &job, nil
}

// Upsert inserts new titles and replaces the description of existing ones
func (s *MemoryStore) Upsert(ctx context.Context, jobs []Job) (*UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if err := validate(job); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result := &UpsertResult{}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, job := range jobs {
		key := titleKey(job.Title)
		if i, ok := s.byKey[key]; ok {
			s.jobs[i].Description = strings.TrimSpace(job.Description)
			s.jobs[i].UpdatedAt = now
			result.Updated++
			continue
		}
		s.nextID++
		s.jobs = append(s.jobs, Job{
			ID:          s.nextID,
			Title:       strings.TrimSpace(job.Title),
			Description: strings.TrimSpace(job.Description),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		s.byKey[key] = len(s.jobs) - 1
		result.Inserted++
	}
	result.Duration = time.Since(start)

	s.logger.Debug("Catalog upserted",
		zap.Int64("inserted", result.Inserted),
		zap.Int64("updated", result.Updated))

	return result, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error { return nil }

func validate(job Job) error {
	if strings.TrimSpace(job.Title) == "" {
		return fmt.Errorf("job title cannot be empty")
	}
	if strings.TrimSpace(job.Description) == "" {
		return fmt.Errorf("job %q has an empty description", job.Title)
	}
	return nil
}
