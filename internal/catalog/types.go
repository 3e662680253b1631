// Package catalog stores the job descriptions candidates are scored against.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no job has the requested title
var ErrNotFound = errors.New("job not found")

// Job is one job description
type Job struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// UpsertResult reports the outcome of an Upsert
type UpsertResult struct {
	Inserted int64         `json:"inserted"`
	Updated  int64         `json:"updated"`
	Duration time.Duration `json:"duration"`
}

// Store is a job catalog. List returns jobs in insertion order.
type Store interface {
	List(ctx context.Context) ([]Job, error)
	Get(ctx context.Context, title string) (*Job, error)
	Upsert(ctx context.Context, jobs []Job) (*UpsertResult, error)
	Close() error
}

// DefaultJobs returns the predefined job descriptions
func DefaultJobs() []Job {
	return []Job{
		{
			Title:       "Graphic Designer",
			Description: "Expert in visual communication and design principles, Proficient in Adobe Creative Suite, including Photoshop, Illustrator, and InDesign. Experience in creating branding and marketing materials.",
		},
		{
			Title:       "Mechanical Engineer",
			Description: "Specializes in the design, analysis, and manufacturing of mechanical systems. Proficient in CAD software and engineering analysis tools. Experience in product development and materials selection.",
		},
		{
			Title:       "Content Writer",
			Description: "Skilled in creating engaging and SEO-friendly content for various platforms. Proficient in research, copywriting, and editing. Experience in blog writing and social media management.",
		},
	}
}
