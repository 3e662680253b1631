// Package storage keeps anonymized documents under unique artifact names.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raaihank/fairhire/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when an artifact does not exist
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidName is returned for names that are not artifact names
	ErrInvalidName = errors.New("invalid artifact name")
	// ErrExists is returned when an artifact name is already taken
	ErrExists = errors.New("artifact already exists")
)

const artifactExt = ".pdf"

// Artifact describes a stored document
type Artifact struct {
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Store saves and serves artifacts
type Store interface {
	Save(ctx context.Context, r io.Reader) (*Artifact, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Close() error
}

// NewName returns a fresh artifact name
func NewName() string {
	return uuid.NewString() + artifactExt
}

// ValidateName accepts only names produced by NewName, so names taken from
// requests can never address other files.
func ValidateName(name string) error {
	id, ok := strings.CutSuffix(name, artifactExt)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// New opens the store selected by cfg.Type. It returns nil when storage is
// disabled.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "local":
		return NewLocalStore(cfg.Dir, logger)
	case "gcs":
		return NewGCSStore(ctx, cfg.Bucket, cfg.Prefix, cfg.CredentialsFile, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
