package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// LocalStore writes artifacts into a directory
type LocalStore struct {
	dir    string
	owned  bool
	logger *zap.Logger
}

// NewLocalStore stores artifacts in dir. An empty dir uses a fresh temporary
// directory that is removed on Close.
func NewLocalStore(dir string, logger *zap.Logger) (*LocalStore, error) {
	owned := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "fairhire-artifacts-")
		if err != nil {
			return nil, fmt.Errorf("creating artifact directory: %w", err)
		}
		dir, owned = tmp, true
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}

	logger.Info("Local artifact store initialized",
		zap.String("dir", dir),
		zap.Bool("temporary", owned))

	return &LocalStore{dir: dir, owned: owned, logger: logger}, nil
}

// Dir returns the artifact directory
func (s *LocalStore) Dir() string { return s.dir }

// Save copies r into a new artifact. Readers never observe partial files.
func (s *LocalStore) Save(ctx context.Context, r io.Reader) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("writing artifact: %w", err)
	}

	name := NewName()
	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("publishing artifact: %w", err)
	}

	s.logger.Debug("Artifact saved", zap.String("name", name), zap.Int64("size", size))

	return &Artifact{Name: name, Location: path, Size: size, CreatedAt: time.Now().UTC()}, nil
}

// Open returns the artifact contents
func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("opening artifact: %w", err)
	}
	return f, nil
}

// Close removes the directory when the store created it
func (s *LocalStore) Close() error {
	if s.owned {
		return os.RemoveAll(s.dir)
	}
	return nil
}
