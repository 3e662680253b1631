package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSStore writes artifacts to a Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
	logger *zap.Logger
}

// NewGCSStore opens bucket using application default credentials, or
// credentialsFile when set
func NewGCSStore(ctx context.Context, bucket, prefix, credentialsFile string, logger *zap.Logger) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs storage requires a bucket")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	logger.Info("GCS artifact store initialized",
		zap.String("bucket", bucket),
		zap.String("prefix", prefix))

	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

func (s *GCSStore) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Save uploads r as a new object. The write fails if the object exists.
func (s *GCSStore) Save(ctx context.Context, r io.Reader) (*Artifact, error) {
	name := NewName()
	object := s.objectName(name)

	writer := s.bucket.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/pdf"

	size, err := io.Copy(writer, r)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return nil, fmt.Errorf("%w: %s", ErrExists, object)
		}
		return nil, fmt.Errorf("failed to finalize GCS write: %w", err)
	}

	s.logger.Debug("Artifact uploaded", zap.String("object", object), zap.Int64("size", size))

	return &Artifact{
		Name:      name,
		Location:  fmt.Sprintf("gs://%s/%s", s.name, object),
		Size:      size,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Open streams an object back
func (s *GCSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	reader, err := s.bucket.Object(s.objectName(name)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return reader, nil
}

// Close closes the storage client
func (s *GCSStore) Close() error {
	return s.client.Close()
}
