package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/maplify-tech/whiteboard/internal/domain/repository"
)

type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore wraps an existing client, usually from helpers.NewGCSClient.
func NewGCSStore(client *storage.Client, bucket string) (*GCSStore, error) {
	if client == nil || bucket == "" {
		return nil, errors.New("gcs client and bucket are required")
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, _ int64, r io.Reader) error {
	wc := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, key string) (*repository.Object, error) {
	rc, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return &repository.Object{Body: rc, ContentType: rc.Attrs.ContentType, Size: rc.Attrs.Size}, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// EnsureBucket only checks existence: creating a GCS bucket needs a project
// and is left to provisioning.
func (s *GCSStore) EnsureBucket(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %s: %w", s.bucket, err)
	}
	return nil
}

var _ repository.ObjectStore = (*GCSStore)(nil)
