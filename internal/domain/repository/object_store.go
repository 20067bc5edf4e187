package repository

import (
	"context"
	"io"
)

// Object is a stored blob opened for reading. Callers close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStore is a flat key/value blob store. Get reports ErrNotFound for a
// missing key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, size int64, r io.Reader) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	// EnsureBucket makes sure the configured bucket exists.
	EnsureBucket(ctx context.Context) error
}
