package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/maplify-tech/whiteboard/internal/domain/repository"
)

type storedObject struct {
	data        []byte
	contentType string
}

type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string]storedObject
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string]storedObject)}
}

func (s *ObjectStore) Put(_ context.Context, key, contentType string, _ int64, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = storedObject{data: b, contentType: contentType}
	return nil
}

func (s *ObjectStore) Get(_ context.Context, key string) (*repository.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.Object{
		Body:        io.NopCloser(bytes.NewReader(o.data)),
		ContentType: o.contentType,
		Size:        int64(len(o.data)),
	}, nil
}

func (s *ObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *ObjectStore) EnsureBucket(context.Context) error { return nil }

// Keys lists stored keys.
func (s *ObjectStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}

var _ repository.ObjectStore = (*ObjectStore)(nil)
