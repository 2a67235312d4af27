package storage

import (
	"context"
	"sync"
)

// MemoryBlobStore is an in-memory BlobStore for tests. Optional hooks let
// tests inject deterministic failures.
type MemoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// UploadErr/DeleteErr, when set, are returned by the corresponding
	// operation without mutating state.
	UploadErr error
	DeleteErr error
}

// NewMemoryBlobStore constructs an empty store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (s *MemoryBlobStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if s.UploadErr != nil {
		return s.UploadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := append([]byte(nil), data...)
	s.blobs[key] = copied
	return nil
}

func (s *MemoryBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryBlobStore) Delete(ctx context.Context, key string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}

// Len reports the number of stored blobs. Test helper.
func (s *MemoryBlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

var _ BlobStore = (*MemoryBlobStore)(nil)
