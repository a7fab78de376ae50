package memory

import (
	"context"
	"sync"
)

// BlobStore is an in-process blob store for tests and the local profile
type BlobStore struct {
	mu      sync.RWMutex
	content map[string]string
}

// NewBlobStore creates an empty store
func NewBlobStore() *BlobStore {
	return &BlobStore{content: make(map[string]string)}
}

func (s *BlobStore) PutContent(_ context.Context, bucket, key, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[bucket+":"+key] = content
	return nil
}

func (s *BlobStore) GetContent(_ context.Context, bucket, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.content[bucket+":"+key]
	return c, ok, nil
}

// Len returns the number of stored entries
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.content)
}
