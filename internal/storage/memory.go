package storage

import (
	"context"
	"sync"
)

// MemoryStore is a goroutine-safe in-memory Store. Used by tests and by
// sessions that opt out of durability.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]byte),
	}
}

func (s *MemoryStore) ReadCollection(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) WriteCollection(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.collections[name] = stored
	return nil
}
