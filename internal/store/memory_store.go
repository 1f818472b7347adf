package store

import (
	"sync"

	"msgcrypt/internal/domain"
)

// MemoryStore is an in-memory SessionStore for tests and ephemeral use.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(id string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), blob...), true, nil
}

func (s *MemoryStore) Save(id string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = append([]byte(nil), blob...)
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
	return nil
}

// Compile-time assertion that MemoryStore implements domain.SessionStore.
var _ domain.SessionStore = (*MemoryStore)(nil)
