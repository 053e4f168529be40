package cache

import (
	"strings"
	"sync"
)

// MemoryStore keeps entries in process memory. Default backend.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (s *MemoryStore) Read(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return raw, nil
}

func (s *MemoryStore) Write(key string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(raw))
	copy(buf, raw)
	s.entries[key] = buf
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
