package store

import (
	"sync"

	"dossier/internal/domain"
)

// MemorySecureStorage is a process-local SecureStorage used by tests and the
// development coordinator. Contents are lost on exit.
type MemorySecureStorage struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemorySecureStorage returns an empty MemorySecureStorage.
func NewMemorySecureStorage() *MemorySecureStorage {
	return &MemorySecureStorage{records: make(map[string][]byte)}
}

func (s *MemorySecureStorage) Load(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemorySecureStorage) Save(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemorySecureStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

var _ domain.SecureStorage = (*MemorySecureStorage)(nil)
