package store

import "sync"

// MemStore is an in-memory Store used in tests and for embedding the
// manager without durable state.
type MemStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{records: map[string][]byte{}}
}

func (s *MemStore) Get(name string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.records[name]
	if !ok {
		return nil, false, nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, true, nil
}

func (s *MemStore) Set(name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(value))
	copy(copied, value)
	s.records[name] = copied
	return nil
}

func (s *MemStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, name)
	return nil
}
