package kvstore

import "sync"

// MemoryStore keeps values in process memory. Used by tests and as a
// throwaway backend.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte

	// FailPut, when set, is returned by every Put.
	FailPut error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryStore) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut != nil {
		return m.FailPut
	}
	if err := validateKey(key); err != nil {
		return err
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	m.values[key] = buf
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
