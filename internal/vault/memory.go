package vault

import "sync"

type memoryKey struct {
	service string
	account string
}

// MemoryStore is a process-local SecretStore. It backs tests and is the
// fallback when no durable store is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[memoryKey][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[memoryKey][]byte)}
}

func (m *MemoryStore) Set(service, account string, value []byte, _ Accessibility) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.entries[memoryKey{service, account}] = cp
	return nil
}

func (m *MemoryStore) Get(service, account string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[memoryKey{service, account}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *MemoryStore) Delete(service, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memoryKey{service, account})
	return nil
}
