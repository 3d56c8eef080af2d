package credentials

import (
	"sync"
	"time"
)

// MemoryStore is a process-local Store without expiry bookkeeping beyond
// immediate clears.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Set(name, value string, maxAge *time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" || (maxAge != nil && *maxAge <= 0) {
		delete(m.values, name)
		return
	}
	m.values[name] = value
}

func (m *MemoryStore) Get(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	return v, ok
}

func (m *MemoryStore) Clear(name string) {
	m.mu.Lock()
	delete(m.values, name)
	m.mu.Unlock()
}
