package store

import (
	"fmt"
	"sync"
)

// Memory is a map-backed Backend. It satisfies the Backend contract without
// any durability; state is lost with the process. Intended for tests and for
// callers that want the cell and queue semantics without persistence.
type Memory struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]interface{})}
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *Memory) Set(key string, value interface{}) error {
	if key == "" {
		return fmt.Errorf("store key must not be empty")
	}
	normalized, err := Normalize(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	m.mu.Lock()
	m.values[key] = normalized
	m.mu.Unlock()
	return nil
}

// Has reports whether key is present.
func (m *Memory) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok
}

// Delete removes key from the backend.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
