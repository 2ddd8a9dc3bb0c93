package kv

import (
	"context"
	"strings"
	"sync"
)

// MemoryDB map backed store, for tests and single run tools.
type MemoryDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{data: make(map[string][]byte)}
}

func NewMemoryInterchangeCache() *InterchangeCache {
	return newInterchangeCache(NewMemoryDB(), klauspostCodec)
}

func (m *MemoryDB) setBatch(_ context.Context, pairs []kvPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pair := range pairs {
		value := make([]byte, len(pair.value))
		copy(value, pair.value)
		m.data[string(pair.key)] = value
	}
	return nil
}

func (m *MemoryDB) get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[string(key)]
	if !ok {
		return nil, errKeyNotFound
	}
	return val, nil
}

func (m *MemoryDB) dropPrefix(prefix []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if strings.HasPrefix(key, string(prefix)) {
			delete(m.data, key)
		}
	}
	return nil
}
