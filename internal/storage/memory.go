package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStorage keeps objects in process memory.
func NewMemoryStorage() Storage {
	return &memoryStorage{
		objects: map[string][]byte{},
	}
}

func (m *memoryStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", key), nil
}

func (m *memoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("failed to read object %s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *memoryStorage) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects = map[string][]byte{}
	return nil
}

func (m *memoryStorage) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
