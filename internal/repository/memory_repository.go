package repository

import (
	"context"
	"sync"
)

// MemoryRepository keeps collections in process memory. Used by tests and
// the "memory" driver.
type MemoryRepository struct {
	mu          sync.RWMutex
	collections map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{collections: make(map[string][]byte)}
}

func (r *MemoryRepository) Load(_ context.Context, name string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.collections[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (r *MemoryRepository) Replace(_ context.Context, name string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[name] = append([]byte(nil), payload...)
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
