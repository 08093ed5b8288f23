package cache

import (
	"context"
	"sync"

	forecast "campus-pulse/internal/forecast/domain"
)

// MemoryStore keeps the last forecast snapshot in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot *forecast.Snapshot
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored snapshot.
func (m *MemoryStore) Load(_ context.Context) (*forecast.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return nil, nil
	}
	snapshot := *m.snapshot
	return &snapshot, nil
}

// Store overwrites the stored snapshot.
func (m *MemoryStore) Store(_ context.Context, snapshot forecast.Snapshot) error {
	m.mu.Lock()
	m.snapshot = &snapshot
	m.mu.Unlock()
	return nil
}
