package sequence

import (
	"context"
	"sync"
)

// MemoryRepository keeps counters in process memory. Values do not survive a
// restart, so it only backs tests and throwaway local runs.
type MemoryRepository struct {
	mu       sync.Mutex
	counters map[Key]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{counters: map[Key]int64{}}
}

func (m *MemoryRepository) Increment(_ context.Context, key Key) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[key]++

	return m.counters[key], nil
}

func (m *MemoryRepository) Current(_ context.Context, key Key) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.counters[key], nil
}
