package store

import (
	"context"
	"sync"

	"github.com/tradeval/valuation-engine/internal/marketdata"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]marketdata.Map
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]marketdata.Map)}
}

func (s *MemoryStore) SaveConfiguration(_ context.Context, m marketdata.Map) error {
	return s.save(KindConfiguration, m)
}

func (s *MemoryStore) Configuration(_ context.Context) (marketdata.Map, error) {
	return s.load(KindConfiguration)
}

func (s *MemoryStore) SaveMarketData(_ context.Context, m marketdata.Map) error {
	return s.save(KindMarketData, m)
}

func (s *MemoryStore) MarketData(_ context.Context) (marketdata.Map, error) {
	return s.load(KindMarketData)
}

func (s *MemoryStore) save(kind string, m marketdata.Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	s.snapshots[kind] = m.Clone()
	return nil
}

func (s *MemoryStore) load(kind string) (marketdata.Map, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.snapshots[kind]
	if !ok {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}
