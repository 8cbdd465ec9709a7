package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradeval/valuation-engine/internal/marketdata"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis
// read-through cache. Writes go to the primary store and refresh the
// cache; reads check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) SaveConfiguration(ctx context.Context, m marketdata.Map) error {
	if err := s.primary.SaveConfiguration(ctx, m); err != nil {
		return err
	}
	s.cache(ctx, KindConfiguration, m)
	return nil
}

func (s *CachedStore) Configuration(ctx context.Context) (marketdata.Map, error) {
	return s.loadThrough(ctx, KindConfiguration, s.primary.Configuration)
}

func (s *CachedStore) SaveMarketData(ctx context.Context, m marketdata.Map) error {
	if err := s.primary.SaveMarketData(ctx, m); err != nil {
		return err
	}
	s.cache(ctx, KindMarketData, m)
	return nil
}

func (s *CachedStore) MarketData(ctx context.Context) (marketdata.Map, error) {
	return s.loadThrough(ctx, KindMarketData, s.primary.MarketData)
}

func (s *CachedStore) loadThrough(ctx context.Context, kind string, fallback func(context.Context) (marketdata.Map, error)) (marketdata.Map, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, snapshotKey(kind)).Bytes()
	if err == nil {
		var m marketdata.Map
		if json.Unmarshal(data, &m) == nil {
			return m, nil
		}
	}

	// Cache miss: read from primary.
	m, err := fallback(ctx)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, kind, m)
	return m, nil
}

func (s *CachedStore) cache(ctx context.Context, kind string, m marketdata.Map) {
	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, snapshotKey(kind), data, s.ttl)
	}
}

func snapshotKey(kind string) string { return "snapshot:" + kind }
