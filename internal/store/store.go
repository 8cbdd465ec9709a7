// Package store defines the persistence interface for configuration and
// market-data snapshots. Implementations include PostgreSQL (source of
// truth), Redis (read-through cache), and in-memory (for testing).
//
// Trades are deliberately not persisted — the trade collection is
// in-memory session state owned by the trading service.
package store

import (
	"context"
	"errors"

	"github.com/tradeval/valuation-engine/internal/marketdata"
)

// Snapshot kinds.
const (
	KindConfiguration = "configuration"
	KindMarketData    = "marketdata"
)

// ErrNotFound is returned when no snapshot of the requested kind exists.
var ErrNotFound = errors.New("store: snapshot not found")

// Store persists the latest configuration and market-data snapshots.
// Saving replaces the previous snapshot of the same kind wholesale.
type Store interface {
	// SaveConfiguration replaces the configuration snapshot.
	SaveConfiguration(ctx context.Context, m marketdata.Map) error

	// Configuration returns the latest configuration snapshot.
	Configuration(ctx context.Context) (marketdata.Map, error)

	// SaveMarketData replaces the market-data snapshot.
	SaveMarketData(ctx context.Context, m marketdata.Map) error

	// MarketData returns the latest market-data snapshot.
	MarketData(ctx context.Context) (marketdata.Map, error)
}
