// Package trading provides the HTTP handlers and state management for
// the trade collection: creating trades, applying validated edits,
// replacing configuration/market-data snapshots, and triggering
// recalculation passes.
//
// The trade collection is in-memory session state with copy-on-write
// semantics: handlers replace records wholesale, never mutate them. The
// valuation engine underneath is a stateless pure transform.
package trading

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradeval/valuation-engine/internal/marketdata"
	"github.com/tradeval/valuation-engine/internal/metrics"
	"github.com/tradeval/valuation-engine/internal/model"
	"github.com/tradeval/valuation-engine/internal/store"
	"github.com/tradeval/valuation-engine/internal/valuation"
)

// Service owns the trade collection and the current snapshots. Uses a
// mutex for serialized mutation (single-instance).
type Service struct {
	engine *valuation.Engine
	store  store.Store
	wsHub  *WSHub // optional WebSocket hub for result broadcasts

	mu     sync.Mutex
	trades map[string]model.Trade
	cfg    marketdata.Map
	md     marketdata.Map
}

// NewService creates a trading service with an empty trade collection
// and empty snapshots. Pass nil for hub if WebSocket broadcasting is
// not needed.
func NewService(engine *valuation.Engine, st store.Store, hub *WSHub) *Service {
	return &Service{
		engine: engine,
		store:  st,
		wsHub:  hub,
		trades: make(map[string]model.Trade),
		cfg:    make(marketdata.Map),
		md:     make(marketdata.Map),
	}
}

// LoadSnapshots restores the persisted configuration and market-data
// snapshots, if any. A missing snapshot is not an error.
func (s *Service) LoadSnapshots(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.store.Configuration(ctx)
	switch {
	case err == nil:
		s.cfg = cfg
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	md, err := s.store.MarketData(ctx)
	switch {
	case err == nil:
		s.md = md
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	return nil
}

// --- Request/Response types ---

// CreatePaymentRequest is the JSON body for POST /api/v1/trades/payment.
type CreatePaymentRequest struct {
	TradeName string `json:"trade_name"`
	Principal int64  `json:"principal"`
	Expiry    string `json:"expiry"` // 2006-01-02
	Currency  string `json:"currency"`
}

// CreateOptionRequest is the JSON body for POST /api/v1/trades/option.
// Drift and volatility are percentages (5 means 5%).
type CreateOptionRequest struct {
	TradeName  string  `json:"trade_name"`
	Spot       float64 `json:"spot"`
	Strike     float64 `json:"strike"`
	Drift      float64 `json:"drift"`
	Volatility float64 `json:"volatility"`
	Expiry     string  `json:"expiry"` // 2006-01-02
	Currency   string  `json:"currency"`
	Method     string  `json:"valuation_method"`
	OptionType string  `json:"option_type"`
}

// EditRequest is the JSON body for PATCH /api/v1/trades/{tradeID}.
// Edits apply in order; rejected edits become warnings and change
// nothing.
type EditRequest struct {
	Edits []Edit `json:"edits"`
}

// EditResponse returns the (possibly updated) trade and any warnings.
type EditResponse struct {
	Trade    model.Trade `json:"trade"`
	Warnings []Warning   `json:"warnings"`
}

// RecalculationResponse is the outcome of a recalculation pass.
type RecalculationResponse struct {
	Trades   []model.Trade       `json:"trades"`
	Problems []valuation.Problem `json:"problems"`
}

// --- HTTP Handlers ---

// ListTrades handles GET /api/v1/trades
func (s *Service) ListTrades(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	trades := s.sortedTradesLocked()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, trades)
}

// GetTrade handles GET /api/v1/trades/{tradeID}
func (s *Service) GetTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "tradeID")

	s.mu.Lock()
	trade, ok := s.trades[tradeID]
	s.mu.Unlock()

	if !ok {
		writeError(w, "trade not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// CreatePayment handles POST /api/v1/trades/payment
func (s *Service) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	expiry, err := time.Parse(expiryLayout, req.Expiry)
	if err != nil {
		writeError(w, "expiry must be a date ("+expiryLayout+")", http.StatusBadRequest)
		return
	}

	trade := model.NewPayment(model.PaymentRecord{
		ID:        uuid.New().String(),
		TradeName: req.TradeName,
		Principal: req.Principal,
		Expiry:    expiry,
		Currency:  req.Currency,
	})

	s.mu.Lock()
	s.trades[trade.ID()] = trade
	s.recalculateLocked()
	created := s.trades[trade.ID()]
	s.mu.Unlock()

	slog.Info("payment created", "id", trade.ID(), "name", req.TradeName,
		"principal", req.Principal, "currency", req.Currency)
	writeJSON(w, http.StatusCreated, created)
}

// CreateOption handles POST /api/v1/trades/option
func (s *Service) CreateOption(w http.ResponseWriter, r *http.Request) {
	var req CreateOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	expiry, err := time.Parse(expiryLayout, req.Expiry)
	if err != nil {
		writeError(w, "expiry must be a date ("+expiryLayout+")", http.StatusBadRequest)
		return
	}
	method, err := model.ParseValuationMethod(req.Method)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	optionType, err := model.ParseOptionType(req.OptionType)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	trade := model.NewEuropeanOption(model.EuropeanOptionRecord{
		ID:         uuid.New().String(),
		TradeName:  req.TradeName,
		Spot:       req.Spot,
		Strike:     req.Strike,
		Drift:      req.Drift,
		Volatility: req.Volatility,
		Expiry:     expiry,
		Currency:   req.Currency,
		Method:     method,
		OptionType: optionType,
	})

	s.mu.Lock()
	s.trades[trade.ID()] = trade
	s.recalculateLocked()
	created := s.trades[trade.ID()]
	s.mu.Unlock()

	slog.Info("option created", "id", trade.ID(), "name", req.TradeName,
		"method", string(method), "type", string(optionType))
	writeJSON(w, http.StatusCreated, created)
}

// EditTrade handles PATCH /api/v1/trades/{tradeID}
// Applies edits in order. Each invalid edit is a no-op that surfaces a
// warning; accepted edits trigger a recalculation pass.
func (s *Service) EditTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "tradeID")

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	trade, ok := s.trades[tradeID]
	if !ok {
		s.mu.Unlock()
		writeError(w, "trade not found", http.StatusNotFound)
		return
	}

	var warnings []Warning
	accepted := 0
	for _, e := range req.Edits {
		next, warning := applyEdit(trade, e)
		if warning != nil {
			warnings = append(warnings, *warning)
			continue
		}
		trade = next
		accepted++
	}

	if accepted > 0 {
		s.trades[tradeID] = trade
		s.recalculateLocked()
		trade = s.trades[tradeID]
	}
	s.mu.Unlock()

	if warnings == nil {
		warnings = []Warning{}
	}
	for _, warning := range warnings {
		slog.Warn("edit rejected", "trade_id", warning.TradeID,
			"trade_name", warning.TradeName, "field", warning.Field,
			"reason", warning.Message)
	}

	writeJSON(w, http.StatusOK, EditResponse{Trade: trade, Warnings: warnings})
}

// DeleteTrade handles DELETE /api/v1/trades/{tradeID}
func (s *Service) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "tradeID")

	s.mu.Lock()
	_, ok := s.trades[tradeID]
	delete(s.trades, tradeID)
	metrics.ActiveTrades.Set(float64(len(s.trades)))
	s.mu.Unlock()

	if !ok {
		writeError(w, "trade not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetConfiguration handles GET /api/v1/configuration
func (s *Service) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cfg := s.cfg.Clone()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, cfg)
}

// PutConfiguration handles PUT /api/v1/configuration
// Body is the external JSON document shape; it is flattened, persisted,
// and a recalculation pass runs against the new snapshot.
func (s *Service) PutConfiguration(w http.ResponseWriter, r *http.Request) {
	s.putSnapshot(w, r, store.KindConfiguration)
}

// GetMarketData handles GET /api/v1/marketdata
func (s *Service) GetMarketData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	md := s.md.Clone()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, md)
}

// PutMarketData handles PUT /api/v1/marketdata
func (s *Service) PutMarketData(w http.ResponseWriter, r *http.Request) {
	s.putSnapshot(w, r, store.KindMarketData)
}

func (s *Service) putSnapshot(w http.ResponseWriter, r *http.Request, kind string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, "failed to read body", http.StatusBadRequest)
		return
	}

	m, err := marketdata.ParseDocument(body)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var saveErr error
	if kind == store.KindConfiguration {
		saveErr = s.store.SaveConfiguration(ctx, m)
	} else {
		saveErr = s.store.SaveMarketData(ctx, m)
	}
	if saveErr != nil {
		writeError(w, "failed to persist snapshot", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	if kind == store.KindConfiguration {
		s.cfg = m
	} else {
		s.md = m
	}
	s.recalculateLocked()
	s.mu.Unlock()

	slog.Info("snapshot replaced", "kind", kind, "keys", len(m))
	writeJSON(w, http.StatusOK, m)
}

// Recalculate handles POST /api/v1/recalculate
// Explicitly re-runs valuation over every trade.
func (s *Service) Recalculate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	problems := s.recalculateLocked()
	trades := s.sortedTradesLocked()
	s.mu.Unlock()

	if problems == nil {
		problems = []valuation.Problem{}
	}
	writeJSON(w, http.StatusOK, RecalculationResponse{Trades: trades, Problems: problems})
}

// recalculateLocked re-runs the engine over the whole collection.
// Caller holds s.mu.
func (s *Service) recalculateLocked() []valuation.Problem {
	start := time.Now()
	updated, problems := s.engine.RecalculateAll(s.trades, s.cfg, s.md)
	s.trades = updated
	metrics.RecalculationDuration.Observe(time.Since(start).Seconds())
	metrics.ActiveTrades.Set(float64(len(s.trades)))

	for _, trade := range updated {
		switch trade.Kind {
		case model.KindPayment:
			metrics.ValuationsTotal.WithLabelValues(string(trade.Kind), "Payment").Inc()
		case model.KindEuropeanOption:
			metrics.ValuationsTotal.WithLabelValues(string(trade.Kind), string(trade.Option.Method)).Inc()
		}
		s.broadcastLocked(trade)
	}
	for _, p := range problems {
		metrics.ValuationProblems.Inc()
		slog.Warn("valuation problem", "trade_id", p.TradeID, "reason", p.Message)
	}
	return problems
}

// broadcastLocked pushes one trade's result to WebSocket clients.
func (s *Service) broadcastLocked(trade model.Trade) {
	if s.wsHub == nil {
		return
	}

	msg := WSMessage{
		Type:      "valuation_updated",
		TradeID:   trade.ID(),
		TradeName: trade.Name(),
		Kind:      string(trade.Kind),
	}
	switch trade.Kind {
	case model.KindPayment:
		if trade.Payment.Value != nil {
			msg.Value = trade.Payment.Value.String()
		}
	case model.KindEuropeanOption:
		if trade.Option.Value != nil {
			msg.Value = trade.Option.Value.String()
		}
		if trade.Option.Delta != nil {
			msg.Delta = trade.Option.Delta.String()
		}
	}
	s.wsHub.Broadcast(msg)
}

// sortedTradesLocked returns the collection ordered by name then ID for
// stable listings. Caller holds s.mu.
func (s *Service) sortedTradesLocked() []model.Trade {
	trades := make([]model.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		trades = append(trades, t)
	}
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Name() != trades[j].Name() {
			return trades[i].Name() < trades[j].Name()
		}
		return trades[i].ID() < trades[j].ID()
	})
	return trades
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
