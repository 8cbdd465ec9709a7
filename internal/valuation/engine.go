// Package valuation dispatches trades to their pricing models and
// attaches results.
//
// The engine is a stateless pure transform: it borrows read-only access
// to a trade, a configuration snapshot, and a market-data snapshot, and
// returns a brand-new trade record with value (and delta, for options)
// populated in the resolved reporting currency. It never mutates its
// inputs and retains nothing between calls.
package valuation

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/tradeval/valuation-engine/internal/fx"
	"github.com/tradeval/valuation-engine/internal/marketdata"
	"github.com/tradeval/valuation-engine/internal/model"
	"github.com/tradeval/valuation-engine/internal/pricing"
)

// ErrUnknownTradeKind is returned for a Trade whose union tag matches
// neither variant. Unknown valuation methods, by contrast, are rejected
// at the edit boundary and cannot reach the dispatcher.
var ErrUnknownTradeKind = errors.New("valuation: unknown trade kind")

// Engine values trades. NewRand supplies a fresh generator per Monte
// Carlo valuation so concurrent valuations of different trades never
// share generator state.
type Engine struct {
	newRand func() *rand.Rand
}

// NewEngine creates an engine whose Monte Carlo valuations all derive
// from the given seed. Deterministic — intended for tests.
func NewEngine(seed int64) *Engine {
	return &Engine{newRand: func() *rand.Rand {
		return rand.New(rand.NewSource(seed))
	}}
}

// NewTimeSeededEngine creates an engine seeded from the wall clock on
// every valuation.
func NewTimeSeededEngine() *Engine {
	return &Engine{newRand: func() *rand.Rand {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}}
}

// Valuate prices one trade against the given snapshots and returns a
// replacement record with the result attached. Raw results are computed
// in trade-currency units, then divided by the resolved FX rate and
// tagged with the resolved currency.
func (e *Engine) Valuate(trade model.Trade, cfg, md marketdata.Map) (model.Trade, error) {
	switch trade.Kind {
	case model.KindPayment:
		return e.valuatePayment(trade, cfg, md), nil
	case model.KindEuropeanOption:
		return e.valuateOption(trade, cfg, md)
	}
	return model.Trade{}, fmt.Errorf("%w: %q", ErrUnknownTradeKind, trade.Kind)
}

func (e *Engine) valuatePayment(trade model.Trade, cfg, md marketdata.Map) model.Trade {
	p := trade.Payment
	res := fx.Resolve(p.Currency, md, cfg)

	out := trade.Clone()
	out.Payment.Value = &model.Money{
		Value:    pricing.PaymentValue(p.Principal, res.Rate),
		Currency: res.Currency,
	}
	return out
}

func (e *Engine) valuateOption(trade model.Trade, cfg, md marketdata.Map) (model.Trade, error) {
	o := trade.Option

	// Drift and volatility are stored as percentages; the models take
	// decimals.
	terms := pricing.OptionTerms{
		Spot:   o.Spot,
		Strike: o.Strike,
		Drift:  o.Drift / 100,
		Vol:    o.Volatility / 100,
		Time:   pricing.TimeToExpiry(o.Expiry),
		Type:   o.OptionType,
	}

	var value, delta float64
	switch o.Method {
	case model.MethodAnalytical:
		value, delta = pricing.BlackScholes(terms)

	case model.MethodMonteCarlo:
		runs, err := md.Int(marketdata.KeyMonteCarloRuns)
		if err != nil {
			return model.Trade{}, fmt.Errorf("valuation: trade %s: %w", o.ID, err)
		}
		if runs <= 0 {
			return model.Trade{}, fmt.Errorf("valuation: trade %s: %s must be positive, got %d",
				o.ID, marketdata.KeyMonteCarloRuns, runs)
		}
		bump, err := md.Float(marketdata.KeyBumpSize)
		if err != nil {
			return model.Trade{}, fmt.Errorf("valuation: trade %s: %w", o.ID, err)
		}
		value, delta = pricing.MonteCarlo(terms, runs, bump, e.newRand())

	case model.MethodBinomial:
		steps, err := binomialSteps(md)
		if err != nil {
			return model.Trade{}, fmt.Errorf("valuation: trade %s: %w", o.ID, err)
		}
		bump, err := md.Float(marketdata.KeyBumpSize)
		if err != nil {
			return model.Trade{}, fmt.Errorf("valuation: trade %s: %w", o.ID, err)
		}
		value, delta = pricing.Binomial(terms, steps, bump)

	default:
		// Unreachable for trades that came through the edit boundary.
		return model.Trade{}, fmt.Errorf("valuation: trade %s: unknown method %q", o.ID, o.Method)
	}

	res := fx.Resolve(o.Currency, md, cfg)
	rate := res.RateFloat()

	out := trade.Clone()
	out.Option.Value = &model.Money{Value: value / rate, Currency: res.Currency}
	out.Option.Delta = &model.Money{Value: delta / rate, Currency: res.Currency}
	return out, nil
}

// binomialSteps reads the lattice depth. Historically the binomial model
// shared monteCarlo::runs with the simulation's sample count; documents
// may now set binomial::steps to tune the two independently, and the old
// key remains the fallback.
func binomialSteps(md marketdata.Map) (int, error) {
	key := marketdata.KeyMonteCarloRuns
	if _, ok := md.Lookup(marketdata.KeyBinomialSteps); ok {
		key = marketdata.KeyBinomialSteps
	}
	steps, err := md.Int(key)
	if err != nil {
		return 0, err
	}
	if steps <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, steps)
	}
	return steps, nil
}

// Problem reports a single trade's valuation failure within a batch.
type Problem struct {
	TradeID string `json:"trade_id"`
	Message string `json:"message"`
}

// RecalculateAll revalues every trade in the collection independently
// and returns a new collection. Per-trade failures become Problems and
// leave that trade unchanged; they never abort the batch. An empty
// collection yields an empty collection and no problems.
func (e *Engine) RecalculateAll(trades map[string]model.Trade, cfg, md marketdata.Map) (map[string]model.Trade, []Problem) {
	out := make(map[string]model.Trade, len(trades))
	var problems []Problem

	for id, trade := range trades {
		updated, err := e.Valuate(trade, cfg, md)
		if err != nil {
			problems = append(problems, Problem{TradeID: id, Message: err.Error()})
			out[id] = trade.Clone()
			continue
		}
		out[id] = updated
	}
	return out, problems
}
