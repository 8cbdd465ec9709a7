// Package pricing implements the valuation models for the engine:
// closed-form Black-Scholes, Monte Carlo simulation with common random
// numbers, a recombining binomial lattice, and fixed cash-flow payments.
//
// The three option models share the same inputs and produce comparable
// (price, delta) outputs while differing completely in algorithm. All
// option math is float64: degenerate inputs (zero volatility, negative
// time to expiry, zero bump size) propagate as NaN or Inf by design and
// are never sanitized here. Exact money arithmetic (payment cash flows)
// uses shopspring/decimal instead.
package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradeval/valuation-engine/internal/model"
)

// OptionTerms are the economic inputs common to all three option models.
// Drift and Vol are decimals (already divided by 100), Time is in years.
type OptionTerms struct {
	Spot   float64
	Strike float64
	Drift  float64
	Vol    float64
	Time   float64
	Type   model.OptionType
}

// TimeToExpiry returns the year fraction from now to expiry using the
// ACT/365 day count, evaluated at call time. Two calls at different
// instants yield slightly different times — mark-as-of-now semantics.
// Expired trades produce a negative value; no model special-cases it.
func TimeToExpiry(expiry time.Time) float64 {
	return time.Until(expiry).Hours() / 24 / 365
}

// normCDF is the standard normal cumulative distribution function
// (mean 0, variance 1).
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// payoff is the intrinsic option payoff at a terminal price.
func payoff(terminal, strike float64, typ model.OptionType) float64 {
	if typ == model.OptionCall {
		return math.Max(terminal-strike, 0)
	}
	return math.Max(strike-terminal, 0)
}

// PaymentValue values a fixed cash flow: the principal converted by the
// resolved FX rate. Exact decimal arithmetic for the normal case —
// payments involve no transcendental math. A zero rate is unchecked
// policy-wise, but decimal cannot represent the resulting Inf, so that
// one case drops to float64 division and propagates like the option
// models do.
func PaymentValue(principal int64, rate decimal.Decimal) float64 {
	if rate.IsZero() {
		return float64(principal) / rate.InexactFloat64()
	}
	return decimal.NewFromInt(principal).Div(rate).InexactFloat64()
}
