package pricing

import (
	"math"

	"github.com/tradeval/valuation-engine/internal/model"
)

// BlackScholes prices a European option in closed form and returns the
// analytical delta. This is the reference method: given the same normal
// CDF it is reproducible bit-for-bit, with no randomness.
//
//	d1 = (ln(S/K) + (r + σ²/2)·T) / (σ·√T)
//	d2 = d1 - σ·√T
//
// Expired trades (negative T) flow through √T as NaN.
func BlackScholes(t OptionTerms) (price, delta float64) {
	sqrtT := math.Sqrt(t.Time)
	d1 := (math.Log(t.Spot/t.Strike) + (t.Drift+0.5*t.Vol*t.Vol)*t.Time) / (t.Vol * sqrtT)
	d2 := d1 - t.Vol*sqrtT
	discount := math.Exp(-t.Drift * t.Time)

	if t.Type == model.OptionCall {
		price = t.Spot*normCDF(d1) - t.Strike*discount*normCDF(d2)
		delta = normCDF(d1)
		return price, delta
	}

	price = t.Strike*discount*(1-normCDF(d2)) - t.Spot*(1-normCDF(d1))
	delta = normCDF(d1) - 1
	return price, delta
}
