package pricing

import (
	"math"
	"math/rand"
)

// MonteCarlo prices a European option by simulating terminal prices
// under geometric Brownian motion and returns a central-difference
// delta.
//
// The full sample vector is drawn once and reused for all three
// evaluations — base spot, spot+bump, spot−bump — so the delta estimate
// benefits from common random numbers: the simulation noise largely
// cancels in the difference. The generator is caller-supplied; seed it
// to make results deterministic, and never share one across concurrent
// valuations.
func MonteCarlo(t OptionTerms, runs int, bump float64, rng *rand.Rand) (price, delta float64) {
	samples := make([]float64, runs)
	for i := range samples {
		samples[i] = rng.NormFloat64()
	}

	price = averagePayoff(t, t.Spot, samples)
	up := averagePayoff(t, t.Spot+bump, samples)
	down := averagePayoff(t, t.Spot-bump, samples)
	delta = (up - down) / (2 * bump)
	return price, delta
}

// averagePayoff is the discounted mean intrinsic payoff over the sample
// vector at the given spot. Terminal price per sample:
//
//	S_T = spot · exp(r·T + σ·√T·z)
func averagePayoff(t OptionTerms, spot float64, samples []float64) float64 {
	drift := t.Drift * t.Time
	diffusion := t.Vol * math.Sqrt(t.Time)
	discount := math.Exp(-t.Drift * t.Time)

	var sum float64
	for _, z := range samples {
		terminal := spot * math.Exp(drift+diffusion*z)
		sum += payoff(terminal, t.Strike, t.Type)
	}
	return discount * sum / float64(len(samples))
}
