package pricing

import (
	"math"
)

// Binomial prices a European option on a recombining binomial lattice
// and returns a finite-difference delta.
//
// Parameters per step: dt = T/steps, up factor u = exp(σ·√dt), down
// factor d = 1/u, risk-neutral probability p = (exp(r·dt) − d)/(u − d),
// per-step discount exp(−r·dt). Terminal payoffs are backward-inducted
// to time zero. Delta re-prices the whole tree at spot·(1±bump):
//
//	delta = (V(spot·(1+bump)) − V(spot·(1−bump))) / (2·bump·spot)
//
// Lattice work is O(steps²) — the dominant cost of this model.
func Binomial(t OptionTerms, steps int, bump float64) (price, delta float64) {
	price = treeValue(t, t.Spot, steps)
	up := treeValue(t, t.Spot*(1+bump), steps)
	down := treeValue(t, t.Spot*(1-bump), steps)
	delta = (up - down) / (2 * bump * t.Spot)
	return price, delta
}

// treeValue runs one full lattice evaluation at the given spot.
func treeValue(t OptionTerms, spot float64, steps int) float64 {
	dt := t.Time / float64(steps)
	u := math.Exp(t.Vol * math.Sqrt(dt))
	d := 1 / u
	p := (math.Exp(t.Drift*dt) - d) / (u - d)
	discount := math.Exp(-t.Drift * dt)

	// Terminal layer: spot · u^j · d^(steps−j) for j up-moves.
	values := make([]float64, steps+1)
	for j := 0; j <= steps; j++ {
		terminal := spot * math.Pow(u, float64(j)) * math.Pow(d, float64(steps-j))
		values[j] = payoff(terminal, t.Strike, t.Type)
	}

	// Backward induction to the root.
	for layer := steps - 1; layer >= 0; layer-- {
		for j := 0; j <= layer; j++ {
			values[j] = discount * (p*values[j+1] + (1-p)*values[j])
		}
	}
	return values[0]
}
