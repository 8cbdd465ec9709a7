// Package fx resolves the FX rate and reporting currency for a trade.
//
// The reporting target comes from the market-data snapshot
// (valuation::baseCurrency); the rate comes from the configuration
// snapshot under "FX::<target><trade>". A missing rate degrades
// gracefully to rate 1 in the trade's native currency — this is a
// deliberate policy, not an error path.
//
// Rates are shopspring/decimal: they are exact money multipliers coming
// off string documents, with float64 conversion only at the option
// pricing edge where transcendental math takes over.
package fx

import (
	"github.com/shopspring/decimal"

	"github.com/tradeval/valuation-engine/internal/marketdata"
)

// Resolution is the outcome of currency resolution: the divisor applied
// to raw results and the currency the result is expressed in.
type Resolution struct {
	Rate     decimal.Decimal
	Currency string
}

// RateFloat returns the rate for float64 arithmetic.
func (r Resolution) RateFloat() float64 {
	return r.Rate.InexactFloat64()
}

// Resolve determines the FX rate and result currency for a trade.
//
// Target currency is valuation::baseCurrency from market data when
// present, else the trade currency (no conversion). The configuration is
// then consulted for "FX::" + target + trade; if found and parseable the
// rate applies and the result is expressed in the target currency,
// otherwise rate 1 and the trade's native currency. A zero rate is
// passed through unchecked.
func Resolve(tradeCurrency string, md, cfg marketdata.Map) Resolution {
	target := tradeCurrency
	if base, ok := md.Lookup(marketdata.KeyBaseCurrency); ok {
		target = base
	}

	raw, ok := cfg.Lookup(marketdata.FXPrefix + target + tradeCurrency)
	if !ok {
		return Resolution{Rate: decimal.NewFromInt(1), Currency: tradeCurrency}
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		// Unparseable rate degrades the same way as an absent one.
		return Resolution{Rate: decimal.NewFromInt(1), Currency: tradeCurrency}
	}
	return Resolution{Rate: rate, Currency: target}
}
