// Package model defines the core domain types shared across the valuation
// engine: trades, monetary results, and the enums that drive pricing
// dispatch.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValuationMethod selects the pricing algorithm for a European option.
// Chosen per trade, not globally.
type ValuationMethod string

const (
	MethodAnalytical ValuationMethod = "Analytical"
	MethodMonteCarlo ValuationMethod = "MonteCarlo"
	MethodBinomial   ValuationMethod = "Binomial"
)

// ParseValuationMethod validates a method label. Unknown labels are
// rejected here, at the edit boundary; the dispatcher never sees them.
func ParseValuationMethod(s string) (ValuationMethod, error) {
	switch ValuationMethod(s) {
	case MethodAnalytical, MethodMonteCarlo, MethodBinomial:
		return ValuationMethod(s), nil
	}
	return "", fmt.Errorf("unknown valuation method %q", s)
}

// OptionType is the option payoff direction.
type OptionType string

const (
	OptionCall OptionType = "Call"
	OptionPut  OptionType = "Put"
)

// ParseOptionType validates an option type label.
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(s) {
	case OptionCall, OptionPut:
		return OptionType(s), nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// Money is an amount tagged with a free-form currency code. The amount is
// float64 because degenerate pricing inputs legitimately produce NaN or
// Inf, and those results must reach the caller unmasked.
type Money struct {
	Value    float64
	Currency string
}

// moneyJSON carries Value as a string so NaN and Inf survive JSON
// round-trips (encoding/json rejects them as numbers).
type moneyJSON struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Value:    strconv.FormatFloat(m.Value, 'g', -1, 64),
		Currency: m.Currency,
	})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(raw.Value, 64)
	if err != nil {
		return fmt.Errorf("money value %q: %w", raw.Value, err)
	}
	m.Value = v
	m.Currency = raw.Currency
	return nil
}

// IsFinite reports whether the amount is a usable number. Callers that
// care about validity check this downstream; the engine itself never does.
func (m Money) IsFinite() bool {
	return !math.IsNaN(m.Value) && !math.IsInf(m.Value, 0)
}

func (m Money) String() string {
	return strconv.FormatFloat(m.Value, 'f', 4, 64) + " " + m.Currency
}

// PaymentRecord is the immutable economic-terms snapshot of a fixed
// cash flow. Value is nil until first valuation; re-valuation replaces
// the whole record, never merges.
type PaymentRecord struct {
	ID        string    `json:"id"`
	TradeName string    `json:"trade_name"`
	Principal int64     `json:"principal"`
	Expiry    time.Time `json:"expiry"`
	Currency  string    `json:"currency"`
	Value     *Money    `json:"value,omitempty"`
}

// EuropeanOptionRecord is the immutable economic-terms snapshot of a
// European option. Drift and Volatility are stored as percentages
// (5 means 5%); pricing divides by 100. This scaling convention holds
// for edited values too.
type EuropeanOptionRecord struct {
	ID         string          `json:"id"`
	TradeName  string          `json:"trade_name"`
	Spot       float64         `json:"spot"`
	Strike     float64         `json:"strike"`
	Drift      float64         `json:"drift"`      // percent, stored *100
	Volatility float64         `json:"volatility"` // percent, stored *100
	Expiry     time.Time       `json:"expiry"`
	Currency   string          `json:"currency"`
	Method     ValuationMethod `json:"valuation_method"`
	OptionType OptionType      `json:"option_type"`
	Value      *Money          `json:"value,omitempty"`
	Delta      *Money          `json:"delta,omitempty"`
}

// Kind discriminates the Trade union.
type Kind string

const (
	KindPayment        Kind = "Payment"
	KindEuropeanOption Kind = "EuropeanOption"
)

// Trade is a closed tagged union over {Payment, EuropeanOption}.
// Exactly one of the two pointers is non-nil, matching Kind.
type Trade struct {
	Kind    Kind                  `json:"kind"`
	Payment *PaymentRecord        `json:"payment,omitempty"`
	Option  *EuropeanOptionRecord `json:"option,omitempty"`
}

// NewPayment wraps a payment record in the union.
func NewPayment(p PaymentRecord) Trade {
	return Trade{Kind: KindPayment, Payment: &p}
}

// NewEuropeanOption wraps an option record in the union.
func NewEuropeanOption(o EuropeanOptionRecord) Trade {
	return Trade{Kind: KindEuropeanOption, Option: &o}
}

// ID returns the trade's identifier regardless of variant.
func (t Trade) ID() string {
	switch t.Kind {
	case KindPayment:
		return t.Payment.ID
	case KindEuropeanOption:
		return t.Option.ID
	}
	return ""
}

// Name returns the trade's display name regardless of variant.
func (t Trade) Name() string {
	switch t.Kind {
	case KindPayment:
		return t.Payment.TradeName
	case KindEuropeanOption:
		return t.Option.TradeName
	}
	return ""
}

// Clone returns a deep copy. Records are immutable snapshots: every
// "update" produces a replacement, so mutation always happens on a clone.
func (t Trade) Clone() Trade {
	out := Trade{Kind: t.Kind}
	if t.Payment != nil {
		p := *t.Payment
		if p.Value != nil {
			v := *p.Value
			p.Value = &v
		}
		out.Payment = &p
	}
	if t.Option != nil {
		o := *t.Option
		if o.Value != nil {
			v := *o.Value
			o.Value = &v
		}
		if o.Delta != nil {
			d := *o.Delta
			o.Delta = &d
		}
		out.Option = &o
	}
	return out
}
