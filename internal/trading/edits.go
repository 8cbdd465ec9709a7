package trading

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tradeval/valuation-engine/internal/metrics"
	"github.com/tradeval/valuation-engine/internal/model"
)

// expiryLayout is the accepted date format for expiry edits.
const expiryLayout = "2006-01-02"

// Edit is one requested field change.
type Edit struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Warning reports a rejected edit. The trade is left unchanged; the
// warning references the trade so the caller can surface it to the user.
type Warning struct {
	TradeID   string `json:"trade_id"`
	TradeName string `json:"trade_name"`
	Field     string `json:"field"`
	Message   string `json:"message"`
}

// applyEdit validates one edit against a trade and returns either the
// replacement trade or a warning. Every accepted edit produces a fresh
// record; a rejected edit is a no-op. Validation lives entirely here —
// the valuation dispatcher never sees an invalid enum label or a
// half-parsed number.
func applyEdit(trade model.Trade, e Edit) (model.Trade, *Warning) {
	reject := func(format string, args ...any) (model.Trade, *Warning) {
		metrics.EditRejections.WithLabelValues(e.Field).Inc()
		return trade, &Warning{
			TradeID:   trade.ID(),
			TradeName: trade.Name(),
			Field:     e.Field,
			Message:   fmt.Sprintf(format, args...),
		}
	}

	out := trade.Clone()

	switch e.Field {
	case "name":
		// Any string is a valid name.
		switch out.Kind {
		case model.KindPayment:
			out.Payment.TradeName = e.Value
		case model.KindEuropeanOption:
			out.Option.TradeName = e.Value
		}
		return out, nil

	case "currency":
		// Free-form currency code, both kinds.
		switch out.Kind {
		case model.KindPayment:
			out.Payment.Currency = e.Value
		case model.KindEuropeanOption:
			out.Option.Currency = e.Value
		}
		return out, nil

	case "expiry":
		expiry, err := time.Parse(expiryLayout, e.Value)
		if err != nil {
			return reject("%q is not a date (want %s)", e.Value, expiryLayout)
		}
		switch out.Kind {
		case model.KindPayment:
			out.Payment.Expiry = expiry
		case model.KindEuropeanOption:
			out.Option.Expiry = expiry
		}
		return out, nil

	case "principal":
		if out.Kind != model.KindPayment {
			return reject("principal applies to payments only")
		}
		principal, err := strconv.ParseInt(e.Value, 10, 64)
		if err != nil {
			return reject("%q is not an integer", e.Value)
		}
		out.Payment.Principal = principal
		return out, nil

	case "spot", "strike", "drift", "volatility":
		if out.Kind != model.KindEuropeanOption {
			return reject("%s applies to options only", e.Field)
		}
		v, err := strconv.ParseFloat(e.Value, 64)
		if err != nil {
			return reject("%q is not a number", e.Value)
		}
		switch e.Field {
		case "spot":
			out.Option.Spot = v
		case "strike":
			out.Option.Strike = v
		case "drift":
			out.Option.Drift = v // percent, same scaling as stored
		case "volatility":
			out.Option.Volatility = v // percent, same scaling as stored
		}
		return out, nil

	case "valuationMethod":
		if out.Kind != model.KindEuropeanOption {
			return reject("valuationMethod applies to options only")
		}
		method, err := model.ParseValuationMethod(e.Value)
		if err != nil {
			return reject("%v", err)
		}
		out.Option.Method = method
		return out, nil

	case "optionType":
		if out.Kind != model.KindEuropeanOption {
			return reject("optionType applies to options only")
		}
		typ, err := model.ParseOptionType(e.Value)
		if err != nil {
			return reject("%v", err)
		}
		out.Option.OptionType = typ
		return out, nil
	}

	return reject("unknown field %q", e.Field)
}
