package valuation

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tradeval/valuation-engine/internal/marketdata"
	"github.com/tradeval/valuation-engine/internal/model"
)

// oneYearOut keeps the reference scenario's time to expiry close enough
// to 1.0 that textbook values hold within test tolerances.
func oneYearOut() time.Time {
	return time.Now().Add(365 * 24 * time.Hour)
}

func testOption(method model.ValuationMethod) model.Trade {
	return model.NewEuropeanOption(model.EuropeanOptionRecord{
		ID:         "opt-1",
		TradeName:  "atm call",
		Spot:       100,
		Strike:     100,
		Drift:      5,  // percent
		Volatility: 20, // percent
		Expiry:     oneYearOut(),
		Currency:   "USD",
		Method:     method,
		OptionType: model.OptionCall,
	})
}

func fullMarketData() marketdata.Map {
	return marketdata.Map{
		"monteCarlo::runs":      "20000",
		"methodology::bumpSize": "0.5",
	}
}

func TestValuate_AnalyticalOption(t *testing.T) {
	e := NewEngine(42)

	got, err := e.Valuate(testOption(model.MethodAnalytical), marketdata.Map{}, marketdata.Map{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := got.Option
	if o.Value == nil || o.Delta == nil {
		t.Fatal("expected value and delta to be populated")
	}
	if math.Abs(o.Value.Value-10.45) > 0.05 {
		t.Errorf("expected value ≈ 10.45, got %f", o.Value.Value)
	}
	if math.Abs(o.Delta.Value-0.637) > 0.01 {
		t.Errorf("expected delta ≈ 0.637, got %f", o.Delta.Value)
	}
	if o.Value.Currency != "USD" {
		t.Errorf("no FX configured: expected native USD, got %s", o.Value.Currency)
	}
}

func TestValuate_PercentScalingIsAppliedOnce(t *testing.T) {
	// Drift 5 and volatility 20 must reach the model as 0.05 and 0.20.
	// A double division would collapse the price toward intrinsic.
	e := NewEngine(42)

	got, err := e.Valuate(testOption(model.MethodAnalytical), marketdata.Map{}, marketdata.Map{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Option.Value.Value < 5 {
		t.Errorf("value %f suggests percent scaling applied more than once", got.Option.Value.Value)
	}
}

func TestValuate_CurrencyConversion(t *testing.T) {
	e := NewEngine(42)
	cfg := marketdata.Map{"FX::GBPUSD": "2"}
	md := marketdata.Map{"valuation::baseCurrency": "GBP"}

	got, err := e.Valuate(testOption(model.MethodAnalytical), cfg, md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := got.Option
	if o.Value.Currency != "GBP" || o.Delta.Currency != "GBP" {
		t.Errorf("expected GBP results, got %s/%s", o.Value.Currency, o.Delta.Currency)
	}
	// Raw ≈10.45 divided by rate 2.
	if math.Abs(o.Value.Value-5.22) > 0.05 {
		t.Errorf("expected converted value ≈ 5.22, got %f", o.Value.Value)
	}
}

func TestValuate_MonteCarloOption(t *testing.T) {
	e := NewEngine(42)

	got, err := e.Valuate(testOption(model.MethodMonteCarlo), marketdata.Map{}, fullMarketData())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Option.Value == nil {
		t.Fatal("expected value to be populated")
	}
	// Simulation estimate for the reference call lands near the closed
	// form (the simulation's drift convention carries a small premium).
	if got.Option.Value.Value < 8 || got.Option.Value.Value > 15 {
		t.Errorf("implausible Monte Carlo value %f", got.Option.Value.Value)
	}
}

func TestValuate_MonteCarloIsSeedDeterministic(t *testing.T) {
	trade := testOption(model.MethodMonteCarlo)
	md := fullMarketData()

	a, err := NewEngine(7).Valuate(trade, marketdata.Map{}, md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewEngine(7).Valuate(trade, marketdata.Map{}, md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Option.Value.Value != b.Option.Value.Value {
		t.Errorf("same seed must give identical values: %f vs %f",
			a.Option.Value.Value, b.Option.Value.Value)
	}
}

func TestValuate_MonteCarloMissingRuns(t *testing.T) {
	e := NewEngine(42)
	md := marketdata.Map{"methodology::bumpSize": "0.5"}

	_, err := e.Valuate(testOption(model.MethodMonteCarlo), marketdata.Map{}, md)
	if err == nil {
		t.Fatal("expected explicit error for missing monteCarlo::runs")
	}
	if !strings.Contains(err.Error(), "monteCarlo::runs") {
		t.Errorf("error should name the missing key: %v", err)
	}
}

func TestValuate_MonteCarloMissingBump(t *testing.T) {
	e := NewEngine(42)
	md := marketdata.Map{"monteCarlo::runs": "1000"}

	_, err := e.Valuate(testOption(model.MethodMonteCarlo), marketdata.Map{}, md)
	if err == nil {
		t.Fatal("expected explicit error for missing methodology::bumpSize")
	}
}

func TestValuate_MonteCarloNegativeRuns(t *testing.T) {
	e := NewEngine(42)
	md := marketdata.Map{
		"monteCarlo::runs":      "-1",
		"methodology::bumpSize": "0.5",
	}

	// Parseable but unusable: must surface as an error, never a panic.
	_, err := e.Valuate(testOption(model.MethodMonteCarlo), marketdata.Map{}, md)
	if err == nil {
		t.Fatal("expected explicit error for negative monteCarlo::runs")
	}
	if !strings.Contains(err.Error(), "monteCarlo::runs") {
		t.Errorf("error should name the offending key: %v", err)
	}
}

func TestValuate_BinomialNegativeSteps(t *testing.T) {
	e := NewEngine(42)
	md := marketdata.Map{
		"binomial::steps":       "-5",
		"methodology::bumpSize": "0.01",
	}

	_, err := e.Valuate(testOption(model.MethodBinomial), marketdata.Map{}, md)
	if err == nil {
		t.Fatal("expected explicit error for negative binomial::steps")
	}
	if !strings.Contains(err.Error(), "binomial::steps") {
		t.Errorf("error should name the offending key: %v", err)
	}
}

func TestRecalculateAll_NegativeRunsBecomeProblems(t *testing.T) {
	e := NewEngine(42)
	trades := map[string]model.Trade{
		"ok":     testOption(model.MethodAnalytical),
		"broken": testOption(model.MethodMonteCarlo),
	}
	md := marketdata.Map{
		"monteCarlo::runs":      "-1",
		"methodology::bumpSize": "0.5",
	}

	out, problems := e.RecalculateAll(trades, marketdata.Map{}, md)

	if len(out) != 2 {
		t.Fatalf("batch must keep every trade, got %d", len(out))
	}
	if out["ok"].Option.Value == nil {
		t.Error("healthy trade must still be valued")
	}
	if len(problems) != 1 || problems[0].TradeID != "broken" {
		t.Errorf("expected one problem for %q, got %v", "broken", problems)
	}
}

func TestValuate_BinomialOption(t *testing.T) {
	e := NewEngine(42)
	md := marketdata.Map{
		"monteCarlo::runs":      "500",
		"methodology::bumpSize": "0.01",
	}

	got, err := e.Valuate(testOption(model.MethodBinomial), marketdata.Map{}, md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// CRR at 500 steps sits tight against the closed form.
	if math.Abs(got.Option.Value.Value-10.45) > 0.1 {
		t.Errorf("expected ≈ 10.45, got %f", got.Option.Value.Value)
	}
}

func TestValuate_BinomialStepsOverride(t *testing.T) {
	e := NewEngine(42)
	// The legacy shared key is unusable; the dedicated key must win.
	md := marketdata.Map{
		"monteCarlo::runs":      "not-a-count",
		"binomial::steps":       "500",
		"methodology::bumpSize": "0.01",
	}

	got, err := e.Valuate(testOption(model.MethodBinomial), marketdata.Map{}, md)
	if err != nil {
		t.Fatalf("binomial::steps should take precedence, got %v", err)
	}
	if math.Abs(got.Option.Value.Value-10.45) > 0.1 {
		t.Errorf("expected ≈ 10.45, got %f", got.Option.Value.Value)
	}
}

func TestValuate_BinomialFallsBackToSharedKey(t *testing.T) {
	e := NewEngine(42)
	md := marketdata.Map{
		"monteCarlo::runs":      "500",
		"methodology::bumpSize": "0.01",
	}

	if _, err := e.Valuate(testOption(model.MethodBinomial), marketdata.Map{}, md); err != nil {
		t.Fatalf("expected fallback to monteCarlo::runs, got %v", err)
	}
}

func TestValuate_Payment(t *testing.T) {
	e := NewEngine(42)
	trade := model.NewPayment(model.PaymentRecord{
		ID:        "pay-1",
		TradeName: "coupon",
		Principal: 900,
		Expiry:    oneYearOut(),
		Currency:  "EUR",
	})
	cfg := marketdata.Map{"FX::USDEUR": "0.9"}
	md := marketdata.Map{"valuation::baseCurrency": "USD"}

	got, err := e.Valuate(trade, cfg, md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := got.Payment
	if p.Value == nil {
		t.Fatal("expected value to be populated")
	}
	if math.Abs(p.Value.Value-1000) > 1e-9 {
		t.Errorf("expected 900/0.9 = 1000, got %f", p.Value.Value)
	}
	if p.Value.Currency != "USD" {
		t.Errorf("expected USD, got %s", p.Value.Currency)
	}
}

func TestValuate_DoesNotMutateInput(t *testing.T) {
	e := NewEngine(42)
	trade := testOption(model.MethodAnalytical)

	if _, err := e.Valuate(trade, marketdata.Map{}, marketdata.Map{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade.Option.Value != nil || trade.Option.Delta != nil {
		t.Error("input trade must stay untouched; valuation returns a replacement")
	}
}

func TestValuate_RevaluationReplaces(t *testing.T) {
	e := NewEngine(42)

	first, err := e.Valuate(testOption(model.MethodAnalytical), marketdata.Map{}, marketdata.Map{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := marketdata.Map{"FX::GBPUSD": "2"}
	md := marketdata.Map{"valuation::baseCurrency": "GBP"}
	second, err := e.Valuate(first, cfg, md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.Option.Value.Currency != "GBP" {
		t.Error("re-valuation must replace the previous result, not merge")
	}
	if first.Option.Value.Currency != "USD" {
		t.Error("earlier record must be unaffected by re-valuation")
	}
}

func TestValuate_UnknownKind(t *testing.T) {
	e := NewEngine(42)
	if _, err := e.Valuate(model.Trade{Kind: "Swap"}, marketdata.Map{}, marketdata.Map{}); err == nil {
		t.Fatal("expected error for unknown trade kind")
	}
}

func TestRecalculateAll_Empty(t *testing.T) {
	e := NewEngine(42)

	out, problems := e.RecalculateAll(map[string]model.Trade{}, marketdata.Map{}, marketdata.Map{})
	if len(out) != 0 {
		t.Errorf("expected empty collection, got %d trades", len(out))
	}
	if len(problems) != 0 {
		t.Errorf("expected no problems, got %v", problems)
	}
}

func TestRecalculateAll_ProblemsDoNotAbortBatch(t *testing.T) {
	e := NewEngine(42)
	trades := map[string]model.Trade{
		"ok":     testOption(model.MethodAnalytical),
		"broken": testOption(model.MethodMonteCarlo), // runs/bump absent
	}

	out, problems := e.RecalculateAll(trades, marketdata.Map{}, marketdata.Map{})

	if len(out) != 2 {
		t.Fatalf("batch must keep every trade, got %d", len(out))
	}
	if out["ok"].Option.Value == nil {
		t.Error("healthy trade must still be valued")
	}
	if out["broken"].Option.Value != nil {
		t.Error("failed trade must stay unvalued")
	}
	if len(problems) != 1 || problems[0].TradeID != "broken" {
		t.Errorf("expected one problem for %q, got %v", "broken", problems)
	}
}

func TestRecalculateAll_ReturnsNewCollection(t *testing.T) {
	e := NewEngine(42)
	trades := map[string]model.Trade{"a": testOption(model.MethodAnalytical)}

	out, _ := e.RecalculateAll(trades, marketdata.Map{}, marketdata.Map{})

	if trades["a"].Option.Value != nil {
		t.Error("input collection must not be mutated")
	}
	if out["a"].Option.Value == nil {
		t.Error("output collection must carry the new result")
	}
}
