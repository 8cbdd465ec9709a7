package marketdata

import (
	"errors"
	"testing"
)

const sampleDocument = `[
	{"category": "valuation", "config": [
		{"key": "baseCurrency", "value": "USD"}
	]},
	{"category": "monteCarlo", "config": [
		{"key": "runs", "value": "1000"}
	]},
	{"category": "methodology", "config": [
		{"key": "bumpSize", "value": "0.5"}
	]},
	{"category": "FX", "config": [
		{"key": "USDEUR", "value": "0.9"},
		{"key": "USDPLN", "value": "4.1"}
	]}
]`

func TestParseDocument_Flattens(t *testing.T) {
	m, err := ParseDocument([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"valuation::baseCurrency": "USD",
		"monteCarlo::runs":        "1000",
		"methodology::bumpSize":   "0.5",
		"FX::USDEUR":              "0.9",
		"FX::USDPLN":              "4.1",
	}
	if len(m) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(m))
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("expected %s=%s, got %q", k, v, m[k])
		}
	}
}

func TestParseDocument_Invalid(t *testing.T) {
	if _, err := ParseDocument([]byte(`{"not": "a document"}`)); err == nil {
		t.Error("expected error for wrong document shape")
	}
}

func TestParseDocument_Empty(t *testing.T) {
	m, err := ParseDocument([]byte(`[]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected empty map, got %d keys", len(m))
	}
}

func TestFloat(t *testing.T) {
	m := Map{"methodology::bumpSize": "0.5"}

	v, err := m.Float("methodology::bumpSize")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.5 {
		t.Errorf("expected 0.5, got %f", v)
	}
}

func TestFloat_Missing(t *testing.T) {
	_, err := Map{}.Float("methodology::bumpSize")
	if !errors.Is(err, ErrKeyMissing) {
		t.Errorf("expected ErrKeyMissing, got %v", err)
	}
}

func TestFloat_NotANumber(t *testing.T) {
	m := Map{"methodology::bumpSize": "wide"}
	if _, err := m.Float("methodology::bumpSize"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestInt(t *testing.T) {
	m := Map{"monteCarlo::runs": "1000"}

	v, err := m.Int("monteCarlo::runs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1000 {
		t.Errorf("expected 1000, got %d", v)
	}
}

func TestInt_Missing(t *testing.T) {
	_, err := Map{}.Int("monteCarlo::runs")
	if !errors.Is(err, ErrKeyMissing) {
		t.Errorf("expected ErrKeyMissing, got %v", err)
	}
}

func TestInt_NotAnInteger(t *testing.T) {
	m := Map{"monteCarlo::runs": "12.5"}
	if _, err := m.Int("monteCarlo::runs"); err == nil {
		t.Error("expected error for non-integer value")
	}
}

func TestClone_Independent(t *testing.T) {
	m := Map{"a::b": "1"}
	c := m.Clone()
	c["a::b"] = "2"

	if m["a::b"] != "1" {
		t.Error("mutating a clone must not touch the original")
	}
}
