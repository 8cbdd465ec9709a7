// Package marketdata handles the flat string-keyed configuration and
// market-data snapshots consumed read-only by the valuation engine.
//
// Both documents arrive as JSON of the shape
//
//	[{"category": "monteCarlo", "config": [{"key": "runs", "value": "1000"}]}]
//
// and are flattened to "<category>::<key>" entries. Values stay strings
// and are parsed on demand; a missing key is a legitimate state that
// callers handle through explicit fallback or an explicit error, never
// a silent default.
package marketdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Well-known keys.
const (
	KeyBaseCurrency   = "valuation::baseCurrency"
	KeyMonteCarloRuns = "monteCarlo::runs"
	KeyBinomialSteps  = "binomial::steps"
	KeyBumpSize       = "methodology::bumpSize"

	// FXPrefix prefixes FX rate keys: "FX::" + target + trade currency.
	// Concatenation order matters — target first, then trade.
	FXPrefix = "FX::"
)

// ErrKeyMissing is wrapped by the typed getters when a key is absent.
var ErrKeyMissing = errors.New("marketdata: key missing")

// Map is a flattened snapshot. Keys are namespaced "category::key".
type Map map[string]string

// document mirrors the external JSON shape.
type document []struct {
	Category string `json:"category"`
	Config   []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"config"`
}

// ParseDocument flattens a JSON configuration document into a Map.
func ParseDocument(data []byte) (Map, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("marketdata: parse document: %w", err)
	}

	m := make(Map)
	for _, cat := range doc {
		for _, entry := range cat.Config {
			m[cat.Category+"::"+entry.Key] = entry.Value
		}
	}
	return m, nil
}

// Lookup returns the raw string value for a key.
func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Float parses the value at key as a float64. Absence and parse
// failures are explicit errors.
func (m Map) Float(key string) (float64, error) {
	raw, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrKeyMissing, key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("marketdata: %s=%q is not a number", key, raw)
	}
	return v, nil
}

// Int parses the value at key as an int.
func (m Map) Int(key string) (int, error) {
	raw, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrKeyMissing, key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("marketdata: %s=%q is not an integer", key, raw)
	}
	return v, nil
}

// Clone returns an independent copy of the snapshot.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
