// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package confidence normalizes extracted field data between the legacy
// format (bare values) and the scored format (value, confidence, source and
// raw text).
//
// Untyped input from the extraction stage is inspected only here, by
// IsScoredField, IsScoredSet, FromRaw and DecodeJSON, and becomes a
// types.ExtractedFieldSet. Everything else operates on the typed set. No
// function in this package fails on malformed input; unexpected shapes
// degrade to legacy values.
package confidence

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/pdiddy/fieldmap/pkg/types"
)

const (
	// DefaultConfidence is assigned to legacy values that are wrapped into
	// scored format without an explicit confidence.
	DefaultConfidence = 0

	// DefaultSource is assigned to legacy values that are wrapped into
	// scored format without an explicit source.
	DefaultSource = types.SourcePattern

	// DefaultLowConfidenceThreshold is the cut-off used by
	// LowConfidenceFields when callers have no preference.
	DefaultLowConfidenceThreshold = 70
)

// IsScoredField reports whether x is a map carrying a value, a numeric
// confidence and one of the known sources.
func IsScoredField(x any) bool {
	m, ok := x.(map[string]any)
	if !ok {
		return false
	}
	if _, ok := m["value"]; !ok {
		return false
	}
	if _, ok := toNumber(m["confidence"]); !ok {
		return false
	}
	src, ok := m["source"].(string)
	return ok && types.ExtractionSource(src).Valid()
}

// IsScoredSet reports whether raw is non-empty and at least one of its
// entries is a scored field.
func IsScoredSet(raw map[string]any) bool {
	for _, v := range raw {
		if IsScoredField(v) {
			return true
		}
	}
	return false
}

// FromRaw converts decoded extraction output into a typed set. Entries that
// pass IsScoredField become scored fields with their confidence rounded and
// clamped into [0,100]; every other entry, including nil, is kept as a
// legacy value.
func FromRaw(raw map[string]any) types.ExtractedFieldSet {
	set := make(types.ExtractedFieldSet, len(raw))
	for name, v := range raw {
		if !IsScoredField(v) {
			set[name] = types.LegacyField(v)
			continue
		}
		m := v.(map[string]any)
		conf, _ := toNumber(m["confidence"])
		// Clamp before converting; out-of-range floats do not survive int().
		conf = math.Max(types.MinExtractionConfidence, math.Min(types.MaxExtractionConfidence, math.Round(conf)))
		var rawText *string
		if s, ok := m["rawText"].(string); ok {
			rawText = &s
		}
		set[name] = types.ScoredField(
			m["value"],
			int(conf),
			types.ExtractionSource(m["source"].(string)),
			rawText,
		)
	}
	return set
}

// DecodeJSON parses a JSON object in either format. Only syntactically
// invalid JSON or a non-object document is an error.
func DecodeJSON(data []byte) (types.ExtractedFieldSet, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding extracted fields: %w", err)
	}
	return FromRaw(raw), nil
}

// LegacyToScored wraps legacy values with the given confidence and source.
// Nil values are dropped and arrays collapse to their first element, which
// loses the remaining elements. RawText is set when the collapsed value is
// a string. Entries that are already scored are copied unchanged.
func LegacyToScored(set types.ExtractedFieldSet, defaultConfidence int, defaultSource types.ExtractionSource) types.ExtractedFieldSet {
	if !defaultSource.Valid() {
		defaultSource = DefaultSource
	}

	out := make(types.ExtractedFieldSet, len(set))
	for name, f := range set {
		if f.IsScored() {
			out[name] = f
			continue
		}
		v := collapse(f.Value)
		if v == nil {
			continue
		}
		var rawText *string
		if s, ok := v.(string); ok {
			rawText = &s
		}
		out[name] = types.ScoredField(v, defaultConfidence, defaultSource, rawText)
	}
	return out
}

// Flatten returns the bare value of every field.
//
// A legacy set has its arrays collapsed to their first element, and fields
// whose value is nil after collapsing are omitted, matching LegacyToScored.
// A scored set yields each scored entry's Value; members that are not
// scored-shaped are returned as they arrived.
func Flatten(set types.ExtractedFieldSet) map[string]any {
	out := make(map[string]any, len(set))
	if set.IsScored() {
		for name, f := range set {
			out[name] = f.Value
		}
		return out
	}
	for name, f := range set {
		v := collapse(f.Value)
		if v == nil {
			continue
		}
		out[name] = v
	}
	return out
}

// Normalize returns set unchanged when it is already in scored format and
// LegacyToScored(set, ...) otherwise.
func Normalize(set types.ExtractedFieldSet, defaultConfidence int, defaultSource types.ExtractionSource) types.ExtractedFieldSet {
	if set.IsScored() {
		return set
	}
	return LegacyToScored(set, defaultConfidence, defaultSource)
}

// AverageConfidence is the mean confidence of the scored entries, rounded
// to the nearest integer. It is 0 for an empty set or one with no scored
// entries.
func AverageConfidence(set types.ExtractedFieldSet) int {
	sum, n := 0, 0
	for _, f := range set {
		if f.IsScored() {
			sum += f.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}

// LowConfidenceFields returns, in name order, the scored entries whose
// confidence is below threshold.
func LowConfidenceFields(set types.ExtractedFieldSet, threshold int) []string {
	var names []string
	for name, f := range set {
		if f.IsScored() && f.Confidence < threshold {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// collapse returns the first element of a slice value, nil for an empty
// slice, and v itself otherwise.
func collapse(v any) any {
	switch arr := v.(type) {
	case []any:
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	case []string:
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return v
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
