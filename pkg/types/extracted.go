// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "encoding/json"

// ExtractionSource identifies where an extracted value came from.
type ExtractionSource string

const (
	SourceOCR     ExtractionSource = "ocr"
	SourcePattern ExtractionSource = "pattern"
	SourceLLM     ExtractionSource = "llm"
)

// Valid reports whether s is one of the three known origins.
func (s ExtractionSource) Valid() bool {
	switch s {
	case SourceOCR, SourcePattern, SourceLLM:
		return true
	}
	return false
}

// FieldFormat tags the shape an ExtractedField arrived in.
type FieldFormat int

const (
	// FormatLegacy is a bare scalar or array value.
	FormatLegacy FieldFormat = iota
	// FormatScored wraps the value with confidence and provenance.
	FormatScored
)

func (f FieldFormat) String() string {
	if f == FormatScored {
		return "scored"
	}
	return "legacy"
}

// Confidence bounds for scored extracted values.
const (
	MinExtractionConfidence = 0
	MaxExtractionConfidence = 100
)

// ExtractedField is one value produced by the extraction stage. Legacy
// fields carry only Value; scored fields also carry Confidence, Source and
// optionally RawText.
type ExtractedField struct {
	Format FieldFormat

	// Value is a scalar (string, float64, bool) or []any for legacy arrays.
	Value any

	// Confidence is an integer in [0,100]. Zero for legacy fields.
	Confidence int

	Source  ExtractionSource
	RawText *string
}

// LegacyField wraps a bare value.
func LegacyField(v any) ExtractedField {
	return ExtractedField{Format: FormatLegacy, Value: v}
}

// ScoredField wraps a value with confidence and provenance. Confidence is
// clamped into [0,100].
func ScoredField(v any, confidence int, source ExtractionSource, rawText *string) ExtractedField {
	if confidence < MinExtractionConfidence {
		confidence = MinExtractionConfidence
	}
	if confidence > MaxExtractionConfidence {
		confidence = MaxExtractionConfidence
	}
	return ExtractedField{
		Format:     FormatScored,
		Value:      v,
		Confidence: confidence,
		Source:     source,
		RawText:    rawText,
	}
}

// IsScored reports whether f is a well-formed scored field.
func (f ExtractedField) IsScored() bool {
	return f.Format == FormatScored && f.Source.Valid()
}

type scoredWire struct {
	Value      any              `json:"value"`
	Confidence int              `json:"confidence"`
	Source     ExtractionSource `json:"source"`
	RawText    *string          `json:"rawText,omitempty"`
}

// MarshalJSON writes legacy fields as their bare value and scored fields as
// the {value, confidence, source, rawText} wrapper.
func (f ExtractedField) MarshalJSON() ([]byte, error) {
	if f.Format != FormatScored {
		return json.Marshal(f.Value)
	}
	return json.Marshal(scoredWire{
		Value:      f.Value,
		Confidence: f.Confidence,
		Source:     f.Source,
		RawText:    f.RawText,
	})
}

// ExtractedFieldSet maps field names to extracted values. Sets are normally
// homogeneous in format, but consumers must tolerate mixed input.
type ExtractedFieldSet map[string]ExtractedField

// IsScored reports whether the set is non-empty and at least one member is
// a scored field. A single scored member classifies the whole set.
func (s ExtractedFieldSet) IsScored() bool {
	for _, f := range s {
		if f.IsScored() {
			return true
		}
	}
	return false
}
