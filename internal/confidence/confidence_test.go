// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package confidence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fieldmap/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestIsScoredField(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"well formed", map[string]any{"value": "x", "confidence": 80.0, "source": "ocr"}, true},
		{"int confidence", map[string]any{"value": nil, "confidence": 10, "source": "llm"}, true},
		{"unknown source", map[string]any{"value": "x", "confidence": 80.0, "source": "manual"}, false},
		{"missing value", map[string]any{"confidence": 80.0, "source": "ocr"}, false},
		{"string confidence", map[string]any{"value": "x", "confidence": "80", "source": "ocr"}, false},
		{"bare string", "x", false},
		{"nil", nil, false},
		{"array", []any{"a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsScoredField(tt.in))
		})
	}
}

func TestIsScoredSet(t *testing.T) {
	assert.False(t, IsScoredSet(nil))
	assert.False(t, IsScoredSet(map[string]any{}))
	assert.False(t, IsScoredSet(map[string]any{"a": "x", "b": 3.0}))
	assert.True(t, IsScoredSet(map[string]any{
		"a": "x",
		"b": map[string]any{"value": "y", "confidence": 50.0, "source": "pattern"},
	}))
}

func TestDecodeJSON(t *testing.T) {
	set, err := DecodeJSON([]byte(`{
		"name": {"value": "Jane", "confidence": 91.6, "source": "ocr", "rawText": "JANE"},
		"tags": ["a", "b"],
		"loud": {"value": 1, "confidence": 140, "source": "llm"},
		"empty": null
	}`))
	require.NoError(t, err)
	require.Len(t, set, 4)

	name := set["name"]
	assert.True(t, name.IsScored())
	assert.Equal(t, "Jane", name.Value)
	assert.Equal(t, 92, name.Confidence)
	assert.Equal(t, types.SourceOCR, name.Source)
	require.NotNil(t, name.RawText)
	assert.Equal(t, "JANE", *name.RawText)

	assert.Equal(t, types.FormatLegacy, set["tags"].Format)
	assert.Equal(t, 100, set["loud"].Confidence)
	assert.Nil(t, set["empty"].Value)

	huge, err := DecodeJSON([]byte(`{
		"high": {"value": "a", "confidence": 1e20, "source": "ocr"},
		"low": {"value": "b", "confidence": -1e20, "source": "ocr"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 100, huge["high"].Confidence)
	assert.Equal(t, 0, huge["low"].Confidence)

	_, err = DecodeJSON([]byte(`[1, 2]`))
	assert.Error(t, err)
	_, err = DecodeJSON([]byte(`{`))
	assert.Error(t, err)
}

func TestLegacyToScored(t *testing.T) {
	in := types.ExtractedFieldSet{
		"a": types.LegacyField(nil),
		"b": types.LegacyField("x"),
	}
	out := LegacyToScored(in, 55, types.SourceOCR)

	require.Len(t, out, 1)
	assert.NotContains(t, out, "a")
	b := out["b"]
	assert.Equal(t, "x", b.Value)
	assert.Equal(t, 55, b.Confidence)
	assert.Equal(t, types.SourceOCR, b.Source)
	require.NotNil(t, b.RawText)
	assert.Equal(t, "x", *b.RawText)
}

func TestLegacyToScoredCollapsesArrays(t *testing.T) {
	in := types.ExtractedFieldSet{
		"phones": types.LegacyField([]any{"555-0100", "555-0199"}),
		"counts": types.LegacyField([]any{3.0, 4.0}),
		"none":   types.LegacyField([]any{}),
	}
	out := LegacyToScored(in, DefaultConfidence, DefaultSource)

	require.Len(t, out, 2)
	assert.Equal(t, "555-0100", out["phones"].Value)
	assert.Equal(t, 3.0, out["counts"].Value)
	assert.Nil(t, out["counts"].RawText, "raw text is only set for strings")
	assert.Equal(t, types.SourcePattern, out["counts"].Source)
	assert.Equal(t, 0, out["counts"].Confidence)
}

func TestLegacyToScoredInvalidSourceFallsBack(t *testing.T) {
	out := LegacyToScored(types.ExtractedFieldSet{"a": types.LegacyField("x")}, 10, "manual")
	assert.Equal(t, types.SourcePattern, out["a"].Source)
}

func TestFlatten(t *testing.T) {
	t.Run("legacy passes through", func(t *testing.T) {
		got := Flatten(types.ExtractedFieldSet{
			"a": types.LegacyField("x"),
			"b": types.LegacyField([]any{"first", "second"}),
			"c": types.LegacyField(true),
		})
		assert.Equal(t, map[string]any{"a": "x", "b": "first", "c": true}, got)
	})

	t.Run("mixed format", func(t *testing.T) {
		got := Flatten(types.ExtractedFieldSet{
			"a": types.ScoredField("x", 90, types.SourceLLM, nil),
			"b": types.LegacyField("y"),
		})
		assert.Equal(t, map[string]any{"a": "x", "b": "y"}, got)
	})

	t.Run("scored set keeps unscored members as they arrived", func(t *testing.T) {
		got := Flatten(types.ExtractedFieldSet{
			"a":    types.ScoredField("x", 90, types.SourceLLM, nil),
			"tags": types.LegacyField([]any{"first", "second"}),
			"gone": types.LegacyField(nil),
		})
		assert.Equal(t, map[string]any{
			"a":    "x",
			"tags": []any{"first", "second"},
			"gone": nil,
		}, got)
	})
}

func TestFlattenRoundTrip(t *testing.T) {
	sets := []types.ExtractedFieldSet{
		{},
		{"a": types.LegacyField(nil)},
		{"a": types.LegacyField("x"), "b": types.LegacyField(nil)},
		{"n": types.LegacyField(12.5), "arr": types.LegacyField([]any{"p", "q"}), "t": types.LegacyField(false)},
	}
	for _, s := range sets {
		scored := Normalize(LegacyToScored(s, DefaultConfidence, DefaultSource), 80, types.SourceLLM)
		assert.Equal(t, Flatten(s), Flatten(scored))
	}
}

func TestNormalize(t *testing.T) {
	scored := types.ExtractedFieldSet{"a": types.ScoredField("x", 40, types.SourceOCR, nil)}
	assert.Equal(t, scored, Normalize(scored, 99, types.SourceLLM))

	legacy := types.ExtractedFieldSet{"a": types.LegacyField("x")}
	out := Normalize(legacy, 99, types.SourceLLM)
	assert.Equal(t, 99, out["a"].Confidence)
	assert.Equal(t, types.SourceLLM, out["a"].Source)
}

func TestAverageConfidence(t *testing.T) {
	assert.Equal(t, 0, AverageConfidence(nil))
	assert.Equal(t, 0, AverageConfidence(types.ExtractedFieldSet{}))
	assert.Equal(t, 0, AverageConfidence(types.ExtractedFieldSet{"a": types.LegacyField("x")}))
	assert.Equal(t, 70, AverageConfidence(types.ExtractedFieldSet{
		"a": types.ScoredField("x", 80, types.SourceOCR, nil),
		"b": types.ScoredField("y", 60, types.SourcePattern, nil),
	}))
	assert.Equal(t, 67, AverageConfidence(types.ExtractedFieldSet{
		"a": types.ScoredField("x", 66, types.SourceOCR, nil),
		"b": types.ScoredField("y", 67, types.SourceOCR, nil),
		"c": types.LegacyField("ignored"),
	}))
}

func TestLowConfidenceFields(t *testing.T) {
	set := types.ExtractedFieldSet{
		"zip":   types.ScoredField("90210", 40, types.SourceOCR, nil),
		"email": types.ScoredField("a@b.co", 95, types.SourcePattern, nil),
		"city":  types.ScoredField("Paris", 69, types.SourceLLM, nil),
		"edge":  types.ScoredField("x", 70, types.SourceLLM, nil),
		"bare":  types.LegacyField("y"),
	}
	assert.Equal(t, []string{"city", "zip"}, LowConfidenceFields(set, DefaultLowConfidenceThreshold))
	assert.Empty(t, LowConfidenceFields(set, 0))
}

func TestMarshalScoredSet(t *testing.T) {
	set := types.ExtractedFieldSet{
		"a": types.ScoredField("x", 80, types.SourceOCR, strPtr("X")),
		"b": types.LegacyField([]any{"p"}),
	}
	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"value":"x","confidence":80,"source":"ocr","rawText":"X"},"b":["p"]}`, string(data))

	back, err := DecodeJSON(data)
	require.NoError(t, err)
	assert.Equal(t, set["a"], back["a"])
}
