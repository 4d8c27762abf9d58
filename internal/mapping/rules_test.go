// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fieldmap/internal/classifier"
	"github.com/pdiddy/fieldmap/pkg/types"
)

func TestRuleScore(t *testing.T) {
	tests := []struct {
		name           string
		source, target string
		want           float64
	}{
		{"identical", "firstName", "firstName", 1},
		{"identical ignoring case", "FirstName", "firstname", 1},
		{"given name", "first_name", "given name", 0.9},
		{"surname", "family_name", "Surname", 0.9},
		{"email", "email_address", "emailAddr", 0.9},
		{"phone", "phone_number", "phoneNum", 0.9},
		{"mobile", "mobile_number", "cell", 0.9},
		{"street", "street_address", "streetAddress", 0.9},
		{"zip", "zip_code", "postal", 0.9},
		{"birth date", "birth_date", "dateOfBirth", 0.9},
		{"date of birth", "date_of_birth", "dob", 0.9},
		{"salary", "salary", "annual_income", 0.9},
		{"substring", "company", "company_name", 0.7},
		{"word overlap", "contact person", "person in charge", 0.8 * 1.0 / 4.0},
		{"unrelated", "abc", "xyz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RuleScore(tt.source, tt.target), 1e-9)
		})
	}
}

func TestRuleScorePatternsAreDirectional(t *testing.T) {
	// The source pattern needs "zip...code"; a bare "postal" source does not
	// imply a zip form field.
	assert.Equal(t, 0.0, RuleScore("postal", "zip_code"))
}

func TestRuleSimilarity(t *testing.T) {
	var p SimilarityProvider = RuleSimilarity{}
	sim, err := p.Similarity(context.Background(), "phone_number", "phone")
	require.NoError(t, err)
	assert.Equal(t, 0.9, sim)
	assert.Equal(t, types.StrategyRuleBased, providerStrategy(p))
	assert.Equal(t, types.StrategySemantic, providerStrategy(nameSimilarity{}))
}

func TestDetermineStrategy(t *testing.T) {
	tests := []struct {
		name           string
		source, target string
		sim            float64
		provider       types.MatchingStrategy
		want           types.MatchingStrategy
	}{
		{"identical names favour rules", "firstName", "firstName", 1, types.StrategyRuleBased, types.StrategyRuleBased},
		{"rule pattern", "email_address", "emailAddr", 0.9, types.StrategyRuleBased, types.StrategyRuleBased},
		{"edit distance", "customer_ref", "customer_rfe", 0, types.StrategySemantic, types.StrategyFuzzy},
		{"embedding", "zip", "postal_code", 0.95, types.StrategySemantic, types.StrategySemantic},
		{"no evidence", "ab", "cd", 0, types.StrategySemantic, types.StrategyMLClassification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineStrategy(tt.source, tt.target, tt.sim, tt.provider))
		})
	}
}

func TestMapFieldsReportsStrategy(t *testing.T) {
	svc := trainedService(t)

	got, err := svc.MapFields(context.Background(),
		types.ExtractedFieldSet{"email_address_3": types.LegacyField("jane@example.com")},
		[]string{"email_address_3", "blood_type"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "email_address_3", got[0].TargetField)
	assert.Equal(t, types.StrategyRuleBased, got[0].Strategy)
}

func TestSuggestReportsProviderStrategy(t *testing.T) {
	svc := NewService(classifier.New(classifierConfig(t)), types.MappingConfig{MaxSuggestions: 5},
		WithSimilarity(fixedSimilarity(0.95)))
	svc.Initialize()

	got, err := svc.Suggest(context.Background(), "zip", "90210", []string{"postal_code"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.StrategySemantic, got[0].Strategy)
	assert.Equal(t, types.StrategySemantic, svc.Strategy("zip", "postal_code", 0.95))
}

type fixedSimilarity float64

func (f fixedSimilarity) Similarity(context.Context, string, string) (float64, error) {
	return float64(f), nil
}
