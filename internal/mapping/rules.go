// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapping

import (
	"context"
	"regexp"
	"strings"

	"github.com/pdiddy/fieldmap/internal/features"
	"github.com/pdiddy/fieldmap/pkg/types"
)

// rulePattern pairs a source-name pattern with the form-name pattern it
// implies. Both are matched against lowercased names.
type rulePattern struct {
	source, target *regexp.Regexp
}

func rule(source, target string) rulePattern {
	return rulePattern{regexp.MustCompile(source), regexp.MustCompile(target)}
}

var rulePatterns = []rulePattern{
	// names
	rule(`(first|given).*name`, `(first|given).*name`),
	rule(`(last|family|sur).*name`, `(last|family|sur).*name`),
	rule(`full.*name`, `(full|complete).*name`),

	// contact
	rule(`email.*address`, `email`),
	rule(`phone.*number`, `phone`),
	rule(`mobile.*number`, `(mobile|cell)`),

	// address
	rule(`street.*address`, `(street|address)`),
	rule(`city`, `city`),
	rule(`state`, `state`),
	rule(`zip.*code`, `(zip|postal)`),

	// dates
	rule(`birth.*date`, `(birth|dob)`),
	rule(`date.*birth`, `(birth|dob)`),

	// money
	rule(`salary`, `(salary|income)`),
	rule(`amount`, `amount`),
}

// Rule scores.
const (
	ruleExactScore     = 1.0
	rulePatternScore   = 0.9
	ruleSubstringScore = 0.7
	ruleOverlapWeight  = 0.8
)

// RuleScore rates how strongly the naming rules tie a source field to a
// form field. Identical names (ignoring case) score 1. Otherwise the score
// is the best of 0.9 for a known naming pattern, 0.7 when one name contains
// the other, and 0.8 times the Jaccard overlap of whitespace-separated
// words.
func RuleScore(source, target string) float64 {
	src, tgt := strings.ToLower(source), strings.ToLower(target)
	if src == tgt {
		return ruleExactScore
	}

	var score float64
	for _, p := range rulePatterns {
		if p.source.MatchString(src) && p.target.MatchString(tgt) {
			score = rulePatternScore
			break
		}
	}
	if strings.Contains(tgt, src) || strings.Contains(src, tgt) {
		score = max(score, ruleSubstringScore)
	}
	return max(score, ruleOverlapWeight*wordOverlap(src, tgt))
}

func wordOverlap(a, b string) float64 {
	wa := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		wa[w] = true
	}
	wb := make(map[string]bool)
	for _, w := range strings.Fields(b) {
		wb[w] = true
	}
	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// RuleSimilarity is a SimilarityProvider backed by RuleScore. It is the
// default provider when no embedding service is configured.
type RuleSimilarity struct{}

// Similarity returns RuleScore(a, b). It never fails.
func (RuleSimilarity) Similarity(_ context.Context, a, b string) (float64, error) {
	return RuleScore(a, b), nil
}

// Strategy reports that the scores come from naming rules.
func (RuleSimilarity) Strategy() types.MatchingStrategy {
	return types.StrategyRuleBased
}

// strategyReporter is implemented by providers that know which matching
// strategy their scores represent. Providers without it are assumed to be
// semantic.
type strategyReporter interface {
	Strategy() types.MatchingStrategy
}

func providerStrategy(p SimilarityProvider) types.MatchingStrategy {
	if r, ok := p.(strategyReporter); ok {
		return r.Strategy()
	}
	return types.StrategySemantic
}

// DetermineStrategy names the evidence that best supports pairing source
// with target: edit-distance similarity (fuzzy), the provider's score
// under the provider's strategy, or the naming rules. Ties go to rules,
// then the provider, then fuzzy. When no evidence is above zero the
// classifier decided alone and the result is ml_classification.
func DetermineStrategy(source, target string, sim float64, provider types.MatchingStrategy) types.MatchingStrategy {
	evidence := []struct {
		strategy types.MatchingStrategy
		score    float64
	}{
		{types.StrategyRuleBased, RuleScore(source, target)},
		{provider, sim},
		{types.StrategyFuzzy, features.TextSimilarity(source, target)},
	}

	best, bestScore := types.StrategyMLClassification, 0.0
	for _, e := range evidence {
		if e.score > bestScore {
			best, bestScore = e.strategy, e.score
		}
	}
	return best
}
