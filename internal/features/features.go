// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package features turns a (source field, target field) name pair into the
// fixed-order similarity vector consumed by the match classifier. Every
// function is pure, deterministic and total: any pair of strings, including
// empty ones, yields values in [0,1].
package features

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/fieldmap/pkg/types"
)

var (
	nonWordRe  = regexp.MustCompile(`\W+`)
	digitRunRe = regexp.MustCompile(`\d+`)
)

// Extract computes the feature vector for pair. The precomputed similarity
// is copied through unchanged.
func Extract(pair types.FieldPair) types.FeatureVector {
	a, b := pair.SourceFieldName, pair.TargetFieldName

	var v types.FeatureVector
	v[types.FeatureText] = TextSimilarity(a, b)
	v[types.FeatureSemantic] = SemanticSimilarity(a, b)
	v[types.FeatureType] = TypeSimilarity(a, b)
	v[types.FeatureLength] = LengthSimilarity(a, b)
	v[types.FeaturePositional] = PositionalSimilarity(a, b)
	v[types.FeatureCommonToken] = flag(CommonToken(a, b))
	v[types.FeatureExactMatch] = flag(ExactMatch(a, b))
	v[types.FeaturePrecomputed] = pair.PrecomputedSimilarity
	return v
}

// TextSimilarity is one minus the Levenshtein distance of the lowercased
// strings, normalized by the longer length. Two empty strings score 1.
func TextSimilarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein returns the unit-cost edit distance between a and b.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Tokenize splits s on runs of non-word characters and returns the set of
// lowercase tokens.
func Tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range nonWordRe.Split(strings.ToLower(s), -1) {
		if tok != "" {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// SemanticSimilarity is the Jaccard index of the two token sets. An empty
// union scores 0.
func SemanticSimilarity(a, b string) float64 {
	ta, tb := Tokenize(a), Tokenize(b)
	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// typeCatalog is checked in order; the first category whose keyword is a
// substring of the lowercased name wins.
var typeCatalog = []struct {
	fieldType types.FieldType
	keywords  []string
}{
	{types.TypeEmail, []string{"email", "e-mail"}},
	{types.TypePhone, []string{"phone", "mobile", "tel"}},
	{types.TypeDate, []string{"date", "birth", "dob"}},
	{types.TypeName, []string{"name", "first", "last"}},
	{types.TypeAddress, []string{"address", "street", "city"}},
	{types.TypeNumber, []string{"number"}},
	{types.TypeCurrency, []string{"currency", "amount", "price", "salary"}},
}

// ClassifyType returns the first catalog category matching s, or
// types.TypeUnknown.
func ClassifyType(s string) types.FieldType {
	lower := strings.ToLower(s)
	for _, entry := range typeCatalog {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.fieldType
			}
		}
	}
	return types.TypeUnknown
}

// TypeSimilarity is 1 when both names classify to the same category and 0
// otherwise. Two unknown names count as the same category.
//
// TODO: decide whether unknown/unknown should keep scoring 1; changing it
// requires retraining every persisted model.
func TypeSimilarity(a, b string) float64 {
	return flag(ClassifyType(a) == ClassifyType(b))
}

// LengthSimilarity is one minus the length difference over the longer
// length, counted in runes. Two empty strings score 1.
func LengthSimilarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - math.Abs(float64(la-lb))/float64(longest)
}

// PositionalSimilarity compares the first run of digits in each name.
// Equal numbers score 1, nearby numbers decay linearly to 0 over a distance
// of 10, a number on one side only scores 0.5 and no numbers score 0.
func PositionalSimilarity(a, b string) float64 {
	da := digitRunRe.FindString(a)
	db := digitRunRe.FindString(b)
	switch {
	case da == "" && db == "":
		return 0
	case da == "" || db == "":
		return 0.5
	}

	na, nb := parseRun(da), parseRun(db)
	if na == nb || strings.TrimLeft(da, "0") == strings.TrimLeft(db, "0") {
		return 1
	}
	return math.Max(0, 1-math.Abs(na-nb)/10)
}

// parseRun parses a digit run. Runs too long for float64 saturate at +Inf,
// which compares as far from every finite number.
func parseRun(run string) float64 {
	n, err := strconv.ParseFloat(run, 64)
	if err != nil && !math.IsInf(n, 0) {
		return 0
	}
	return n
}

// CommonToken reports whether the two token sets intersect.
func CommonToken(a, b string) bool {
	tb := Tokenize(b)
	for tok := range Tokenize(a) {
		if _, ok := tb[tok]; ok {
			return true
		}
	}
	return false
}

// ExactMatch reports whether the names are identical once lowercased and
// stripped of non-word characters.
func ExactMatch(a, b string) bool {
	return canonical(a) == canonical(b)
}

func canonical(s string) string {
	return nonWordRe.ReplaceAllString(strings.ToLower(s), "")
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
