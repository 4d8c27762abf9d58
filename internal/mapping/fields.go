// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mapping

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/fieldmap/internal/confidence"
	"github.com/pdiddy/fieldmap/internal/features"
	"github.com/pdiddy/fieldmap/pkg/types"
)

// Candidate is one scored form field for a source field.
type Candidate struct {
	TargetField string                 `json:"target_field"`
	Prediction  types.MatchPrediction  `json:"prediction"`
	Strategy    types.MatchingStrategy `json:"matching_strategy"`
}

// Suggest ranks formFields for one source field and returns at most
// MaxSuggestions candidates whose confidence reaches MinConfidence, best
// first. Ties are ordered by target name.
func (s *Service) Suggest(ctx context.Context, source string, value any, formFields []string) ([]Candidate, error) {
	sims, err := s.similarities(ctx, []string{source}, formFields)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suggest(source, value, formFields, sims[0])
}

func (s *Service) suggest(source string, value any, formFields []string, sims []float64) ([]Candidate, error) {
	provider := providerStrategy(s.similarity)
	var out []Candidate
	for j, target := range formFields {
		pred, err := s.clf.Predict(types.FieldPair{
			SourceFieldName:       source,
			SourceFieldValue:      valueString(value),
			TargetFieldName:       target,
			PrecomputedSimilarity: sims[j],
		})
		if err != nil {
			return nil, err
		}
		if pred.Confidence >= s.cfg.MinConfidence {
			out = append(out, Candidate{
				TargetField: target,
				Prediction:  pred,
				Strategy:    DetermineStrategy(source, target, sims[j], provider),
			})
		}
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		if c := cmp.Compare(b.Prediction.Confidence, a.Prediction.Confidence); c != 0 {
			return c
		}
		return strings.Compare(a.TargetField, b.TargetField)
	})
	if len(out) > s.cfg.MaxSuggestions {
		out = out[:s.cfg.MaxSuggestions]
	}
	return out, nil
}

// MapFields maps an extracted field set, in either format, onto formFields.
// Each source contributes its best candidate; when several sources pick the
// same form field the highest confidence wins, ties going to the
// lexicographically smaller source name. The result is ordered by source
// field name.
func (s *Service) MapFields(ctx context.Context, set types.ExtractedFieldSet, formFields []string) ([]types.FieldMapping, error) {
	scored := confidence.LegacyToScored(set, s.cfg.DefaultConfidence, s.cfg.DefaultSource)
	sources := make([]string, 0, len(scored))
	for name := range scored {
		sources = append(sources, name)
	}
	slices.Sort(sources)

	sims, err := s.similarities(ctx, sources, formFields)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var best []types.FieldMapping
	for i, source := range sources {
		f := scored[source]
		cands, err := s.suggest(source, f.Value, formFields, sims[i])
		if err != nil {
			return nil, err
		}
		if len(cands) == 0 {
			continue
		}
		top := cands[0]
		ft := InferFieldType(source, top.TargetField)
		best = append(best, types.FieldMapping{
			SourceField:          source,
			TargetField:          top.TargetField,
			Value:                f.Value,
			Confidence:           top.Prediction.Confidence,
			ExtractionConfidence: f.Confidence,
			ExtractionSource:     f.Source,
			FieldType:            ft,
			ValueValid:           ValidateValue(ft, f.Value),
			Strategy:             top.Strategy,
		})
		s.log.Debug("field mapped",
			zap.String("source", source),
			zap.String("target", top.TargetField),
			zap.Float64("confidence", top.Prediction.Confidence),
			zap.String("strategy", string(top.Strategy)))
	}
	return s.resolveConflicts(best), nil
}

// resolveConflicts keeps one mapping per target field.
func (s *Service) resolveConflicts(mappings []types.FieldMapping) []types.FieldMapping {
	winners := make(map[string]int)
	for i, m := range mappings {
		j, ok := winners[m.TargetField]
		if !ok {
			winners[m.TargetField] = i
			continue
		}
		cur := mappings[j]
		if m.Confidence > cur.Confidence || (m.Confidence == cur.Confidence && m.SourceField < cur.SourceField) {
			winners[m.TargetField] = i
		}
		s.log.Warn("mapping conflict resolved",
			zap.String("target", m.TargetField),
			zap.String("selected", mappings[winners[m.TargetField]].SourceField))
	}

	out := make([]types.FieldMapping, 0, len(winners))
	for i, m := range mappings {
		if winners[m.TargetField] == i {
			out = append(out, m)
		}
	}
	return out
}

// Similarity asks the configured provider for the precomputed similarity
// of one pair.
func (s *Service) Similarity(ctx context.Context, source, target string) (float64, error) {
	return s.similarity.Similarity(ctx, source, target)
}

// Strategy names the evidence behind pairing source with target, given
// the precomputed similarity sim from the configured provider.
func (s *Service) Strategy(source, target string, sim float64) types.MatchingStrategy {
	return DetermineStrategy(source, target, sim, providerStrategy(s.similarity))
}

// similarities returns the precomputed similarity for every
// (source, form field) pair. Provider errors degrade the pair to 0 and
// are logged.
func (s *Service) similarities(ctx context.Context, sources, formFields []string) ([][]float64, error) {
	out := make([][]float64, len(sources))
	for i, src := range sources {
		out[i] = make([]float64, len(formFields))
		for j, target := range formFields {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sim, err := s.similarity.Similarity(ctx, src, target)
			if err != nil {
				s.log.Warn("similarity unavailable, using 0",
					zap.String("source", src), zap.String("target", target), zap.Error(err))
				continue
			}
			out[i][j] = sim
		}
	}
	return out, ctx.Err()
}

// InferFieldType prefers the form field's category, then the source
// field's, and falls back to unknown.
func InferFieldType(source, target string) types.FieldType {
	if ft := features.ClassifyType(target); ft != types.TypeUnknown {
		return ft
	}
	return features.ClassifyType(source)
}

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonDigitPattern = regexp.MustCompile(`\D`)
	datePatterns    = []*regexp.Regexp{
		regexp.MustCompile(`^\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}$`),
		regexp.MustCompile(`^\d{4}[/\-.]\d{1,2}[/\-.]\d{1,2}$`),
		regexp.MustCompile(`(?i)^\d{1,2}\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{4}$`),
	}
	currencyPattern = regexp.MustCompile(`^\$?[\d,]+\.?\d{0,2}$`)
)

// ValidateValue reports whether value is plausible for ft. Types without a
// format check (name, address, unknown) always pass.
func ValidateValue(ft types.FieldType, value any) bool {
	v := valueString(value)
	switch ft {
	case types.TypeEmail:
		return emailPattern.MatchString(v)
	case types.TypePhone:
		n := len(nonDigitPattern.ReplaceAllString(v, ""))
		return n >= 10 && n <= 12
	case types.TypeDate:
		for _, p := range datePatterns {
			if p.MatchString(v) {
				return true
			}
		}
		return false
	case types.TypeNumber:
		_, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, ",", "")), 64)
		return err == nil
	case types.TypeCurrency:
		return currencyPattern.MatchString(strings.ReplaceAll(v, " ", ""))
	}
	return true
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
