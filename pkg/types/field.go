// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data model shared by the field-mapping stages:
// field pairs, feature vectors, predictions, extracted field sets and the
// per-stage configuration structs.
package types

// FieldPair is a candidate link between one extracted source field and one
// target form field. It is built per comparison and never persisted.
type FieldPair struct {
	// SourceFieldName is the name of the field extracted from the document.
	SourceFieldName string `json:"source_field_name" yaml:"source_field_name"`

	// SourceFieldValue is the extracted value. It does not feed the features
	// but travels with the pair for reporting.
	SourceFieldValue string `json:"source_field_value,omitempty" yaml:"source_field_value,omitempty"`

	// TargetFieldName is the name of the form field.
	TargetFieldName string `json:"target_field_name" yaml:"target_field_name"`

	// PrecomputedSimilarity is supplied by an external service (for example
	// an embedding model) and passed through to the classifier unchanged.
	PrecomputedSimilarity float64 `json:"precomputed_similarity" yaml:"precomputed_similarity"`
}

// Feature indices into a FeatureVector. The order is the classifier's input
// contract; reordering invalidates every persisted model.
const (
	FeatureText = iota
	FeatureSemantic
	FeatureType
	FeatureLength
	FeaturePositional
	FeatureCommonToken
	FeatureExactMatch
	FeaturePrecomputed

	FeatureCount
)

// FeatureNames lists the features in input order.
var FeatureNames = [FeatureCount]string{
	"text_similarity",
	"semantic_similarity",
	"type_similarity",
	"length_similarity",
	"positional_similarity",
	"common_token",
	"exact_match",
	"precomputed_similarity",
}

// FeatureVector is the fixed-order numeric encoding of a FieldPair.
// Every element lies in [0,1]; the two flags are exactly 0 or 1.
type FeatureVector [FeatureCount]float64

// Slice returns the features as a float64 slice.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// TrainingExample is a labelled FieldPair used only during training.
type TrainingExample struct {
	FieldPair `yaml:",inline"`

	// Matched is true when the pair denotes the same semantic field.
	Matched bool `json:"matched" yaml:"matched"`
}

// SimilarityBreakdown exposes a subset of the features behind a prediction.
type SimilarityBreakdown struct {
	TextSimilarity       float64 `json:"text_similarity"`
	SemanticSimilarity   float64 `json:"semantic_similarity"`
	TypeSimilarity       float64 `json:"type_similarity"`
	PositionalSimilarity float64 `json:"positional_similarity"`
}

// MatchThreshold is the fixed decision threshold applied to classifier
// confidence.
const MatchThreshold = 0.5

// MatchPrediction is the classifier's answer for one FieldPair.
type MatchPrediction struct {
	// Confidence is the match probability in [0,1].
	Confidence float64 `json:"confidence"`

	// ShouldMatch is Confidence > MatchThreshold.
	ShouldMatch bool `json:"should_match"`

	Breakdown SimilarityBreakdown `json:"breakdown"`
}

// EvaluationMetrics summarizes predictions over a labelled holdout.
// Ratios whose denominator is zero are reported as 0.
type EvaluationMetrics struct {
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`

	TruePositives  int `json:"true_positives" yaml:"true_positives"`
	FalsePositives int `json:"false_positives" yaml:"false_positives"`
	TrueNegatives  int `json:"true_negatives" yaml:"true_negatives"`
	FalseNegatives int `json:"false_negatives" yaml:"false_negatives"`
	Total          int `json:"total" yaml:"total"`
}

// EpochProgress is emitted once per training epoch, in epoch order.
type EpochProgress struct {
	Epoch  int `json:"epoch"`
	Epochs int `json:"epochs"`

	Loss      float64 `json:"loss"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`

	// ValLoss and ValAccuracy are zero when the validation subset is empty.
	ValLoss     float64 `json:"val_loss"`
	ValAccuracy float64 `json:"val_accuracy"`
}

// FieldType is the semantic category of a field, inferred from its name.
type FieldType string

const (
	TypeEmail    FieldType = "email"
	TypePhone    FieldType = "phone"
	TypeDate     FieldType = "date"
	TypeName     FieldType = "name"
	TypeAddress  FieldType = "address"
	TypeNumber   FieldType = "number"
	TypeCurrency FieldType = "currency"
	TypeUnknown  FieldType = "unknown"
)

// MatchingStrategy names the evidence that best supported a mapping.
type MatchingStrategy string

const (
	StrategyFuzzy            MatchingStrategy = "fuzzy"
	StrategySemantic         MatchingStrategy = "semantic"
	StrategyRuleBased        MatchingStrategy = "rule_based"
	StrategyMLClassification MatchingStrategy = "ml_classification"
)

// FieldMapping links one extracted field to one form field.
type FieldMapping struct {
	SourceField string `json:"source_field" yaml:"source_field"`
	TargetField string `json:"target_field" yaml:"target_field"`

	// Value is the flattened extracted value that would fill the form field.
	Value any `json:"value" yaml:"value"`

	// Confidence is the classifier confidence for the pair, in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// ExtractionConfidence and ExtractionSource describe the extracted value
	// after normalization into scored format.
	ExtractionConfidence int              `json:"extraction_confidence" yaml:"extraction_confidence"`
	ExtractionSource     ExtractionSource `json:"extraction_source" yaml:"extraction_source"`

	FieldType FieldType `json:"field_type" yaml:"field_type"`

	// ValueValid reports whether Value passes the checks for FieldType.
	ValueValid bool `json:"value_valid" yaml:"value_valid"`

	Strategy MatchingStrategy `json:"matching_strategy" yaml:"matching_strategy"`
}
