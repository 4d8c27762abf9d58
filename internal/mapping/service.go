// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mapping is the facade over the match classifier. It serializes
// training and model reloads against predictions and maps whole extracted
// field sets onto form fields.
package mapping

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/fieldmap/internal/classifier"
	"github.com/pdiddy/fieldmap/pkg/types"
)

// SimilarityProvider supplies the precomputed similarity feature for a
// pair of field names. embedding.Client satisfies it.
type SimilarityProvider interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// RunRecorder persists a completed training run. dataset.Store satisfies it.
type RunRecorder interface {
	RecordRun(ctx context.Context, run types.TrainingRun) (types.TrainingRun, error)
}

// Service owns a classifier and guards it with a single-writer lane:
// Train, LoadModel and Initialize take the write lock, everything else the
// read lock.
type Service struct {
	mu  sync.RWMutex
	clf *classifier.Classifier
	cfg types.MappingConfig
	log *zap.Logger
	now func() time.Time

	similarity SimilarityProvider
	recorder   RunRecorder
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithSimilarity sets the provider used by MapFields and Suggest for the
// precomputed similarity feature. Without it RuleSimilarity is used.
func WithSimilarity(p SimilarityProvider) Option {
	return func(s *Service) { s.similarity = p }
}

// WithRunRecorder records every training run that reaches at least one
// epoch.
func WithRunRecorder(r RunRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wraps clf. Zero-valued mapping settings take their defaults,
// except MinConfidence where zero keeps every candidate and only negative
// or NaN values are replaced.
func NewService(clf *classifier.Classifier, cfg types.MappingConfig, opts ...Option) *Service {
	def := types.DefaultConfig().Mapping
	if cfg.MinConfidence < 0 || math.IsNaN(cfg.MinConfidence) {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = def.MaxSuggestions
	}
	if !cfg.DefaultSource.Valid() {
		cfg.DefaultSource = def.DefaultSource
	}
	if cfg.LowConfidenceThreshold <= 0 {
		cfg.LowConfidenceThreshold = def.LowConfidenceThreshold
	}

	s := &Service{
		clf: clf,
		cfg: cfg,
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.similarity == nil {
		s.similarity = RuleSimilarity{}
	}
	return s
}

// Config returns the effective mapping settings.
func (s *Service) Config() types.MappingConfig {
	return s.cfg
}

// Initialize loads the persisted model or creates a fresh one.
func (s *Service) Initialize() classifier.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clf.Initialize()
}

// State returns the classifier lifecycle state.
func (s *Service) State() classifier.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clf.State()
}

// Match scores one source/target pair.
func (s *Service) Match(ctx context.Context, source, target string, similarity float64) (types.MatchPrediction, error) {
	if err := ctx.Err(); err != nil {
		return types.MatchPrediction{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clf.Predict(types.FieldPair{
		SourceFieldName:       source,
		TargetFieldName:       target,
		PrecomputedSimilarity: similarity,
	})
}

// Train runs a full training pass. The context is only consulted before
// training starts; a started run always completes.
func (s *Service) Train(ctx context.Context, examples []types.TrainingExample, onEpoch func(types.EpochProgress)) (classifier.TrainResult, error) {
	if err := ctx.Err(); err != nil {
		return classifier.TrainResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	result, err := s.clf.Train(examples, onEpoch)
	if len(result.History) > 0 && s.recorder != nil {
		s.record(ctx, started, examples, result, err)
	}
	return result, err
}

func (s *Service) record(ctx context.Context, started time.Time, examples []types.TrainingExample, result classifier.TrainResult, trainErr error) {
	final := result.Final()
	run := types.TrainingRun{
		StartedAt:       started,
		FinishedAt:      s.now(),
		Examples:        len(examples),
		TrainCount:      result.TrainCount,
		ValidationCount: result.ValidationCount,
		Epochs:          len(result.History),
		FinalLoss:       final.Loss,
		FinalAccuracy:   final.Accuracy,
		FinalValLoss:    final.ValLoss,
	}
	if trainErr == nil {
		run.ModelPath = result.ModelPath
	}
	run, err := s.recorder.RecordRun(ctx, run)
	if err != nil {
		s.log.Warn("could not record training run", zap.Error(err))
		return
	}
	s.log.Info("training run recorded", zap.String("run_id", run.ID))
}

// Evaluate scores the classifier against a labelled holdout.
func (s *Service) Evaluate(ctx context.Context, examples []types.TrainingExample) (types.EvaluationMetrics, error) {
	if err := ctx.Err(); err != nil {
		return types.EvaluationMetrics{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clf.Evaluate(examples)
}

// SaveModel persists the in-memory model.
func (s *Service) SaveModel() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clf.Save()
}

// LoadModel replaces the in-memory model with the persisted artifact.
func (s *Service) LoadModel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clf.Load()
}
