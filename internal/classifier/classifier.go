// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classifier implements the binary field-match classifier: a small
// feed-forward network over the similarity feature vector with an explicit
// create, train, evaluate, persist and load lifecycle.
//
// A Classifier is not safe for concurrent use while Train is running.
// Concurrent Predict calls are safe with each other; callers that mix
// training and prediction must serialize them (see mapping.Service).
package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/fieldmap/internal/features"
	"github.com/pdiddy/fieldmap/pkg/types"
)

var (
	// ErrNotInitialized is returned when a model is required but none has
	// been created or loaded.
	ErrNotInitialized = errors.New("classifier: model not initialized")

	// ErrInsufficientData is returned when the training subset would be empty.
	ErrInsufficientData = errors.New("classifier: not enough training examples")

	// ErrCorruptModel is returned by Load when the artifact does not
	// describe a compatible network.
	ErrCorruptModel = errors.New("classifier: corrupt model artifact")
)

// State is the lifecycle state of a Classifier.
type State int

const (
	StateUninitialized State = iota
	// StateCreated holds freshly initialized, possibly trained, weights.
	StateCreated
	// StateLoaded holds weights read from the model artifact.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateLoaded:
		return "loaded"
	}
	return "uninitialized"
}

// Ready reports whether a model is in memory.
func (s State) Ready() bool {
	return s != StateUninitialized
}

// Classifier owns the network weights and their persisted artifact.
type Classifier struct {
	cfg   types.ClassifierConfig
	log   *zap.Logger
	rng   *rand.Rand
	now   func() time.Time
	net   *network
	opt   *adam
	state State

	trainedAt *time.Time
	runs      int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for lifecycle and training progress.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) { c.log = l }
}

// WithClock overrides the time source used to stamp trained models.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// New returns an uninitialized classifier. Zero-valued config fields take
// the defaults from types.DefaultConfig.
func New(cfg types.ClassifierConfig, opts ...Option) *Classifier {
	def := types.DefaultConfig().Classifier
	if cfg.ModelPath == "" {
		cfg.ModelPath = def.ModelPath
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.TrainFraction <= 0 || cfg.TrainFraction > 1 {
		cfg.TrainFraction = def.TrainFraction
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = def.LogEvery
	}

	c := &Classifier{
		cfg: cfg,
		log: zap.NewNop(),
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Classifier) State() State {
	return c.state
}

// ModelPath returns the location of the persisted artifact.
func (c *Classifier) ModelPath() string {
	return c.cfg.ModelPath
}

// Initialize loads the persisted model, or creates a fresh one when the
// artifact is missing or unusable. Load failures are logged, never
// returned. Calling Initialize on a ready classifier is a no-op.
func (c *Classifier) Initialize() State {
	if c.state.Ready() {
		return c.state
	}
	if err := c.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.log.Info("no persisted model, creating a fresh one", zap.String("path", c.cfg.ModelPath))
		} else {
			c.log.Warn("persisted model unusable, creating a fresh one",
				zap.String("path", c.cfg.ModelPath), zap.Error(err))
		}
		c.Create()
	}
	return c.state
}

// Create replaces any in-memory model with freshly initialized weights.
func (c *Classifier) Create() {
	c.net = newNetwork(types.FeatureCount, topology, c.rng)
	c.opt = newAdam(c.cfg.LearningRate, c.net)
	c.state = StateCreated
	c.trainedAt = nil
	c.runs = 0
}

// Load reads the model artifact at ModelPath into memory. On error the
// in-memory model is left unchanged.
func (c *Classifier) Load() error {
	a, err := readArtifact(c.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("loading model %s: %w", c.cfg.ModelPath, err)
	}
	net, err := a.network()
	if err != nil {
		return fmt.Errorf("loading model %s: %w", c.cfg.ModelPath, err)
	}
	c.net = net
	c.opt = newAdam(c.cfg.LearningRate, net)
	c.state = StateLoaded
	c.trainedAt = a.TrainedAt
	c.runs = a.TrainingRuns
	c.log.Info("model loaded", zap.String("path", c.cfg.ModelPath), zap.Int("training_runs", a.TrainingRuns))
	return nil
}

// Save writes the in-memory model to ModelPath.
func (c *Classifier) Save() error {
	if c.net == nil {
		return ErrNotInitialized
	}
	if err := writeArtifact(c.cfg.ModelPath, newArtifact(c.net, c.trainedAt, c.runs)); err != nil {
		return fmt.Errorf("saving model %s: %w", c.cfg.ModelPath, err)
	}
	c.log.Info("model saved", zap.String("path", c.cfg.ModelPath))
	return nil
}

// TrainResult summarizes a completed training run.
type TrainResult struct {
	History         []types.EpochProgress
	TrainCount      int
	ValidationCount int
	ModelPath       string
}

// Final returns the last epoch's progress, or the zero value when no epoch
// ran.
func (r TrainResult) Final() types.EpochProgress {
	if len(r.History) == 0 {
		return types.EpochProgress{}
	}
	return r.History[len(r.History)-1]
}

// Train fits the model to examples and then persists it. The leading
// TrainFraction of examples, in the order given, forms the training subset
// and the rest the validation subset. onEpoch, when non-nil, is called once
// per epoch in increasing epoch order. An uninitialized classifier is
// created first. A save failure is returned after the in-memory weights
// have been updated.
func (c *Classifier) Train(examples []types.TrainingExample, onEpoch func(types.EpochProgress)) (TrainResult, error) {
	nTrain := int(math.Floor(float64(len(examples)) * c.cfg.TrainFraction))
	if nTrain == 0 {
		return TrainResult{}, fmt.Errorf("%w: %d example(s)", ErrInsufficientData, len(examples))
	}
	if !c.state.Ready() {
		c.Create()
	}

	xs := make([][]float64, len(examples))
	ys := make([]float64, len(examples))
	for i, ex := range examples {
		xs[i] = features.Extract(ex.FieldPair).Slice()
		if ex.Matched {
			ys[i] = 1
		}
	}
	trainX, trainY := xs[:nTrain], ys[:nTrain]
	valX, valY := xs[nTrain:], ys[nTrain:]

	result := TrainResult{
		TrainCount:      nTrain,
		ValidationCount: len(valX),
		ModelPath:       c.cfg.ModelPath,
		History:         make([]types.EpochProgress, 0, c.cfg.Epochs),
	}
	c.log.Info("training started",
		zap.Int("examples", len(examples)),
		zap.Int("train", nTrain),
		zap.Int("validation", len(valX)),
		zap.Int("epochs", c.cfg.Epochs),
		zap.Int("batch_size", c.cfg.BatchSize))

	for epoch := 1; epoch <= c.cfg.Epochs; epoch++ {
		p := c.runEpoch(trainX, trainY)
		p.Epoch, p.Epochs = epoch, c.cfg.Epochs
		if len(valX) > 0 {
			p.ValLoss, p.ValAccuracy = c.validate(valX, valY)
		}
		result.History = append(result.History, p)

		if onEpoch != nil {
			onEpoch(p)
		}
		if epoch%c.cfg.LogEvery == 0 {
			c.log.Info("training progress",
				zap.Int("epoch", epoch),
				zap.Int("epochs", c.cfg.Epochs),
				zap.Float64("loss", p.Loss),
				zap.Float64("accuracy", p.Accuracy),
				zap.Float64("val_loss", p.ValLoss),
				zap.Float64("val_accuracy", p.ValAccuracy))
		}
	}

	t := c.now().UTC()
	c.trainedAt = &t
	c.runs++

	if err := c.Save(); err != nil {
		return result, err
	}
	return result, nil
}

// runEpoch makes one pass over the training subset in shuffled mini-batches
// and returns the epoch's loss and training metrics.
func (c *Classifier) runEpoch(xs [][]float64, ys []float64) types.EpochProgress {
	order := c.rng.Perm(len(xs))
	var cm confusion
	var loss float64

	for start := 0; start < len(order); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(order))
		bx := make([][]float64, 0, end-start)
		by := make([]float64, 0, end-start)
		for _, idx := range order[start:end] {
			bx = append(bx, xs[idx])
			by = append(by, ys[idx])
		}

		batchLoss, preds := c.net.trainBatch(bx, by, c.opt, c.rng)
		loss += (batchLoss + c.net.l2Penalty()) * float64(len(bx))
		for i, p := range preds {
			cm.add(p > types.MatchThreshold, by[i] == 1)
		}
	}

	m := cm.metrics()
	return types.EpochProgress{
		Loss:      loss / float64(len(xs)),
		Accuracy:  m.Accuracy,
		Precision: m.Precision,
		Recall:    m.Recall,
	}
}

// validate returns the mean cross-entropy and accuracy on the validation
// subset with dropout disabled.
func (c *Classifier) validate(xs [][]float64, ys []float64) (float64, float64) {
	var loss float64
	var cm confusion
	for i, x := range xs {
		p := c.net.predict(x)
		loss += binaryCrossEntropy(p, ys[i])
		cm.add(p > types.MatchThreshold, ys[i] == 1)
	}
	return loss / float64(len(xs)), cm.metrics().Accuracy
}

// Predict scores one field pair.
func (c *Classifier) Predict(pair types.FieldPair) (types.MatchPrediction, error) {
	if c.net == nil {
		return types.MatchPrediction{}, ErrNotInitialized
	}
	v := features.Extract(pair)
	conf := c.net.predict(v.Slice())
	return types.MatchPrediction{
		Confidence:  conf,
		ShouldMatch: conf > types.MatchThreshold,
		Breakdown: types.SimilarityBreakdown{
			TextSimilarity:       v[types.FeatureText],
			SemanticSimilarity:   v[types.FeatureSemantic],
			TypeSimilarity:       v[types.FeatureType],
			PositionalSimilarity: v[types.FeaturePositional],
		},
	}, nil
}

// Evaluate predicts every example and derives accuracy, precision, recall
// and F1 from the confusion counts.
func (c *Classifier) Evaluate(examples []types.TrainingExample) (types.EvaluationMetrics, error) {
	if c.net == nil {
		return types.EvaluationMetrics{}, ErrNotInitialized
	}
	var cm confusion
	for _, ex := range examples {
		pred, err := c.Predict(ex.FieldPair)
		if err != nil {
			return types.EvaluationMetrics{}, err
		}
		cm.add(pred.ShouldMatch, ex.Matched)
	}
	return cm.metrics(), nil
}

// confusion accumulates a 2x2 confusion matrix.
type confusion struct {
	tp, fp, tn, fn int
}

func (c *confusion) add(predicted, actual bool) {
	switch {
	case predicted && actual:
		c.tp++
	case predicted && !actual:
		c.fp++
	case !predicted && !actual:
		c.tn++
	default:
		c.fn++
	}
}

func (c confusion) metrics() types.EvaluationMetrics {
	total := c.tp + c.fp + c.tn + c.fn
	m := types.EvaluationMetrics{
		TruePositives:  c.tp,
		FalsePositives: c.fp,
		TrueNegatives:  c.tn,
		FalseNegatives: c.fn,
		Total:          total,
		Accuracy:       ratio(c.tp+c.tn, total),
		Precision:      ratio(c.tp, c.tp+c.fp),
		Recall:         ratio(c.tp, c.tp+c.fn),
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
