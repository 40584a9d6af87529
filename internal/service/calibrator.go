package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/store"
	"go.uber.org/zap"
)

const (
	// MinTrainingSamples is the floor below which Train refuses to run.
	MinTrainingSamples = 10
	// MinClassFraction is the smallest share either label may hold.
	MinClassFraction = 0.2

	trainingEpochs       = 200
	trainingLearningRate = 0.1

	// Heuristic fallback weights for the untrained model.
	fallbackSimilarityWeight = 0.5
	fallbackRecencyWeight    = 0.2
	fallbackMemoryWeight     = 0.15
	fallbackClaimedWeight    = 0.15

	// recencyDecayLambda controls the per-hour exponential decay of the
	// recency feature.
	recencyDecayLambda = 0.005
)

var (
	ErrInsufficientSamples = errors.New("not enough labeled examples to train")
	ErrClassImbalance      = errors.New("training set is not class-balanced")
)

// Calibrator turns a ValidationFeatures vector into P(valid). The
// active model lives behind an atomic pointer: readers never observe a
// half-written model, and a failed retrain leaves the prior one intact.
type Calibrator struct {
	modelStore domain.ModelStore
	logger     *zap.Logger
	model      atomic.Pointer[domain.ModelSnapshot]
}

func NewCalibrator(ms domain.ModelStore, logger *zap.Logger) *Calibrator {
	c := &Calibrator{modelStore: ms, logger: logger}
	c.model.Store(&domain.ModelSnapshot{})
	return c
}

// Load restores the persisted model, if any. A missing blob is not an
// error; the heuristic fallback stays active.
func (c *Calibrator) Load(ctx context.Context) error {
	snap, err := c.modelStore.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.logger.Info("no persisted calibration model, using heuristic fallback")
			return nil
		}
		return err
	}
	c.model.Store(snap)
	c.logger.Info("calibration model loaded",
		zap.Bool("trained", snap.Trained),
		zap.Int("samples", snap.Samples))
	return nil
}

// Snapshot returns the active model.
func (c *Calibrator) Snapshot() *domain.ModelSnapshot {
	return c.model.Load()
}

// Predict returns P(valid) in [0,1]. Trained path: standardized
// features through logistic regression. Cold start: a fixed weighted
// combination of the strongest signals, clamped.
func (c *Calibrator) Predict(f domain.ValidationFeatures) float64 {
	snap := c.model.Load()
	if !snap.Trained {
		p := fallbackSimilarityWeight*f.Similarity +
			fallbackRecencyWeight*f.Recency +
			fallbackMemoryWeight*f.MemoryConfidence +
			fallbackClaimedWeight*f.ClaimedConfidence
		return clamp01(p)
	}

	vec := f.Vector()
	z := snap.Bias
	for i := 0; i < domain.FeatureCount; i++ {
		std := snap.Std[i]
		if std == 0 {
			std = 1
		}
		z += snap.Weights[i] * ((vec[i] - snap.Mean[i]) / std)
	}
	return sigmoid(z)
}

// Train fits a fresh logistic model on the examples, persists it, and
// swaps it in. The active model is untouched until the new one is both
// trained and saved.
func (c *Calibrator) Train(ctx context.Context, examples []domain.TrainingExample) (*domain.TrainingReport, error) {
	if len(examples) < MinTrainingSamples {
		return nil, ErrInsufficientSamples
	}
	positives := 0
	for _, ex := range examples {
		if ex.Valid {
			positives++
		}
	}
	frac := float64(positives) / float64(len(examples))
	if frac < MinClassFraction || frac > 1-MinClassFraction {
		return nil, ErrClassImbalance
	}

	mean, std := fitScaler(examples)
	scaled := make([][domain.FeatureCount]float64, len(examples))
	labels := make([]float64, len(examples))
	for i, ex := range examples {
		vec := ex.Features.Vector()
		for j := 0; j < domain.FeatureCount; j++ {
			scaled[i][j] = (vec[j] - mean[j]) / std[j]
		}
		if ex.Valid {
			labels[i] = 1
		}
	}

	var weights [domain.FeatureCount]float64
	var bias float64
	n := float64(len(examples))
	for epoch := 0; epoch < trainingEpochs; epoch++ {
		var gradW [domain.FeatureCount]float64
		var gradB float64
		for i := range scaled {
			z := bias
			for j := 0; j < domain.FeatureCount; j++ {
				z += weights[j] * scaled[i][j]
			}
			err := sigmoid(z) - labels[i]
			for j := 0; j < domain.FeatureCount; j++ {
				gradW[j] += err * scaled[i][j]
			}
			gradB += err
		}
		for j := 0; j < domain.FeatureCount; j++ {
			weights[j] -= trainingLearningRate * gradW[j] / n
		}
		bias -= trainingLearningRate * gradB / n
	}

	correct := 0
	for i := range scaled {
		z := bias
		for j := 0; j < domain.FeatureCount; j++ {
			z += weights[j] * scaled[i][j]
		}
		if (sigmoid(z) >= 0.5) == (labels[i] == 1) {
			correct++
		}
	}

	snap := &domain.ModelSnapshot{
		Weights:   weights,
		Bias:      bias,
		Mean:      mean,
		Std:       std,
		Trained:   true,
		Samples:   len(examples),
		TrainedAt: time.Now().UTC(),
	}
	if err := c.modelStore.Save(ctx, snap); err != nil {
		return nil, err
	}
	c.model.Store(snap)

	report := &domain.TrainingReport{
		Accuracy:       float64(correct) / n,
		Samples:        len(examples),
		FeatureWeights: make(map[string]float64, domain.FeatureCount),
	}
	for i, name := range domain.FeatureNames {
		report.FeatureWeights[name] = weights[i]
	}
	c.logger.Info("calibration model trained",
		zap.Float64("accuracy", report.Accuracy),
		zap.Int("samples", report.Samples))
	return report, nil
}

func fitScaler(examples []domain.TrainingExample) (mean, std [domain.FeatureCount]float64) {
	n := float64(len(examples))
	for _, ex := range examples {
		vec := ex.Features.Vector()
		for j := 0; j < domain.FeatureCount; j++ {
			mean[j] += vec[j]
		}
	}
	for j := 0; j < domain.FeatureCount; j++ {
		mean[j] /= n
	}
	for _, ex := range examples {
		vec := ex.Features.Vector()
		for j := 0; j < domain.FeatureCount; j++ {
			d := vec[j] - mean[j]
			std[j] += d * d
		}
	}
	for j := 0; j < domain.FeatureCount; j++ {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return mean, std
}

// ExtractFeatures builds the fixed-shape vector for one candidate
// decision. The similarity argument wins when non-negative; otherwise
// cosine of the two stored embeddings is used when both are present,
// else a neutral 0.5 (the core never computes embeddings itself).
func ExtractFeatures(newFact, prior *domain.Fact, action domain.ValidationAction, similarity, claimedConfidence float64, now time.Time) domain.ValidationFeatures {
	f := domain.ValidationFeatures{
		Similarity:        0.5,
		Recency:           1,
		ClaimedConfidence: clamp01(claimedConfidence),
	}
	f.SetAction(action)

	if similarity >= 0 {
		f.Similarity = clamp01(similarity)
	} else if newFact != nil && prior != nil {
		if cos, ok := cosineSimilarity(newFact.Embedding, prior.Embedding); ok {
			// Cosine is [-1,1]; map into [0,1].
			f.Similarity = clamp01((cos + 1) / 2)
		}
	}

	if prior != nil {
		f.MemoryConfidence = clamp01(prior.Trust)
		hours := now.Sub(prior.UpdatedAt).Hours()
		if hours > 0 {
			f.Recency = math.Exp(-recencyDecayLambda * hours)
		}
	}

	if newFact != nil {
		if domain.SlotIsHighStakes(newFact.Slot) {
			f.HighStakes = 1
		}
		if prior != nil {
			if newFact.Slot == prior.Slot {
				f.AttributeMatch = 1
			}
			if sharesToken(newFact.NormalizedValue, prior.NormalizedValue) {
				f.EntityMatch = 1
			}
		}
	}
	return f
}

func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

func sharesToken(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	set := make(map[string]bool)
	for _, tok := range strings.Fields(a) {
		set[tok] = true
	}
	for _, tok := range strings.Fields(b) {
		if set[tok] {
			return true
		}
	}
	return false
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
