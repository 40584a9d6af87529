package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verity-mem/verity/internal/domain"
	"go.uber.org/zap"
)

func TestPredictHeuristicFallback(t *testing.T) {
	cal := NewCalibrator(&mockModelStore{}, zap.NewNop())

	f := domain.ValidationFeatures{
		Similarity:        0.5,
		Recency:           1,
		MemoryConfidence:  0.9,
		ClaimedConfidence: 0.9,
	}
	// 0.5*0.5 + 0.2*1 + 0.15*0.9 + 0.15*0.9
	assert.InDelta(t, 0.72, cal.Predict(f), 1e-9)

	// All-zero features never predict above zero; all-max clamps at one.
	assert.Equal(t, 0.0, cal.Predict(domain.ValidationFeatures{}))
	full := domain.ValidationFeatures{Similarity: 1, Recency: 1, MemoryConfidence: 1, ClaimedConfidence: 1}
	assert.Equal(t, 1.0, cal.Predict(full))
}

func TestTrainRefusesSmallOrImbalancedSets(t *testing.T) {
	cal := NewCalibrator(&mockModelStore{}, zap.NewNop())
	ctx := context.Background()

	small := make([]domain.TrainingExample, MinTrainingSamples-1)
	_, err := cal.Train(ctx, small)
	assert.ErrorIs(t, err, ErrInsufficientSamples)

	skewed := make([]domain.TrainingExample, 20)
	for i := range skewed {
		skewed[i].Valid = i < 2 // 10% positive
	}
	_, err = cal.Train(ctx, skewed)
	assert.ErrorIs(t, err, ErrClassImbalance)
}

// separableExamples builds a set where high similarity means valid.
func separableExamples(n int) []domain.TrainingExample {
	out := make([]domain.TrainingExample, 0, n)
	for i := 0; i < n; i++ {
		valid := i%2 == 0
		f := domain.ValidationFeatures{Recency: 0.5, MemoryConfidence: 0.5, ClaimedConfidence: 0.5}
		if valid {
			f.Similarity = 0.9
		} else {
			f.Similarity = 0.1
		}
		f.SetAction(domain.ActionUpdate)
		out = append(out, domain.TrainingExample{Features: f, Valid: valid})
	}
	return out
}

func TestTrainOnSeparableData(t *testing.T) {
	ms := &mockModelStore{}
	cal := NewCalibrator(ms, zap.NewNop())
	ctx := context.Background()

	report, err := cal.Train(ctx, separableExamples(40))
	require.NoError(t, err)
	assert.Equal(t, 40, report.Samples)
	assert.GreaterOrEqual(t, report.Accuracy, 0.95)

	snap := cal.Snapshot()
	assert.True(t, snap.Trained)
	require.NotNil(t, ms.model, "trained model must be persisted")

	highSim := domain.ValidationFeatures{Similarity: 0.9, Recency: 0.5, MemoryConfidence: 0.5, ClaimedConfidence: 0.5}
	highSim.SetAction(domain.ActionUpdate)
	lowSim := highSim
	lowSim.Similarity = 0.1
	assert.Greater(t, cal.Predict(highSim), 0.5)
	assert.Less(t, cal.Predict(lowSim), 0.5)
}

func TestFailedSaveKeepsActiveModel(t *testing.T) {
	ms := &mockModelStore{saveErr: errors.New("disk full")}
	cal := NewCalibrator(ms, zap.NewNop())
	ctx := context.Background()

	f := domain.ValidationFeatures{Similarity: 0.5, Recency: 1, MemoryConfidence: 0.9, ClaimedConfidence: 0.9}
	before := cal.Predict(f)

	_, err := cal.Train(ctx, separableExamples(40))
	require.Error(t, err)
	assert.False(t, cal.Snapshot().Trained)
	assert.Equal(t, before, cal.Predict(f), "a failed train must not change predictions")
}

func TestLoadRestoresPersistedModel(t *testing.T) {
	ms := &mockModelStore{}
	ctx := context.Background()

	trainer := NewCalibrator(ms, zap.NewNop())
	_, err := trainer.Train(ctx, separableExamples(40))
	require.NoError(t, err)

	fresh := NewCalibrator(ms, zap.NewNop())
	require.NoError(t, fresh.Load(ctx))
	assert.True(t, fresh.Snapshot().Trained)

	// Missing blob falls back to the heuristic without erroring.
	empty := NewCalibrator(&mockModelStore{}, zap.NewNop())
	require.NoError(t, empty.Load(ctx))
	assert.False(t, empty.Snapshot().Trained)
}

func TestExtractFeatures(t *testing.T) {
	now := time.Now().UTC()
	prior := &domain.Fact{
		Slot: "employer", NormalizedValue: "microsoft corporation",
		Trust: 0.9, UpdatedAt: now.Add(-24 * time.Hour),
	}
	newFact := &domain.Fact{
		Slot: "employer", NormalizedValue: "microsoft",
		Trust: 0.9,
	}

	f := ExtractFeatures(newFact, prior, domain.ActionUpdate, -1, 0.9, now)
	require.NoError(t, f.Validate())
	assert.Equal(t, 0.5, f.Similarity, "no embeddings means neutral similarity")
	assert.InDelta(t, 0.887, f.Recency, 0.01) // exp(-0.005*24)
	assert.Equal(t, 0.9, f.MemoryConfidence)
	assert.Equal(t, 1.0, f.HighStakes)
	assert.Equal(t, 1.0, f.AttributeMatch)
	assert.Equal(t, 1.0, f.EntityMatch, "shared token counts as an entity match")
	assert.Equal(t, 1.0, f.ActionUpdate)
	assert.Equal(t, 0.0, f.ActionAdd)

	// Explicit similarity wins over embeddings.
	f = ExtractFeatures(newFact, prior, domain.ActionAdd, 0.3, 0.9, now)
	assert.Equal(t, 0.3, f.Similarity)
	assert.Equal(t, 1.0, f.ActionAdd)

	// Identical unit embeddings cosine to 1, mapped to 1.
	newFact.Embedding = []float32{0, 1, 0}
	prior2 := &domain.Fact{Slot: "hobby", NormalizedValue: "chess", Trust: 0.5,
		UpdatedAt: now, Embedding: []float32{0, 1, 0}}
	f = ExtractFeatures(newFact, prior2, domain.ActionUpdate, -1, 0.9, now)
	assert.InDelta(t, 1.0, f.Similarity, 1e-9)
	assert.Equal(t, 0.0, f.AttributeMatch)
	assert.Equal(t, 0.0, f.EntityMatch)
}
