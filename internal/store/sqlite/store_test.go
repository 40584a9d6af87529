package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newFact(slot, value, normalized string) *domain.Fact {
	return &domain.Fact{
		ID:              uuid.New(),
		Slot:            slot,
		Value:           value,
		NormalizedValue: normalized,
		Trust:           0.9,
		Source:          domain.SourceUserStated,
		Domains:         []string{"general"},
		TemporalStatus:  domain.TemporalActive,
		IsCurrent:       true,
	}
}

func TestFactLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	f := newFact("employer", "Microsoft", "microsoft")
	f.Embedding = []float32{0.1, 0.2, 0.3}
	require.NoError(t, s.Create(ctx, f))
	assert.False(t, f.CreatedAt.IsZero())

	got, err := s.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Value, got.Value)
	assert.Equal(t, []string{"general"}, got.Domains)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Embedding)
	assert.True(t, got.IsCurrent)

	current, err := s.GetCurrent(ctx, "employer")
	require.NoError(t, err)
	require.Len(t, current, 1)

	// Supersede flips the old row off-current and links the successor.
	next := newFact("employer", "Amazon", "amazon")
	require.NoError(t, s.Create(ctx, next))
	require.NoError(t, s.Supersede(ctx, f.ID, next.ID))

	old, err := s.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.False(t, old.IsCurrent)
	require.NotNil(t, old.SupersededBy)
	assert.Equal(t, next.ID, *old.SupersededBy)

	history, err := s.GetHistory(ctx, "employer")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	// Deprecate then restore.
	require.NoError(t, s.Deprecate(ctx, next.ID, "overridden"))
	dep, err := s.GetByID(ctx, next.ID)
	require.NoError(t, err)
	assert.False(t, dep.IsCurrent)
	assert.Equal(t, "overridden", dep.DeprecatedReason)

	require.NoError(t, s.MakeCurrent(ctx, next.ID))
	back, err := s.GetByID(ctx, next.ID)
	require.NoError(t, err)
	assert.True(t, back.IsCurrent)
	assert.Empty(t, back.DeprecatedReason)
}

func TestFactNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Deprecate(ctx, uuid.New(), "x"), store.ErrNotFound)
	assert.ErrorIs(t, s.RefreshTimestamp(ctx, uuid.New()), store.ErrNotFound)
}

func TestLedgerLifecycle(t *testing.T) {
	s := openTestStore(t)
	ledger := s.Ledger()
	ctx := context.Background()

	a := newFact("employer", "Microsoft", "microsoft")
	b := newFact("employer", "Amazon", "amazon")
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Create(ctx, b))

	entry := &domain.LedgerEntry{
		ID:     uuid.New(),
		Slot:   "employer",
		Status: domain.LedgerOpen,
		Type:   domain.ContradictionTrue,
		FactA:  a.ID,
		FactB:  b.ID,
		Drift:  domain.DriftMetrics{TrustDelta: -0.05, Similarity: 0.5},
	}
	require.NoError(t, ledger.Create(ctx, entry))

	got, err := ledger.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerOpen, got.Status)
	assert.Nil(t, got.ResolutionMethod)
	assert.InDelta(t, -0.05, got.Drift.TrustDelta, 1e-9)

	slots, err := ledger.OpenSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"employer"}, slots)

	chosen := b.ID
	require.NoError(t, ledger.Resolve(ctx, entry.ID, domain.ResolutionOverride, &chosen, "picked Amazon"))

	resolved, err := ledger.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerResolved, resolved.Status)
	require.NotNil(t, resolved.ResolutionMethod)
	assert.Equal(t, domain.ResolutionOverride, *resolved.ResolutionMethod)
	require.NotNil(t, resolved.ChosenFactID)
	assert.Equal(t, b.ID, *resolved.ChosenFactID)
	assert.NotNil(t, resolved.ResolvedAt)

	// A second resolve on the same entry must be rejected.
	assert.ErrorIs(t, ledger.Resolve(ctx, entry.ID, domain.ResolutionPreserve, nil, ""), store.ErrNotFound)

	slots, err = ledger.OpenSlots(ctx)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestModelRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	snap := &domain.ModelSnapshot{Trained: true, Samples: 42, Bias: 0.25}
	snap.Weights[0] = 1.5
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.Trained)
	assert.Equal(t, 42, got.Samples)
	assert.Equal(t, 1.5, got.Weights[0])

	// Save replaces, never appends.
	snap.Samples = 100
	require.NoError(t, s.Save(ctx, snap))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Samples)
}

func TestFeedbackRoundtrip(t *testing.T) {
	s := openTestStore(t)
	fb := s.Feedback()
	ctx := context.Background()

	count, err := fb.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 0; i < 3; i++ {
		features := domain.ValidationFeatures{Similarity: 0.5, Recency: 1}
		features.SetAction(domain.ActionUpdate)
		sample := &domain.FeedbackSample{ID: uuid.New(), Features: features, Confirmed: i%2 == 0}
		require.NoError(t, fb.Create(ctx, sample))
	}

	count, err = fb.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	samples, err := fb.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, 0.5, samples[0].Features.Similarity)
	assert.Equal(t, 1.0, samples[0].Features.ActionUpdate)

	limited, err := fb.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
