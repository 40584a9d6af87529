package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/store"
)

// mockFactStore implements domain.FactStore for testing.
type mockFactStore struct {
	mu    sync.Mutex
	seq   int
	facts map[uuid.UUID]*domain.Fact
	order map[uuid.UUID]int
}

func newMockFactStore() *mockFactStore {
	return &mockFactStore{
		facts: make(map[uuid.UUID]*domain.Fact),
		order: make(map[uuid.UUID]int),
	}
}

func (m *mockFactStore) Create(ctx context.Context, f *domain.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	cp := *f
	m.facts[f.ID] = &cp
	m.seq++
	m.order[f.ID] = m.seq
	return nil
}

func (m *mockFactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *mockFactStore) GetCurrent(ctx context.Context, slot string) ([]domain.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Fact
	for _, f := range m.facts {
		if f.Slot == slot && f.IsCurrent {
			out = append(out, *f)
		}
	}
	m.sortByOrder(out)
	return out, nil
}

func (m *mockFactStore) GetAllCurrent(ctx context.Context) ([]domain.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Fact
	for _, f := range m.facts {
		if f.IsCurrent {
			out = append(out, *f)
		}
	}
	m.sortByOrder(out)
	return out, nil
}

func (m *mockFactStore) GetHistory(ctx context.Context, slot string) ([]domain.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Fact
	for _, f := range m.facts {
		if f.Slot == slot {
			out = append(out, *f)
		}
	}
	m.sortByOrder(out)
	return out, nil
}

func (m *mockFactStore) RefreshTimestamp(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facts[id]
	if !ok {
		return store.ErrNotFound
	}
	f.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockFactStore) Supersede(ctx context.Context, oldID, newID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.facts[oldID]
	if !ok {
		return store.ErrNotFound
	}
	old.IsCurrent = false
	old.SupersededBy = &newID
	old.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockFactStore) Deprecate(ctx context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facts[id]
	if !ok {
		return store.ErrNotFound
	}
	f.IsCurrent = false
	f.DeprecatedReason = reason
	f.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockFactStore) MakeCurrent(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facts[id]
	if !ok {
		return store.ErrNotFound
	}
	f.IsCurrent = true
	f.DeprecatedReason = ""
	f.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockFactStore) sortByOrder(facts []domain.Fact) {
	sort.Slice(facts, func(i, j int) bool {
		return m.order[facts[i].ID] < m.order[facts[j].ID]
	})
}

// mockLedgerStore implements domain.LedgerStore for testing.
type mockLedgerStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*domain.LedgerEntry
}

func newMockLedgerStore() *mockLedgerStore {
	return &mockLedgerStore{entries: make(map[uuid.UUID]*domain.LedgerEntry)}
}

func (m *mockLedgerStore) Create(ctx context.Context, e *domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.OpenedAt = time.Now().UTC()
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *mockLedgerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockLedgerStore) ListByStatus(ctx context.Context, status domain.LedgerStatus) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range m.entries {
		if e.Status == status {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockLedgerStore) ListBySlot(ctx context.Context, slot string) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range m.entries {
		if e.Slot == slot {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockLedgerStore) Resolve(ctx context.Context, id uuid.UUID, method domain.ResolutionMethod, chosen *uuid.UUID, confirmation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Status != domain.LedgerOpen {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	e.Status = domain.LedgerResolved
	e.ResolutionMethod = &method
	e.ChosenFactID = chosen
	e.UserConfirmation = confirmation
	e.ResolvedAt = &now
	return nil
}

func (m *mockLedgerStore) OpenSlots(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.entries {
		if e.Status == domain.LedgerOpen && !seen[e.Slot] {
			seen[e.Slot] = true
			out = append(out, e.Slot)
		}
	}
	return out, nil
}

// mockModelStore implements domain.ModelStore for testing.
type mockModelStore struct {
	mu      sync.Mutex
	model   *domain.ModelSnapshot
	saveErr error
}

func (m *mockModelStore) Save(ctx context.Context, snap *domain.ModelSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *snap
	m.model = &cp
	return nil
}

func (m *mockModelStore) Load(ctx context.Context) (*domain.ModelSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model == nil {
		return nil, store.ErrNotFound
	}
	cp := *m.model
	return &cp, nil
}

// mockFeedbackStore implements domain.FeedbackStore for testing.
type mockFeedbackStore struct {
	mu      sync.Mutex
	samples []domain.FeedbackSample
}

func (m *mockFeedbackStore) Create(ctx context.Context, s *domain.FeedbackSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = time.Now().UTC()
	m.samples = append(m.samples, *s)
	return nil
}

func (m *mockFeedbackStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples), nil
}

func (m *mockFeedbackStore) List(ctx context.Context, limit int) ([]domain.FeedbackSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.FeedbackSample, len(m.samples))
	copy(out, m.samples)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
