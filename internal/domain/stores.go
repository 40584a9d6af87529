package domain

import (
	"context"

	"github.com/google/uuid"
)

// FactStore owns fact rows. Mutations are row-level; the service layer
// serializes the classify+write sequence per slot.
type FactStore interface {
	Create(ctx context.Context, f *Fact) error
	GetByID(ctx context.Context, id uuid.UUID) (*Fact, error)
	// GetCurrent returns every is_current row for the slot. Single-valued
	// slots yield at most one unless a PRESERVE resolution widened them.
	GetCurrent(ctx context.Context, slot string) ([]Fact, error)
	GetAllCurrent(ctx context.Context) ([]Fact, error)
	GetHistory(ctx context.Context, slot string) ([]Fact, error)
	// RefreshTimestamp bumps updated_at for a same-value restatement.
	RefreshTimestamp(ctx context.Context, id uuid.UUID) error
	// Supersede flips the old row off-current and links its successor.
	Supersede(ctx context.Context, oldID, newID uuid.UUID) error
	// Deprecate flips a row off-current without a successor.
	Deprecate(ctx context.Context, id uuid.UUID, reason string) error
	MakeCurrent(ctx context.Context, id uuid.UUID) error
}

// LedgerStore owns ledger entries. Resolve must be conditional on
// status=open so a second resolution of the same entry fails rather
// than silently re-applying.
type LedgerStore interface {
	Create(ctx context.Context, e *LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*LedgerEntry, error)
	ListByStatus(ctx context.Context, status LedgerStatus) ([]LedgerEntry, error)
	ListBySlot(ctx context.Context, slot string) ([]LedgerEntry, error)
	Resolve(ctx context.Context, id uuid.UUID, method ResolutionMethod, chosen *uuid.UUID, confirmation string) error
	// OpenSlots returns the distinct slots with at least one open entry.
	OpenSlots(ctx context.Context) ([]string, error)
}

// ModelStore persists the single calibration-model blob.
type ModelStore interface {
	Save(ctx context.Context, m *ModelSnapshot) error
	Load(ctx context.Context) (*ModelSnapshot, error)
}

// FeedbackStore buffers calibration feedback across restarts.
type FeedbackStore interface {
	Create(ctx context.Context, s *FeedbackSample) error
	Count(ctx context.Context) (int, error)
	// List returns samples newest-last; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]FeedbackSample, error)
}
