package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/store"
	"go.uber.org/zap"
)

var (
	ErrUnknownLedgerEntry = errors.New("unknown ledger entry")
	ErrAlreadyResolved    = errors.New("ledger entry already resolved")
	ErrInvalidResolution  = errors.New("invalid resolution method")
	ErrChosenFactMissing  = errors.New("override requires a chosen fact id")
	ErrChosenFactForeign  = errors.New("chosen fact is not part of this entry")
)

// ResolutionService executes OVERRIDE / PRESERVE / ASK_USER against the
// fact store and ledger. Every call is reject-if-already-applied: a
// resolved entry can never be re-resolved, and a failed call leaves no
// partial mutation behind.
type ResolutionService struct {
	facts  domain.FactStore
	ledger domain.LedgerStore
	logger *zap.Logger
	locks  *slotLocks
}

func NewResolutionService(fs domain.FactStore, ls domain.LedgerStore, logger *zap.Logger) *ResolutionService {
	return &ResolutionService{
		facts:  fs,
		ledger: ls,
		logger: logger,
		locks:  newSlotLocks(),
	}
}

// Resolve closes one ledger entry.
//
// OVERRIDE deprecates the losing fact and promotes the chosen one.
// PRESERVE keeps both facts current (the slot becomes multi-valued for
// these two values). ASK_USER records the confirmation text and closes
// the entry provisionally without touching the fact store.
func (s *ResolutionService) Resolve(ctx context.Context, ledgerID uuid.UUID, method domain.ResolutionMethod, chosenID *uuid.UUID, confirmation string) (*domain.LedgerEntry, error) {
	if !domain.ValidResolutionMethod(string(method)) {
		return nil, ErrInvalidResolution
	}

	entry, err := s.ledger.GetByID(ctx, ledgerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownLedgerEntry
		}
		return nil, err
	}
	if entry.Status != domain.LedgerOpen {
		return nil, ErrAlreadyResolved
	}

	// Resolution mutates the slot's facts, so it takes the same lock the
	// ingestion path holds. An entry resolved between the read above and
	// the lock is caught by the conditional ledger update below.
	unlock := s.locks.lock(entry.Slot)
	defer unlock()
	return s.resolveLocked(ctx, entry, method, chosenID, confirmation)
}

// resolveLocked applies the method. The caller must hold the slot lock;
// the ingestion path calls this directly for its in-lock
// auto-resolutions and inferred corrections.
func (s *ResolutionService) resolveLocked(ctx context.Context, entry *domain.LedgerEntry, method domain.ResolutionMethod, chosenID *uuid.UUID, confirmation string) (*domain.LedgerEntry, error) {
	ledgerID := entry.ID

	switch method {
	case domain.ResolutionOverride:
		if chosenID == nil {
			return nil, ErrChosenFactMissing
		}
		var loser uuid.UUID
		switch *chosenID {
		case entry.FactA:
			loser = entry.FactB
		case entry.FactB:
			loser = entry.FactA
		default:
			return nil, ErrChosenFactForeign
		}
		// Claim the entry first: the conditional resolve is the
		// serialization point, so a racing second call fails here
		// before any fact is touched.
		if err := s.ledger.Resolve(ctx, ledgerID, method, chosenID, confirmation); err != nil {
			return nil, s.mapResolveErr(err)
		}
		if err := s.facts.Deprecate(ctx, loser, "overridden"); err != nil {
			return nil, err
		}
		if err := s.facts.MakeCurrent(ctx, *chosenID); err != nil {
			return nil, err
		}

	case domain.ResolutionPreserve:
		if err := s.ledger.Resolve(ctx, ledgerID, method, nil, "additive"); err != nil {
			return nil, s.mapResolveErr(err)
		}
		for _, id := range []uuid.UUID{entry.FactA, entry.FactB} {
			if err := s.facts.MakeCurrent(ctx, id); err != nil {
				return nil, err
			}
		}

	case domain.ResolutionAskUser:
		// Provisional close; the fact store is not mutated until a
		// later statement supplies a definitive value.
		if err := s.ledger.Resolve(ctx, ledgerID, method, nil, confirmation); err != nil {
			return nil, s.mapResolveErr(err)
		}
	}

	resolved, err := s.ledger.GetByID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("contradiction resolved",
		zap.String("ledger_id", ledgerID.String()),
		zap.String("slot", entry.Slot),
		zap.String("method", string(method)))
	return resolved, nil
}

func (s *ResolutionService) mapResolveErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		// The conditional update found no open row: somebody else
		// resolved it between our read and our claim.
		return ErrAlreadyResolved
	}
	return err
}

// Entry returns one ledger entry by id.
func (s *ResolutionService) Entry(ctx context.Context, ledgerID uuid.UUID) (*domain.LedgerEntry, error) {
	entry, err := s.ledger.GetByID(ctx, ledgerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownLedgerEntry
		}
		return nil, err
	}
	return entry, nil
}

// Entries lists ledger entries, optionally filtered by status.
func (s *ResolutionService) Entries(ctx context.Context, status domain.LedgerStatus) ([]domain.LedgerEntry, error) {
	if status == "" {
		open, err := s.ledger.ListByStatus(ctx, domain.LedgerOpen)
		if err != nil {
			return nil, err
		}
		resolved, err := s.ledger.ListByStatus(ctx, domain.LedgerResolved)
		if err != nil {
			return nil, err
		}
		return append(open, resolved...), nil
	}
	return s.ledger.ListByStatus(ctx, status)
}
