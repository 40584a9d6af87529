package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verity-mem/verity/internal/domain"
)

type LedgerStore struct {
	db *pgxpool.Pool
}

func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

const ledgerColumns = `id, slot, status, type, fact_a, fact_b, resolution_method, chosen_fact_id, user_confirmation, trust_delta, similarity, opened_at, resolved_at`

func (s *LedgerStore) Create(ctx context.Context, e *domain.LedgerEntry) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO ledger_entries (id, slot, status, type, fact_a, fact_b, trust_delta, similarity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING opened_at`,
		e.ID, e.Slot, e.Status, e.Type, e.FactA, e.FactB, e.Drift.TrustDelta, e.Drift.Similarity,
	).Scan(&e.OpenedAt)
}

func (s *LedgerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := s.db.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Slot, &e.Status, &e.Type, &e.FactA, &e.FactB, &e.ResolutionMethod, &e.ChosenFactID, &e.UserConfirmation, &e.Drift.TrustDelta, &e.Drift.Similarity, &e.OpenedAt, &e.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *LedgerStore) ListByStatus(ctx context.Context, status domain.LedgerStatus) ([]domain.LedgerEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+ledgerColumns+`
		 FROM ledger_entries WHERE status = $1
		 ORDER BY opened_at ASC`,
		status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

func (s *LedgerStore) ListBySlot(ctx context.Context, slot string) ([]domain.LedgerEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+ledgerColumns+`
		 FROM ledger_entries WHERE slot = $1
		 ORDER BY opened_at ASC`,
		slot,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

// Resolve closes an entry only if it is still open; a raced or repeated
// call reports ErrNotFound so callers can reject it.
func (s *LedgerStore) Resolve(ctx context.Context, id uuid.UUID, method domain.ResolutionMethod, chosen *uuid.UUID, confirmation string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE ledger_entries
		 SET status = $2, resolution_method = $3, chosen_fact_id = $4, user_confirmation = $5, resolved_at = NOW()
		 WHERE id = $1 AND status = $6`,
		id, domain.LedgerResolved, method, chosen, confirmation, domain.LedgerOpen,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *LedgerStore) OpenSlots(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT slot FROM ledger_entries WHERE status = $1`,
		domain.LedgerOpen,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func scanLedgerEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.Slot, &e.Status, &e.Type, &e.FactA, &e.FactB, &e.ResolutionMethod, &e.ChosenFactID, &e.UserConfirmation, &e.Drift.TrustDelta, &e.Drift.Similarity, &e.OpenedAt, &e.ResolvedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
