package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/verity-mem/verity/internal/domain"
)

type FactStore struct {
	db *pgxpool.Pool
}

func NewFactStore(db *pgxpool.Pool) *FactStore {
	return &FactStore{db: db}
}

const factColumns = `id, slot, value, normalized_value, trust, source, domains, temporal_status, temporal_period, is_current, superseded_by, deprecated_reason, created_at, updated_at`

func (s *FactStore) Create(ctx context.Context, f *domain.Fact) error {
	var embedding *pgvector.Vector
	if len(f.Embedding) > 0 {
		v := pgvector.NewVector(f.Embedding)
		embedding = &v
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO facts (id, slot, value, normalized_value, trust, source, domains, temporal_status, temporal_period, embedding, is_current, superseded_by, deprecated_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING created_at, updated_at`,
		f.ID, f.Slot, f.Value, f.NormalizedValue, f.Trust, f.Source, f.Domains, f.TemporalStatus, f.TemporalPeriod, embedding, f.IsCurrent, f.SupersededBy, f.DeprecatedReason,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
}

func (s *FactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fact, error) {
	f := &domain.Fact{}
	var embedding *pgvector.Vector
	err := s.db.QueryRow(ctx,
		`SELECT id, slot, value, normalized_value, trust, source, domains, temporal_status, temporal_period, embedding, is_current, superseded_by, deprecated_reason, created_at, updated_at
		 FROM facts WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.Slot, &f.Value, &f.NormalizedValue, &f.Trust, &f.Source, &f.Domains, &f.TemporalStatus, &f.TemporalPeriod, &embedding, &f.IsCurrent, &f.SupersededBy, &f.DeprecatedReason, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if embedding != nil {
		f.Embedding = embedding.Slice()
	}
	return f, nil
}

func (s *FactStore) GetCurrent(ctx context.Context, slot string) ([]domain.Fact, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+factColumns+`
		 FROM facts WHERE slot = $1 AND is_current = TRUE
		 ORDER BY created_at ASC`,
		slot,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFacts(rows)
}

func (s *FactStore) GetAllCurrent(ctx context.Context) ([]domain.Fact, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+factColumns+`
		 FROM facts WHERE is_current = TRUE
		 ORDER BY slot ASC, created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFacts(rows)
}

func (s *FactStore) GetHistory(ctx context.Context, slot string) ([]domain.Fact, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+factColumns+`
		 FROM facts WHERE slot = $1
		 ORDER BY created_at ASC`,
		slot,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFacts(rows)
}

func (s *FactStore) RefreshTimestamp(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE facts SET updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *FactStore) Supersede(ctx context.Context, oldID, newID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE facts SET is_current = FALSE, superseded_by = $2, updated_at = NOW() WHERE id = $1`,
		oldID, newID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *FactStore) Deprecate(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE facts SET is_current = FALSE, deprecated_reason = $2, updated_at = NOW() WHERE id = $1`,
		id, reason,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *FactStore) MakeCurrent(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE facts SET is_current = TRUE, deprecated_reason = '', updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFacts(rows pgx.Rows) ([]domain.Fact, error) {
	var facts []domain.Fact
	for rows.Next() {
		var f domain.Fact
		if err := rows.Scan(&f.ID, &f.Slot, &f.Value, &f.NormalizedValue, &f.Trust, &f.Source, &f.Domains, &f.TemporalStatus, &f.TemporalPeriod, &f.IsCurrent, &f.SupersededBy, &f.DeprecatedReason, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
