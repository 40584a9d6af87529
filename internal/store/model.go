package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verity-mem/verity/internal/domain"
)

// ModelStore persists the single active calibration model. Save always
// replaces the previous snapshot; history is not kept.
type ModelStore struct {
	db *pgxpool.Pool
}

func NewModelStore(db *pgxpool.Pool) *ModelStore {
	return &ModelStore{db: db}
}

func (s *ModelStore) Save(ctx context.Context, snap *domain.ModelSnapshot) error {
	blob, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO calibration_models (id, snapshot, updated_at)
		 VALUES (1, $1, NOW())
		 ON CONFLICT (id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = NOW()`,
		blob,
	)
	return err
}

func (s *ModelStore) Load(ctx context.Context) (*domain.ModelSnapshot, error) {
	var blob []byte
	err := s.db.QueryRow(ctx,
		`SELECT snapshot FROM calibration_models WHERE id = 1`,
	).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	snap := &domain.ModelSnapshot{}
	if err := json.Unmarshal(blob, snap); err != nil {
		return nil, err
	}
	return snap, nil
}
