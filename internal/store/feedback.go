package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verity-mem/verity/internal/domain"
)

// FeedbackStore buffers labeled calibration feedback for retraining.
type FeedbackStore struct {
	db *pgxpool.Pool
}

func NewFeedbackStore(db *pgxpool.Pool) *FeedbackStore {
	return &FeedbackStore{db: db}
}

func (s *FeedbackStore) Create(ctx context.Context, sample *domain.FeedbackSample) error {
	features, err := json.Marshal(sample.Features)
	if err != nil {
		return err
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO calibration_feedback (id, features, confirmed)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		sample.ID, features, sample.Confirmed,
	).Scan(&sample.CreatedAt)
}

func (s *FeedbackStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM calibration_feedback`).Scan(&count)
	return count, err
}

// List returns samples oldest first; limit <= 0 means all.
func (s *FeedbackStore) List(ctx context.Context, limit int) ([]domain.FeedbackSample, error) {
	query := `SELECT id, features, confirmed, created_at FROM calibration_feedback ORDER BY created_at ASC`
	var rows pgx.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.db.Query(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.FeedbackSample
	for rows.Next() {
		var sample domain.FeedbackSample
		var features []byte
		if err := rows.Scan(&sample.ID, &features, &sample.Confirmed, &sample.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(features, &sample.Features); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}
