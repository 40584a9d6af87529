// Package sqlite is the embedded storage backend: the full fact,
// ledger, and calibration surface on a single local database file, for
// deployments that do not run Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/store"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	id TEXT PRIMARY KEY,
	slot TEXT NOT NULL,
	value TEXT NOT NULL,
	normalized_value TEXT NOT NULL,
	trust REAL NOT NULL,
	source TEXT NOT NULL,
	domains TEXT NOT NULL DEFAULT '[]',
	temporal_status TEXT NOT NULL,
	temporal_period TEXT NOT NULL DEFAULT '',
	embedding TEXT NOT NULL DEFAULT '',
	is_current INTEGER NOT NULL DEFAULT 1,
	superseded_by TEXT,
	deprecated_reason TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_facts_slot_current ON facts(slot, is_current);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id TEXT PRIMARY KEY,
	slot TEXT NOT NULL,
	status TEXT NOT NULL,
	type TEXT NOT NULL,
	fact_a TEXT NOT NULL,
	fact_b TEXT NOT NULL,
	resolution_method TEXT,
	chosen_fact_id TEXT,
	user_confirmation TEXT NOT NULL DEFAULT '',
	trust_delta REAL NOT NULL DEFAULT 0,
	similarity REAL NOT NULL DEFAULT 0,
	opened_at TEXT NOT NULL,
	resolved_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_ledger_slot ON ledger_entries(slot);
CREATE INDEX IF NOT EXISTS idx_ledger_status ON ledger_entries(status);

CREATE TABLE IF NOT EXISTS calibration_models (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	snapshot TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS calibration_feedback (
	id TEXT PRIMARY KEY,
	features TEXT NOT NULL,
	confirmed INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
`

// Store owns the database handle. The fact and model interfaces are
// implemented on Store itself; Ledger and Feedback return narrow views
// because their interface method names collide with the fact store's.
type Store struct {
	db *sql.DB
}

// LedgerStore adapts Store to domain.LedgerStore.
type LedgerStore struct{ s *Store }

// FeedbackStore adapts Store to domain.FeedbackStore.
type FeedbackStore struct{ s *Store }

func (s *Store) Ledger() *LedgerStore     { return &LedgerStore{s: s} }
func (s *Store) Feedback() *FeedbackStore { return &FeedbackStore{s: s} }

var (
	_ domain.FactStore     = (*Store)(nil)
	_ domain.ModelStore    = (*Store)(nil)
	_ domain.LedgerStore   = (*LedgerStore)(nil)
	_ domain.FeedbackStore = (*FeedbackStore)(nil)
)

// Open opens (or creates) the database at dsn and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// SQLite supports one writer; a single connection serialises writes
	// and avoids SQLITE_BUSY under concurrent load.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func decodeTime(v string) (time.Time, error) {
	return time.Parse(timeLayout, v)
}

// --- FactStore ---

const factColumns = `id, slot, value, normalized_value, trust, source, domains, temporal_status, temporal_period, embedding, is_current, superseded_by, deprecated_reason, created_at, updated_at`

func (s *Store) Create(ctx context.Context, f *domain.Fact) error {
	domains, err := json.Marshal(f.Domains)
	if err != nil {
		return err
	}
	embedding := ""
	if len(f.Embedding) > 0 {
		blob, err := json.Marshal(f.Embedding)
		if err != nil {
			return err
		}
		embedding = string(blob)
	}

	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	var supersededBy any
	if f.SupersededBy != nil {
		supersededBy = f.SupersededBy.String()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO facts (`+factColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID.String(), f.Slot, f.Value, f.NormalizedValue, f.Trust, string(f.Source),
		string(domains), string(f.TemporalStatus), f.TemporalPeriod, embedding,
		boolToInt(f.IsCurrent), supersededBy, f.DeprecatedReason,
		encodeTime(f.CreatedAt), encodeTime(f.UpdatedAt),
	)
	return err
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+factColumns+` FROM facts WHERE id = ?`, id.String())
	f, err := scanFact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) GetCurrent(ctx context.Context, slot string) ([]domain.Fact, error) {
	return s.queryFacts(ctx,
		`SELECT `+factColumns+` FROM facts WHERE slot = ? AND is_current = 1 ORDER BY created_at ASC`, slot)
}

func (s *Store) GetAllCurrent(ctx context.Context) ([]domain.Fact, error) {
	return s.queryFacts(ctx,
		`SELECT `+factColumns+` FROM facts WHERE is_current = 1 ORDER BY slot ASC, created_at ASC`)
}

func (s *Store) GetHistory(ctx context.Context, slot string) ([]domain.Fact, error) {
	return s.queryFacts(ctx,
		`SELECT `+factColumns+` FROM facts WHERE slot = ? ORDER BY created_at ASC`, slot)
}

func (s *Store) RefreshTimestamp(ctx context.Context, id uuid.UUID) error {
	return s.updateFact(ctx,
		`UPDATE facts SET updated_at = ? WHERE id = ?`,
		encodeTime(time.Now()), id.String())
}

func (s *Store) Supersede(ctx context.Context, oldID, newID uuid.UUID) error {
	return s.updateFact(ctx,
		`UPDATE facts SET is_current = 0, superseded_by = ?, updated_at = ? WHERE id = ?`,
		newID.String(), encodeTime(time.Now()), oldID.String())
}

func (s *Store) Deprecate(ctx context.Context, id uuid.UUID, reason string) error {
	return s.updateFact(ctx,
		`UPDATE facts SET is_current = 0, deprecated_reason = ?, updated_at = ? WHERE id = ?`,
		reason, encodeTime(time.Now()), id.String())
}

func (s *Store) MakeCurrent(ctx context.Context, id uuid.UUID) error {
	return s.updateFact(ctx,
		`UPDATE facts SET is_current = 1, deprecated_reason = '', updated_at = ? WHERE id = ?`,
		encodeTime(time.Now()), id.String())
}

func (s *Store) updateFact(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) queryFacts(ctx context.Context, query string, args ...any) ([]domain.Fact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []domain.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, *f)
	}
	return facts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFact(row rowScanner) (*domain.Fact, error) {
	var (
		f                    domain.Fact
		id, source, status   string
		domains, embedding   string
		isCurrent            int
		supersededBy         sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &f.Slot, &f.Value, &f.NormalizedValue, &f.Trust, &source,
		&domains, &status, &f.TemporalPeriod, &embedding, &isCurrent, &supersededBy,
		&f.DeprecatedReason, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if f.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	f.Source = domain.FactSource(source)
	f.TemporalStatus = domain.TemporalStatus(status)
	f.IsCurrent = isCurrent != 0
	if err := json.Unmarshal([]byte(domains), &f.Domains); err != nil {
		return nil, err
	}
	if embedding != "" {
		if err := json.Unmarshal([]byte(embedding), &f.Embedding); err != nil {
			return nil, err
		}
	}
	if supersededBy.Valid {
		parsed, err := uuid.Parse(supersededBy.String)
		if err != nil {
			return nil, err
		}
		f.SupersededBy = &parsed
	}
	if f.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if f.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- LedgerStore ---

const ledgerColumns = `id, slot, status, type, fact_a, fact_b, resolution_method, chosen_fact_id, user_confirmation, trust_delta, similarity, opened_at, resolved_at`

func (l *LedgerStore) Create(ctx context.Context, e *domain.LedgerEntry) error {
	return l.s.createEntry(ctx, e)
}

func (l *LedgerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	return l.s.getEntryByID(ctx, id)
}

func (l *LedgerStore) ListByStatus(ctx context.Context, status domain.LedgerStatus) ([]domain.LedgerEntry, error) {
	return l.s.listEntriesByStatus(ctx, status)
}

func (l *LedgerStore) ListBySlot(ctx context.Context, slot string) ([]domain.LedgerEntry, error) {
	return l.s.listEntriesBySlot(ctx, slot)
}

func (l *LedgerStore) Resolve(ctx context.Context, id uuid.UUID, method domain.ResolutionMethod, chosen *uuid.UUID, confirmation string) error {
	return l.s.resolveEntry(ctx, id, method, chosen, confirmation)
}

func (l *LedgerStore) OpenSlots(ctx context.Context) ([]string, error) {
	return l.s.openSlots(ctx)
}

func (s *Store) createEntry(ctx context.Context, e *domain.LedgerEntry) error {
	e.OpenedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, slot, status, type, fact_a, fact_b, trust_delta, similarity, opened_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Slot, string(e.Status), string(e.Type),
		e.FactA.String(), e.FactB.String(), e.Drift.TrustDelta, e.Drift.Similarity,
		encodeTime(e.OpenedAt),
	)
	return err
}

func (s *Store) getEntryByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = ?`, id.String())
	e, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *Store) listEntriesByStatus(ctx context.Context, status domain.LedgerStatus) ([]domain.LedgerEntry, error) {
	return s.queryEntries(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE status = ? ORDER BY opened_at ASC`, string(status))
}

func (s *Store) listEntriesBySlot(ctx context.Context, slot string) ([]domain.LedgerEntry, error) {
	return s.queryEntries(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE slot = ? ORDER BY opened_at ASC`, slot)
}

// resolveEntry closes an entry only if it is still open.
func (s *Store) resolveEntry(ctx context.Context, id uuid.UUID, method domain.ResolutionMethod, chosen *uuid.UUID, confirmation string) error {
	var chosenID any
	if chosen != nil {
		chosenID = chosen.String()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE ledger_entries
		 SET status = ?, resolution_method = ?, chosen_fact_id = ?, user_confirmation = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.LedgerResolved), string(method), chosenID, confirmation,
		encodeTime(time.Now()), id.String(), string(domain.LedgerOpen),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) openSlots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT slot FROM ledger_entries WHERE status = ?`, string(domain.LedgerOpen))
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

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanLedgerEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var (
		e                        domain.LedgerEntry
		id, status, typ          string
		factA, factB             string
		method, chosen, resolved sql.NullString
		openedAt                 string
	)
	if err := row.Scan(&id, &e.Slot, &status, &typ, &factA, &factB,
		&method, &chosen, &e.UserConfirmation, &e.Drift.TrustDelta, &e.Drift.Similarity,
		&openedAt, &resolved); err != nil {
		return nil, err
	}

	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if e.FactA, err = uuid.Parse(factA); err != nil {
		return nil, err
	}
	if e.FactB, err = uuid.Parse(factB); err != nil {
		return nil, err
	}
	e.Status = domain.LedgerStatus(status)
	e.Type = domain.ContradictionType(typ)
	if method.Valid {
		m := domain.ResolutionMethod(method.String)
		e.ResolutionMethod = &m
	}
	if chosen.Valid {
		parsed, err := uuid.Parse(chosen.String)
		if err != nil {
			return nil, err
		}
		e.ChosenFactID = &parsed
	}
	if e.OpenedAt, err = decodeTime(openedAt); err != nil {
		return nil, err
	}
	if resolved.Valid {
		t, err := decodeTime(resolved.String)
		if err != nil {
			return nil, err
		}
		e.ResolvedAt = &t
	}
	return &e, nil
}

// --- ModelStore ---

func (s *Store) Save(ctx context.Context, snap *domain.ModelSnapshot) error {
	blob, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO calibration_models (id, snapshot, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		string(blob), encodeTime(time.Now()),
	)
	return err
}

func (s *Store) Load(ctx context.Context) (*domain.ModelSnapshot, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM calibration_models WHERE id = 1`).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	snap := &domain.ModelSnapshot{}
	if err := json.Unmarshal([]byte(blob), snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// --- FeedbackStore ---

func (fb *FeedbackStore) Create(ctx context.Context, sample *domain.FeedbackSample) error {
	return fb.s.createSample(ctx, sample)
}

func (fb *FeedbackStore) Count(ctx context.Context) (int, error) {
	return fb.s.countSamples(ctx)
}

func (fb *FeedbackStore) List(ctx context.Context, limit int) ([]domain.FeedbackSample, error) {
	return fb.s.listSamples(ctx, limit)
}

func (s *Store) createSample(ctx context.Context, sample *domain.FeedbackSample) error {
	features, err := json.Marshal(sample.Features)
	if err != nil {
		return err
	}
	sample.CreatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO calibration_feedback (id, features, confirmed, created_at) VALUES (?, ?, ?, ?)`,
		sample.ID.String(), string(features), boolToInt(sample.Confirmed), encodeTime(sample.CreatedAt),
	)
	return err
}

func (s *Store) countSamples(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calibration_feedback`).Scan(&count)
	return count, err
}

// listSamples returns samples oldest first; limit <= 0 means all.
func (s *Store) listSamples(ctx context.Context, limit int) ([]domain.FeedbackSample, error) {
	query := `SELECT id, features, confirmed, created_at FROM calibration_feedback ORDER BY created_at ASC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.FeedbackSample
	for rows.Next() {
		var (
			sample                  domain.FeedbackSample
			id, features, createdAt string
			confirmed               int
		)
		if err := rows.Scan(&id, &features, &confirmed, &createdAt); err != nil {
			return nil, err
		}
		if sample.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &sample.Features); err != nil {
			return nil, err
		}
		sample.Confirmed = confirmed != 0
		if sample.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}
