package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/bloodlife/internal/donor"
)

// PGStore keeps one row per donor with the profile as a jsonb column.
// Upsert is a single INSERT ... ON CONFLICT statement, so concurrent commits
// are serialized by the database rather than by a process-local lock.
type PGStore struct {
	db *sqlx.DB
}

// NewPGStore wraps an already connected sqlx database.
func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

type donorRow struct {
	ID      string `db:"id"`
	Profile []byte `db:"profile"`
}

// Load implements Store.
func (s *PGStore) Load(ctx context.Context) (map[string]donor.Profile, error) {
	var rows []donorRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, profile FROM donors`); err != nil {
		return nil, fmt.Errorf("%w: select donors: %v", ErrUnavailable, err)
	}
	snapshot := make(map[string]donor.Profile, len(rows))
	for _, r := range rows {
		var p donor.Profile
		if err := json.Unmarshal(r.Profile, &p); err != nil {
			return nil, fmt.Errorf("%w: decode donor %s: %v", ErrUnavailable, r.ID, err)
		}
		snapshot[r.ID] = p
	}
	return snapshot, nil
}

// Save implements Store by replacing the whole table in one transaction.
func (s *PGStore) Save(ctx context.Context, snapshot map[string]donor.Profile) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM donors`); err != nil {
		return fmt.Errorf("%w: clear donors: %v", ErrUnavailable, err)
	}
	for id, p := range snapshot {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("%w: encode donor %s: %v", ErrUnavailable, id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO donors (id, profile) VALUES ($1, $2)`, id, data); err != nil {
			return fmt.Errorf("%w: insert donor %s: %v", ErrUnavailable, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrUnavailable, err)
	}
	return nil
}

// Get implements Store.
func (s *PGStore) Get(ctx context.Context, id string) (donor.Profile, error) {
	var row donorRow
	err := s.db.GetContext(ctx, &row, `SELECT id, profile FROM donors WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return donor.Profile{}, donor.ErrNotRegistered
	}
	if err != nil {
		return donor.Profile{}, fmt.Errorf("%w: select donor %s: %v", ErrUnavailable, id, err)
	}
	var p donor.Profile
	if err := json.Unmarshal(row.Profile, &p); err != nil {
		return donor.Profile{}, fmt.Errorf("%w: decode donor %s: %v", ErrUnavailable, id, err)
	}
	return p, nil
}

// Upsert implements Store.
func (s *PGStore) Upsert(ctx context.Context, p donor.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode donor %s: %v", ErrUnavailable, p.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO donors (id, profile) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET profile = EXCLUDED.profile`,
		p.ID, data)
	if err != nil {
		return fmt.Errorf("%w: upsert donor %s: %v", ErrUnavailable, p.ID, err)
	}
	return nil
}

// FilterAvailable implements Store. Availability lives inside the jsonb
// profile, so the filter is pushed down to the database.
func (s *PGStore) FilterAvailable(ctx context.Context) ([]donor.Profile, error) {
	var rows []donorRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, profile FROM donors WHERE (profile->>'available')::boolean`)
	if err != nil {
		return nil, fmt.Errorf("%w: select available: %v", ErrUnavailable, err)
	}
	out := make([]donor.Profile, 0, len(rows))
	for _, r := range rows {
		var p donor.Profile
		if err := json.Unmarshal(r.Profile, &p); err != nil {
			return nil, fmt.Errorf("%w: decode donor %s: %v", ErrUnavailable, r.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Count implements Store.
func (s *PGStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM donors`); err != nil {
		return 0, fmt.Errorf("%w: count donors: %v", ErrUnavailable, err)
	}
	return n, nil
}
