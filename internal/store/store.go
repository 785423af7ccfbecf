// Package store persists donor profiles as a keyed snapshot. Two durable
// backends are provided: a single-file JSON snapshot and a Postgres table.
package store

import (
	"context"
	"errors"

	"github.com/m3rciful/bloodlife/internal/donor"
)

// ErrUnavailable indicates the backing medium could not be read or written.
// A caller seeing it must not assume the mutation was applied. It is distinct
// from an empty store, which is a valid loaded state.
var ErrUnavailable = errors.New("store: storage unavailable")

// Store is the donor snapshot contract. Upsert must behave atomically with
// respect to concurrent Upserts: a commit from one user never silently drops
// a concurrent commit from another.
type Store interface {
	// Load returns the full current snapshot. A first run yields an empty map.
	Load(ctx context.Context) (map[string]donor.Profile, error)
	// Save overwrites the entire snapshot. On failure the prior snapshot
	// remains intact.
	Save(ctx context.Context, snapshot map[string]donor.Profile) error
	// Get returns one profile or donor.ErrNotRegistered.
	Get(ctx context.Context, id string) (donor.Profile, error)
	// Upsert inserts or replaces one profile by id.
	Upsert(ctx context.Context, p donor.Profile) error
	// FilterAvailable returns all profiles with Available set. Order is
	// unspecified.
	FilterAvailable(ctx context.Context) ([]donor.Profile, error)
	// Count returns the number of stored profiles.
	Count(ctx context.Context) (int, error)
}
