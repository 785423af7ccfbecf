package store

import (
	"context"
	"sync"

	"github.com/m3rciful/bloodlife/internal/donor"
)

// MemStore is an in-memory Store used by tests and local development.
type MemStore struct {
	mu       sync.Mutex
	profiles map[string]donor.Profile
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{profiles: make(map[string]donor.Profile)}
}

// Load implements Store.
func (s *MemStore) Load(_ context.Context) (map[string]donor.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]donor.Profile, len(s.profiles))
	for id, p := range s.profiles {
		out[id] = p
	}
	return out, nil
}

// Save implements Store.
func (s *MemStore) Save(_ context.Context, snapshot map[string]donor.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = make(map[string]donor.Profile, len(snapshot))
	for id, p := range snapshot {
		s.profiles[id] = p
	}
	return nil
}

// Get implements Store.
func (s *MemStore) Get(_ context.Context, id string) (donor.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return donor.Profile{}, donor.ErrNotRegistered
	}
	return p, nil
}

// Upsert implements Store.
func (s *MemStore) Upsert(_ context.Context, p donor.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
	return nil
}

// FilterAvailable implements Store.
func (s *MemStore) FilterAvailable(_ context.Context) ([]donor.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []donor.Profile
	for _, p := range s.profiles {
		if p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}

// Count implements Store.
func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles), nil
}
