package memory

import (
	"context"
	"sort"
	"sync"

	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	"lorekeeper-backend/pkg/errors"
)

// AtomStore is an in-memory atom store, used in development and tests
type AtomStore struct {
	mu    sync.RWMutex
	atoms map[string][]*entities.NarrativeAtom // keyed by userID
	ids   map[valueobjects.AtomID]bool
}

// NewAtomStore creates an empty atom store
func NewAtomStore() *AtomStore {
	return &AtomStore{
		atoms: make(map[string][]*entities.NarrativeAtom),
		ids:   make(map[valueobjects.AtomID]bool),
	}
}

// GetAtoms retrieves every atom recorded for a user, oldest first
func (s *AtomStore) GetAtoms(ctx context.Context, userID string) ([]*entities.NarrativeAtom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.atoms[userID]
	out := make([]*entities.NarrativeAtom, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp().Before(out[j].Timestamp())
	})
	return out, nil
}

// SaveAtom persists an atom. Atoms are immutable; saving an existing ID is
// a conflict.
func (s *AtomStore) SaveAtom(ctx context.Context, atom *entities.NarrativeAtom) error {
	if atom == nil {
		return errors.NewValidationError("atom cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids[atom.ID()] {
		return errors.NewConflictError("atom " + atom.ID().String() + " already exists")
	}
	s.ids[atom.ID()] = true
	s.atoms[atom.UserID()] = append(s.atoms[atom.UserID()], atom)
	return nil
}
