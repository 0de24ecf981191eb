package memory

import (
	"context"
	"sync"

	"lorekeeper-backend/domain/core/entities"
	"lorekeeper-backend/domain/core/valueobjects"
	"lorekeeper-backend/pkg/errors"
)

// BiographyStore is an in-memory biography store
type BiographyStore struct {
	mu   sync.RWMutex
	bios map[valueobjects.BiographyID]*entities.Biography
	// version root each stored biography is currently indexed under
	roots map[valueobjects.BiographyID]valueobjects.BiographyID
	// insertion order per version root, oldest first
	versions map[valueobjects.BiographyID][]valueobjects.BiographyID
}

// NewBiographyStore creates an empty biography store
func NewBiographyStore() *BiographyStore {
	return &BiographyStore{
		bios:     make(map[valueobjects.BiographyID]*entities.Biography),
		roots:    make(map[valueobjects.BiographyID]valueobjects.BiographyID),
		versions: make(map[valueobjects.BiographyID][]valueobjects.BiographyID),
	}
}

// Save persists an assembled biography. Re-saving after the biography was
// linked to another version root moves it under that root.
func (s *BiographyStore) Save(ctx context.Context, bio *entities.Biography) error {
	if bio == nil {
		return errors.NewValidationError("biography cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	root := bio.BaseID()
	if oldRoot, indexed := s.roots[bio.ID()]; indexed && oldRoot != root {
		s.versions[oldRoot] = removeID(s.versions[oldRoot], bio.ID())
	}
	if oldRoot, indexed := s.roots[bio.ID()]; !indexed || oldRoot != root {
		s.versions[root] = append(s.versions[root], bio.ID())
	}
	s.roots[bio.ID()] = root
	s.bios[bio.ID()] = bio
	return nil
}

// GetByID retrieves a biography
func (s *BiographyStore) GetByID(ctx context.Context, id valueobjects.BiographyID) (*entities.Biography, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bio, ok := s.bios[id]
	if !ok {
		return nil, errors.NewNotFoundError("biography " + string(id))
	}
	return bio, nil
}

// GetVersions retrieves every biography sharing a version root, oldest first
func (s *BiographyStore) GetVersions(ctx context.Context, baseID valueobjects.BiographyID) ([]*entities.Biography, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.versions[baseID]
	out := make([]*entities.Biography, 0, len(ids))
	for _, id := range ids {
		if bio, ok := s.bios[id]; ok {
			out = append(out, bio)
		}
	}
	return out, nil
}

func removeID(ids []valueobjects.BiographyID, id valueobjects.BiographyID) []valueobjects.BiographyID {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
