package memory

import (
	"context"
	"sync"

	"lorekeeper-backend/domain/core/valueobjects"
)

// TimelineStore is an in-memory timeline hierarchy store
type TimelineStore struct {
	mu          sync.RWMutex
	hierarchies map[string]*valueobjects.TimelineHierarchy
}

// NewTimelineStore creates an empty timeline store
func NewTimelineStore() *TimelineStore {
	return &TimelineStore{
		hierarchies: make(map[string]*valueobjects.TimelineHierarchy),
	}
}

// GetHierarchy retrieves a user's timeline scaffolding. A user without one
// gets nil, not an error; anchoring is optional.
func (s *TimelineStore) GetHierarchy(ctx context.Context, userID string) (*valueobjects.TimelineHierarchy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hierarchies[userID], nil
}

// PutHierarchy stores a user's timeline scaffolding
func (s *TimelineStore) PutHierarchy(userID string, hierarchy *valueobjects.TimelineHierarchy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hierarchies[userID] = hierarchy
}
