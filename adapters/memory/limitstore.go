package memory

import (
	"context"
	"sync"

	"github.com/gatewaylabs/creditmeter/domain/limits"
	"github.com/gatewaylabs/creditmeter/ports"
)

// LimitStore is an in-memory implementation of ports.LimitStore.
type LimitStore struct {
	mu   sync.RWMutex
	rows map[string]limits.Limit // by id
}

// NewLimitStore creates a new in-memory limit store.
func NewLimitStore() *LimitStore {
	return &LimitStore{rows: make(map[string]limits.Limit)}
}

// GetForUser returns the active user-scoped row, if any.
func (s *LimitStore) GetForUser(ctx context.Context, userID string) (limits.Limit, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.rows {
		if l.Active && l.UserID == userID && userID != "" {
			return l, true, nil
		}
	}
	return limits.Limit{}, false, nil
}

// GetGlobal returns the active global row, if any.
func (s *LimitStore) GetGlobal(ctx context.Context) (limits.Limit, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.rows {
		if l.Active && l.IsGlobal() {
			return l, true, nil
		}
	}
	return limits.Limit{}, false, nil
}

// Upsert stores a row, deactivating any active row for the same scope.
func (s *LimitStore) Upsert(ctx context.Context, l limits.Limit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.Active {
		for id, other := range s.rows {
			if id != l.ID && other.Active && sameScope(other, l) {
				other.Active = false
				s.rows[id] = other
			}
		}
	}
	s.rows[l.ID] = l
	return nil
}

// Deactivate marks a row inactive. Unknown ids are a no-op.
func (s *LimitStore) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.rows[id]; ok {
		l.Active = false
		s.rows[id] = l
	}
	return nil
}

func sameScope(a, b limits.Limit) bool {
	return a.UserID == b.UserID && a.ModelID == b.ModelID && a.Provider == b.Provider
}

// Ensure interface compliance.
var _ ports.LimitStore = (*LimitStore)(nil)
