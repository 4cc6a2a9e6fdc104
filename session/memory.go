package session

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process [Store] for tests and embedding. It
// applies the same compare-and-swap rotation semantics as the
// Postgres store under a single mutex.
type MemoryStore struct {
	mu        sync.Mutex
	byID      map[string]*Session
	byRefresh map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]*Session),
		byRefresh: make(map[string]string),
	}
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *s
	m.byID[s.ID] = &clone
	m.byRefresh[s.RefreshJTI] = s.ID
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MemoryStore) GetByRefreshJTI(_ context.Context, jti string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byRefresh[jti]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *m.byID[id]
	return &clone, nil
}

func (m *MemoryStore) Rotate(_ context.Context, oldRefreshJTI string, rot Rotation) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byRefresh[oldRefreshJTI]
	if !ok {
		return nil, ErrRotateConflict
	}
	s := m.byID[id]
	if s.RefreshJTI != oldRefreshJTI || !s.Active(time.Now()) {
		return nil, ErrRotateConflict
	}

	delete(m.byRefresh, oldRefreshJTI)
	s.AccessJTI = rot.AccessJTI
	s.RefreshJTI = rot.RefreshJTI
	s.ExpiresAt = rot.ExpiresAt
	s.AccessExpiresAt = rot.AccessExpiresAt
	m.byRefresh[s.RefreshJTI] = s.ID

	clone := *s
	return &clone, nil
}

func (m *MemoryStore) MarkRevoked(_ context.Context, id, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok || s.RevokedAt != nil {
		return nil
	}
	t := at
	s.RevokedAt = &t
	s.RevokedReason = reason
	return nil
}

func (m *MemoryStore) FindByFamily(_ context.Context, family string) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session
	for _, s := range m.byID {
		if s.Family == family {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}
