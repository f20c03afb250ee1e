package repo

import (
	"context"
	"sync"

	"FunnelBot/model"
)

// MemoryStore keeps sessions for the lifetime of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*model.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*model.Session),
	}
}

func (m *MemoryStore) Get(ctx context.Context, userID int64) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, userID int64, s *model.Session) error {
	c := s.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = c
	return nil
}

// Len returns the number of users with a session.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
