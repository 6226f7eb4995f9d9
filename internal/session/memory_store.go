package session

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps sessions for the process lifetime.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[NormalizeID(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("session: cannot save nil session")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[NormalizeID(s.ID)] = s.Clone()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, NormalizeID(id))
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
