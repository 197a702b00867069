package session

import (
	"context"
	"sync"
	"time"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/providers"
)

// MemoryStore keeps sessions in a process-local map. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*entities.Session
}

var _ providers.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*entities.Session),
	}
}

// Get implements providers.SessionStore.
func (s *MemoryStore) Get(ctx context.Context, id string) (*entities.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return stored.Clone(), nil
}

// Upsert implements providers.SessionStore.
func (s *MemoryStore) Upsert(ctx context.Context, session *entities.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session.Clone()
	return nil
}

// Append implements providers.SessionStore.
func (s *MemoryStore) Append(ctx context.Context, id string, now time.Time, seed []entities.Turn, turns ...entities.Turn) (*entities.Session, bool, error) {
	if id == "" {
		return nil, false, ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[id]
	if !ok {
		stored = newSession(id, now, seed)
		s.sessions[id] = stored
	}

	stored.History = append(stored.History, turns...)
	stored.LastActive = now

	return stored.Clone(), !ok, nil
}

// SweepExpired implements providers.SessionStore.
func (s *MemoryStore) SweepExpired(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, stored := range s.sessions {
		if stored.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len implements providers.SessionStore.
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions), nil
}

// Close implements providers.SessionStore.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*entities.Session)
	return nil
}
