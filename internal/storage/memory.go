package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultMaxSessions bounds the store when no limit is configured.
const DefaultMaxSessions = 8

// MemoryStore implements Store with an in-process map. It is bounded:
// inserting beyond the limit evicts the oldest session first.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	limit    int
}

// NewMemoryStore creates a store holding at most limit sessions.
// Non-positive limits fall back to DefaultMaxSessions.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		limit:    limit,
	}
}

// PutSession inserts or replaces a session, evicting the oldest one
// when the store is full.
func (m *MemoryStore) PutSession(_ context.Context, s *Session) error {
	if s == nil {
		return errors.New("session is nil")
	}
	if s.ID == "" {
		return errors.New("session has no ID")
	}

	copied := *s

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; !exists && len(m.sessions) >= m.limit {
		m.evictOldest()
	}
	m.sessions[s.ID] = &copied
	return nil
}

// GetSession retrieves a session by ID.
func (m *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	copied := *s
	return &copied, nil
}

// DeleteSession removes a session; unknown IDs are a no-op.
func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// ListSessions returns listing info for every session, oldest first
// (ties broken by ID for a stable order).
func (m *MemoryStore) ListSessions(_ context.Context) ([]SessionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// evictOldest removes the session with the earliest creation time.
// Callers must hold the write lock.
func (m *MemoryStore) evictOldest() {
	var oldestID string
	for id, s := range m.sessions {
		if oldestID == "" {
			oldestID = id
			continue
		}
		oldest := m.sessions[oldestID]
		if s.CreatedAt.Before(oldest.CreatedAt) ||
			(s.CreatedAt.Equal(oldest.CreatedAt) && id < oldestID) {
			oldestID = id
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
	}
}

// Ensure MemoryStore implements Store interface
var _ Store = (*MemoryStore)(nil)
