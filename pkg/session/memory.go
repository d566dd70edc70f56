package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. It is suitable for
// development and tests; production deployments should use RedisStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*State
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*State),
	}
}

// GetOrCreate returns the existing State or stores a fresh one.
func (m *MemoryStore) GetOrCreate(ctx context.Context, sessionID string, channel Channel, handle string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	if st, ok := m.sessions[sessionID]; ok {
		return st.Clone(), nil
	}

	st := NewState(sessionID, channel, handle)
	m.sessions[sessionID] = st.Clone()
	return st, nil
}

// Get retrieves the State for sessionID.
func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	st, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return st.Clone(), nil
}

// Persist replaces the stored State for sessionID.
func (m *MemoryStore) Persist(ctx context.Context, sessionID string, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if _, ok := m.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	m.sessions[sessionID] = state.Clone()
	return nil
}

// Close releases the store. Further calls return ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.sessions = make(map[string]*State)
	return nil
}
