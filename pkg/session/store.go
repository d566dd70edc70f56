package session

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("session store is closed")
)

// Store owns the session-id to State mapping.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetOrCreate returns the existing State for sessionID, or stores and
	// returns a fresh one (stage greeting, empty log and symptom set) with
	// the supplied channel and identity handle. An existing session's
	// accumulated fields are never overwritten.
	GetOrCreate(ctx context.Context, sessionID string, channel Channel, handle string) (*State, error)

	// Get retrieves the State for sessionID.
	// Returns ErrSessionNotFound if the session was never created.
	Get(ctx context.Context, sessionID string) (*State, error)

	// Persist replaces the stored State for sessionID.
	// Returns ErrSessionNotFound if the session was never created; a
	// persist without a prior GetOrCreate is a lifecycle bug upstream.
	Persist(ctx context.Context, sessionID string, state *State) error

	// Close releases any resources held by the store.
	Close() error
}
