package session

import (
	"context"
	"sync"
)

// MemoryStore is the in-process Store. Handles do not survive a restart,
// which is acceptable: clients fall back to token-only authentication.
//
// A user may hold several live handles at once (one per device); logout
// revokes only the handle it was called with.
type MemoryStore struct {
	mu      sync.RWMutex
	handles map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{handles: make(map[string]string)}
}

func (s *MemoryStore) Set(ctx context.Context, handle, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.handles[handle] = email
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, handle string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	email, ok := s.handles[handle]
	s.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	return email, nil
}

func (s *MemoryStore) Delete(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.handles, handle)
	s.mu.Unlock()
	return nil
}
