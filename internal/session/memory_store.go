package session

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu        sync.Mutex
	states    map[string]State
	grace     map[string]time.Time
	redirects map[string]string
	nextGen   uint64
	now       func() time.Time
}

// NewMemoryStore builds an in-memory session store for development and testing.
func NewMemoryStore() Store {
	return &memoryStore{
		states:    make(map[string]State),
		grace:     make(map[string]time.Time),
		redirects: make(map[string]string),
		now:       time.Now,
	}
}

// NewMemoryStoreWithClock builds a memory store with an injectable clock so
// tests can advance past the grace window without sleeping.
func NewMemoryStoreWithClock(now func() time.Time) Store {
	s := NewMemoryStore().(*memoryStore)
	s.now = now
	return s
}

func (s *memoryStore) Create(_ context.Context, id, userID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGen++
	state := State{
		UserID:     userID,
		Verified:   false,
		Generation: s.nextGen,
		CreatedAt:  s.now().UTC(),
	}
	s.states[id] = state
	return state, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[id]
	if !ok {
		return State{}, ErrNotFound
	}
	return state, nil
}

func (s *memoryStore) MarkVerified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[id]
	if !ok {
		return ErrNotFound
	}
	state.Verified = true
	s.states[id] = state
	return nil
}

func (s *memoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
	delete(s.grace, id)
	delete(s.redirects, id)
	return nil
}

func (s *memoryStore) SetGraceMarker(_ context.Context, id string, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grace[id] = s.now().Add(window)
	return nil
}

func (s *memoryStore) HasGraceMarker(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.grace[id]
	if !ok {
		return false, nil
	}
	if s.now().After(deadline) {
		delete(s.grace, id)
		return false, nil
	}
	return true, nil
}

func (s *memoryStore) RecordRedirect(_ context.Context, id, path, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	marker := path + "\x00" + state
	if s.redirects[id] == marker {
		return false, nil
	}
	s.redirects[id] = marker
	return true, nil
}
