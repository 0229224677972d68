package conversion

import (
	"errors"
	"sort"
	"sync"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// Sessions is the registry of open sessions.
type Sessions struct {
	mu    sync.RWMutex
	items map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{items: make(map[string]*Session)}
}

// Add registers s.
func (r *Sessions) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = s
}

// Get returns the session with id.
func (r *Sessions) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove unregisters and returns the session with id.
func (r *Sessions) Remove(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(r.items, id)
	return s, nil
}

// List returns all sessions, oldest first.
func (r *Sessions) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Len returns the number of sessions.
func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
