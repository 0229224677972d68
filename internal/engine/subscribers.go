package engine

import "sync"

// Subscribers keeps handlers per event kind. The zero value is ready to use.
type Subscribers struct {
	mu     sync.RWMutex
	nextID uint64
	byKind map[EventKind]map[uint64]Handler
}

// Add registers h and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (s *Subscribers) Add(kind EventKind, h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byKind == nil {
		s.byKind = make(map[EventKind]map[uint64]Handler)
	}
	if s.byKind[kind] == nil {
		s.byKind[kind] = make(map[uint64]Handler)
	}
	s.nextID++
	id := s.nextID
	s.byKind[kind][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.byKind[kind], id)
			s.mu.Unlock()
		})
	}
}

// Emit delivers ev to every handler of its kind.
func (s *Subscribers) Emit(ev Event) {
	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.byKind[ev.Kind]))
	for _, h := range s.byKind[ev.Kind] {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Len returns the number of handlers registered for kind.
func (s *Subscribers) Len(kind EventKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKind[kind])
}
