package state

import "sync"

// Store serializes every state change through Reduce and fans the result
// out to subscribers.
type Store struct {
	mu    sync.RWMutex
	state AppState
	subs  map[int]chan AppState
	next  int
}

// NewStore creates a store holding initial.
func NewStore(initial AppState) *Store {
	return &Store{
		state: initial,
		subs:  make(map[int]chan AppState),
	}
}

// Dispatch applies a and returns the resulting state.
func (s *Store) Dispatch(a Action) AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	for _, ch := range s.subs {
		publish(ch, s.state)
	}
	return s.state
}

// State returns the current state.
func (s *Store) State() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns a channel that always holds the most recent state not
// yet received. Slow readers skip intermediate states. The returned func
// unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan AppState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	ch := make(chan AppState, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// publish replaces any pending value. Callers hold s.mu so there is a single
// sender per channel.
func publish(ch chan AppState, st AppState) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- st
}
