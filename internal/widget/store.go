package widget

import (
	"slices"
	"sync"
)

type subscription struct {
	id uint64
	fn func(State)
}

// Store holds the current State and fans each replacement out to subscribers.
//
// Subscribers run outside the state lock, in registration order, and see
// states in the order they were committed. A subscriber must not update the
// store synchronously; dispatch follow-up work on another goroutine.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   []subscription
	nextID uint64

	// notifyMu keeps deliveries in commit order.
	notifyMu sync.Mutex
}

// NewStore creates a Store seeded with initial.
func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every future state. The returned function
// removes it and is safe to call more than once.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool {
				return sub.id == id
			})
		})
	}
}

// Apply computes the next state from the current one and publishes it. When
// fn returns an error nothing changes, nobody is notified, and the current
// state is returned with the error.
func (s *Store) Apply(fn func(cur State) (State, error)) (State, error) {
	s.mu.Lock()
	next, err := fn(s.state)
	if err != nil {
		cur := s.state
		s.mu.Unlock()
		return cur, err
	}
	s.state = next
	subs := slices.Clone(s.subs)

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, sub := range subs {
		sub.fn(next)
	}
	return next, nil
}
