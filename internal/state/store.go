// Package state provides a minimal reducer-driven state container.
//
// A Store holds one state value. Dispatch runs the reducer with the current
// state and the action and replaces the state with the result, then
// notifies subscribers. It is the external store collaborator that sagas put
// actions into and read from with select.
package state

import (
	"sync"
)

// Reducer computes the next state from the current state and an action.
// The reducer receives a nil state when the store holds none; it is
// expected to substitute its own initial state in that case.
type Reducer func(state any, action any) any

// Listener is notified after every dispatch.
type Listener func()

// Store is a reducer-driven state container.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
// Listeners run outside the lock.
type Store struct {
	mu        sync.Mutex
	reducer   Reducer
	state     any
	listeners []subscription
	nextID    int
}

type subscription struct {
	id int
	fn Listener
}

// New creates a store. If initial is nil, the reducer is invoked once with
// a nil state and a nil action to obtain the initial state.
func New(reducer Reducer, initial any) *Store {
	if reducer == nil {
		reducer = func(state, _ any) any { return state }
	}
	if initial == nil {
		initial = reducer(nil, nil)
	}
	return &Store{
		reducer: reducer,
		state:   initial,
	}
}

// GetState returns the current state.
func (s *Store) GetState() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies action through the reducer.
func (s *Store) Dispatch(action any) {
	s.mu.Lock()
	s.state = s.reducer(s.state, action)
	listeners := make([]subscription, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn()
	}
}

// Subscribe registers l to run after every dispatch.
// The returned function removes the subscription.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscription{id: id, fn: l})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}
