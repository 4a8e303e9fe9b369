// Package arrayset provides an ordered multiset with find-and-remove
// semantics.
//
// A Set records values in insertion order and allows duplicates. The only
// way to take a value out is Delete or DeleteBy, which locate and remove the
// first matching element in one step. There is intentionally no separate
// "find" followed by "remove".
package arrayset

import (
	"sync"

	"github.com/roach88/sagatest/internal/match"
)

// EqualFunc reports whether two elements are equal.
type EqualFunc[T any] func(a, b T) bool

// Set is an ordered collection of values with duplicate support.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Set[T any] struct {
	mu    sync.Mutex
	items []T
	equal EqualFunc[T]
}

// New creates an empty set using equal for Has and Delete.
// If equal is nil, match.Equal is used.
func New[T any](equal EqualFunc[T]) *Set[T] {
	if equal == nil {
		equal = func(a, b T) bool { return match.Equal(a, b) }
	}
	return &Set[T]{equal: equal}
}

// Add appends v to the end of the set.
func (s *Set[T]) Add(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, v)
}

// Has reports whether an element equal to v is present.
func (s *Set[T]) Has(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(func(item T) bool { return s.equal(item, v) }) >= 0
}

// Delete removes the first element equal to v and returns it.
// Returns false if no element matches; the set is unchanged.
func (s *Set[T]) Delete(v T) (T, bool) {
	return s.DeleteBy(func(item T) bool { return s.equal(item, v) })
}

// DeleteBy removes the first element for which pred returns true and
// returns it. Returns false if no element matches; the set is unchanged.
// The relative order of the remaining elements is preserved.
func (s *Set[T]) DeleteBy(pred func(T) bool) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	i := s.indexOf(pred)
	if i < 0 {
		return zero, false
	}

	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	return removed, true
}

// Len returns the number of elements in the set.
func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Values returns a copy of the elements in insertion order.
// Mutating the returned slice does not affect the set.
func (s *Set[T]) Values() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// indexOf returns the index of the first element matching pred, or -1.
// Caller must hold s.mu.
func (s *Set[T]) indexOf(pred func(T) bool) int {
	for i, item := range s.items {
		if pred(item) {
			return i
		}
	}
	return -1
}
