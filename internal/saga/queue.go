package saga

import "sync"

// actionQueue is a FIFO of actions dispatched from outside the saga.
//
// Takes consume from the front. Actions that do not match a take still pass
// through the store, the same way an action channel delivers every action
// but only wakes the takers interested in it.
type actionQueue struct {
	mu      sync.Mutex
	actions []any
}

func newActionQueue(actions ...any) *actionQueue {
	q := &actionQueue{actions: make([]any, 0, len(actions))}
	q.actions = append(q.actions, actions...)
	return q
}

// Enqueue adds an action to the back of the queue.
func (q *actionQueue) Enqueue(action any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.actions = append(q.actions, action)
}

// TryDequeue removes and returns the front action.
// Returns (nil, false) if the queue is empty.
func (q *actionQueue) TryDequeue() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return nil, false
	}
	a := q.actions[0]
	q.actions[0] = nil
	q.actions = q.actions[1:]
	return a, true
}

// Len returns the number of queued actions.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}
