// Package saga runs sagas and records the effects they yield.
//
// A saga is an ordinary Go function that performs its side effects through
// an *IO instead of directly:
//
//	func fetchDog(ctx context.Context, io *saga.IO) (any, error) {
//	    dog, err := io.Select(getDog)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return nil, io.Put(effect.Action{Type: "DOG", Payload: dog})
//	}
//
// Every effect passed to IO is recorded before it is resolved: appended to
// the ordered trace and added to the record set of its kind. The runner is
// strictly sequential; the saga runs in the caller's goroutine.
//
// # Stopping
//
// A saga that waits for an action nobody dispatched, or whose context is
// cancelled, is forcibly stopped: IO returns ErrStopped from then on and the
// run finishes with Outcome.Stopped set. Stopping is not a failure; the
// recorded effects are still available for expectations.
package saga

import (
	"context"
	"errors"

	"github.com/roach88/sagatest/internal/effect"
)

// ErrStopped is returned by IO once the run has been forcibly stopped.
var ErrStopped = errors.New("saga stopped")

// Saga is a function driven by the runner.
type Saga func(ctx context.Context, io *IO) (any, error)

// Store is the store a run puts actions into and selects from.
type Store interface {
	GetState() any
	Dispatch(action any)
}

// Provider supplies a static result for an effect instead of resolving it.
// ok=false defers to the next provider or to normal resolution.
type Provider func(e effect.Effect) (value any, ok bool)

// IO is the saga's handle for yielding effects.
type IO struct {
	ctx context.Context
	run *run
}

// Do yields e and returns its result.
func (io *IO) Do(e effect.Effect) (any, error) {
	return io.run.yield(io.ctx, e)
}

// Put dispatches action to the store.
func (io *IO) Put(action any) error {
	_, err := io.Do(effect.NewPut(action))
	return err
}

// Select returns selector applied to the current state and args.
func (io *IO) Select(selector effect.Selector, args ...any) (any, error) {
	return io.Do(effect.NewSelect(selector, args...))
}

// Call invokes fn with args and returns its first result.
// A trailing error result is returned as the error.
func (io *IO) Call(fn any, args ...any) (any, error) {
	return io.Do(effect.NewCall(fn, args...))
}

// Take waits for a dispatched action matching pattern and returns it.
func (io *IO) Take(pattern any) (any, error) {
	return io.Do(effect.NewTake(pattern))
}
