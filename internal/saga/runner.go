package saga

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sagatest/internal/effect"
)

// Options configures a Runner.
type Options struct {
	// Store receives puts and answers selects. Optional: without a store,
	// puts are only recorded and selectors see a nil state.
	Store Store

	// Dispatched are actions delivered to the saga's takes, in order.
	Dispatched []any

	// Providers are consulted, in order, before resolving select and call
	// effects.
	Providers []Provider

	// Logger receives run diagnostics. Defaults to a discard logger.
	Logger *slog.Logger
}

// Outcome is the result of a run.
type Outcome struct {
	// ReturnValue is what the saga returned (nil if it was stopped).
	ReturnValue any

	// FinalState is the store state after the run, or nil without a store.
	FinalState any

	// Stopped is true if the run was forcibly stopped.
	Stopped bool

	// StopReason explains a forced stop.
	StopReason string

	// Recording holds the yielded effects.
	Recording *Recording
}

// Runner drives sagas.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{opts: opts, logger: logger}
}

// Run executes s to completion or until it is stopped.
//
// Returns an error only if the saga itself failed (returned a non-stop
// error). The outcome is returned in every case so callers can inspect what
// was recorded before the failure.
func (r *Runner) Run(ctx context.Context, s Saga) (*Outcome, error) {
	rn := &run{
		store:     r.opts.Store,
		providers: r.opts.Providers,
		queue:     newActionQueue(r.opts.Dispatched...),
		clock:     NewClock(),
		recording: NewRecording(),
		logger:    r.logger,
	}

	value, err := s(ctx, &IO{ctx: ctx, run: rn})

	// Actions nobody took still reach the store.
	rn.drain()

	out := &Outcome{
		Recording: rn.recording,
		Stopped:   rn.stopped,
	}
	if rn.store != nil {
		out.FinalState = rn.store.GetState()
	}

	if rn.stopped {
		out.StopReason = rn.stopReason
		r.logger.Warn("saga stopped before completion",
			"reason", rn.stopReason,
			"effects", rn.clock.Current(),
		)
		if err != nil && !errors.Is(err, ErrStopped) {
			return out, fmt.Errorf("saga failed after stop: %w", err)
		}
		return out, nil
	}

	if err != nil {
		return out, fmt.Errorf("saga failed: %w", err)
	}

	out.ReturnValue = value
	r.logger.Debug("saga completed", "effects", rn.clock.Current())
	return out, nil
}

// run is the mutable state of a single Run.
type run struct {
	store      Store
	providers  []Provider
	queue      *actionQueue
	clock      *Clock
	recording  *Recording
	logger     *slog.Logger
	stopped    bool
	stopReason string
}

func (rn *run) stop(reason string) error {
	if !rn.stopped {
		rn.stopped = true
		rn.stopReason = reason
	}
	return ErrStopped
}

// yield records e and resolves it.
func (rn *run) yield(ctx context.Context, e effect.Effect) (any, error) {
	if rn.stopped {
		return nil, ErrStopped
	}
	if e == nil {
		return nil, fmt.Errorf("nil effect")
	}
	if err := ctx.Err(); err != nil {
		return nil, rn.stop(err.Error())
	}

	seq := rn.clock.Next()
	rn.recording.Add(seq, e)
	rn.logger.Debug("effect", "seq", seq, "kind", e.Kind())

	return rn.resolve(ctx, e)
}

func (rn *run) resolve(ctx context.Context, e effect.Effect) (any, error) {
	switch x := e.(type) {
	case effect.Put:
		if rn.store != nil {
			rn.store.Dispatch(x.Action)
		}
		return nil, nil

	case effect.Select:
		if v, ok := rn.provide(e); ok {
			return v, nil
		}
		if x.Selector == nil {
			return nil, fmt.Errorf("select: nil selector")
		}
		return x.Selector(rn.state(), x.Args...), nil

	case effect.Call:
		if v, ok := rn.provide(e); ok {
			return v, nil
		}
		return invoke(ctx, x.Fn, x.Args)

	case effect.Take:
		return rn.take(x.Pattern)
	}

	return nil, fmt.Errorf("unsupported effect %T", e)
}

func (rn *run) take(pattern any) (any, error) {
	for {
		action, ok := rn.queue.TryDequeue()
		if !ok {
			return nil, rn.stop(fmt.Sprintf("take %v: no matching action dispatched", pattern))
		}
		if rn.store != nil {
			rn.store.Dispatch(action)
		}
		matched, err := effect.MatchesPattern(pattern, action)
		if err != nil {
			return nil, fmt.Errorf("take: %w", err)
		}
		if matched {
			return action, nil
		}
	}
}

func (rn *run) drain() {
	for {
		action, ok := rn.queue.TryDequeue()
		if !ok {
			return
		}
		if rn.store != nil {
			rn.store.Dispatch(action)
		}
	}
}

func (rn *run) provide(e effect.Effect) (any, bool) {
	for _, p := range rn.providers {
		if v, ok := p(e); ok {
			return v, true
		}
	}
	return nil, false
}

func (rn *run) state() any {
	if rn.store == nil {
		return nil
	}
	return rn.store.GetState()
}
