// Package expectsaga is the test-facing entry point: describe what a saga
// should do, run it, and get a single failure describing the first unmet
// expectation.
//
//	_, err := expectsaga.New(dogSaga).
//	    WithReducer(dogReducer, initialDog).
//	    Put(effect.Action{Type: "HAVE_BIRTHDAY"}).
//	    HasFinalState(Dog{Name: "Tucker", Age: 12}).
//	    Run(ctx)
//
// Expectations are checked after the saga settles, in the order they were
// registered, and the run fails fast on the first one that is unmet. Effect
// expectations consume the recorded effect they match, so registering the
// same Put twice requires the saga to have put that action twice.
package expectsaga

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/roach88/sagatest/internal/effect"
	"github.com/roach88/sagatest/internal/expectation"
	"github.com/roach88/sagatest/internal/match"
	"github.com/roach88/sagatest/internal/saga"
	"github.com/roach88/sagatest/internal/state"
)

// Result summarises a run.
type Result struct {
	ReturnValue any
	FinalState  any
	Effects     []saga.Record
	Stopped     bool
	StopReason  string
}

// Expect collects configuration and expectations for a saga.
// Each call to Run re-runs the saga from scratch with fresh record sets.
type Expect struct {
	saga    saga.Saga
	logger  *slog.Logger
	timeout time.Duration

	reducer      state.Reducer
	initialState any
	liveStore    saga.Store

	dispatched []any
	providers  []saga.Provider

	wants []want
}

// want is an expectation waiting for the run's record sets.
type want struct {
	kind    wantKind
	effect  effect.Effect
	name    string
	like    bool
	present bool
	value   any
}

type wantKind int

const (
	wantEffect wantKind = iota + 1
	wantReturn
	wantStoreState
)

// New creates an Expect for s.
func New(s saga.Saga) *Expect {
	return &Expect{
		saga:   s,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger for the runner and the evaluator.
func (e *Expect) WithLogger(logger *slog.Logger) *Expect {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// WithTimeout stops the saga after d. Zero disables the timeout.
func (e *Expect) WithTimeout(d time.Duration) *Expect {
	e.timeout = d
	return e
}

// WithReducer runs the saga against a fresh store built from reducer and
// initial.
func (e *Expect) WithReducer(reducer state.Reducer, initial any) *Expect {
	e.reducer = reducer
	e.initialState = initial
	return e
}

// WithState sets the initial state. Without a reducer the state never
// changes and is the final state snapshot.
func (e *Expect) WithState(s any) *Expect {
	e.initialState = s
	return e
}

// WithStore attaches a live store. Puts are dispatched to it, selects read
// from it, and final-state expectations query it directly.
func (e *Expect) WithStore(st saga.Store) *Expect {
	e.liveStore = st
	return e
}

// Dispatch queues actions for the saga's takes. Every queued action also
// passes through the store's reducer.
func (e *Expect) Dispatch(actions ...any) *Expect {
	e.dispatched = append(e.dispatched, actions...)
	return e
}

// Provide registers a provider consulted before resolving select and call
// effects.
func (e *Expect) Provide(p saga.Provider) *Expect {
	e.providers = append(e.providers, p)
	return e
}

// ProvideCall makes every call to fn return value without invoking fn.
func (e *Expect) ProvideCall(fn any, value any) *Expect {
	return e.Provide(func(ef effect.Effect) (any, bool) {
		if c, ok := ef.(effect.Call); ok && match.SameFunc(c.Fn, fn) {
			return value, true
		}
		return nil, false
	})
}

// ProvideSelect makes every select through selector return value.
func (e *Expect) ProvideSelect(selector effect.Selector, value any) *Expect {
	return e.Provide(func(ef effect.Effect) (any, bool) {
		if s, ok := ef.(effect.Select); ok && match.SameFunc(s.Selector, selector) {
			return value, true
		}
		return nil, false
	})
}

// Has expects the saga to yield exactly ef.
func (e *Expect) Has(ef effect.Effect) *Expect {
	return e.addEffect(ef, false, true)
}

// HasLike expects the saga to yield an effect of ef's kind whose extracted
// shape contains ef's. Map keys and list elements missing from ef are
// ignored. Zero-valued struct fields in ef are ignored too, so use a map to
// assert that a field is zero.
func (e *Expect) HasLike(ef effect.Effect) *Expect {
	return e.addEffect(ef, true, true)
}

// NotHas expects the saga not to yield ef.
func (e *Expect) NotHas(ef effect.Effect) *Expect {
	return e.addEffect(ef, false, false)
}

// NotHasLike expects the saga not to yield any effect like ef.
func (e *Expect) NotHasLike(ef effect.Effect) *Expect {
	return e.addEffect(ef, true, false)
}

// Put expects the saga to put action.
func (e *Expect) Put(action any) *Expect { return e.Has(effect.NewPut(action)) }

// PutLike expects the saga to put an action containing action's fields.
// Like HasLike, a zero struct field in action matches any value.
func (e *Expect) PutLike(action any) *Expect { return e.HasLike(effect.NewPut(action)) }

// NotPut expects the saga not to put action.
func (e *Expect) NotPut(action any) *Expect { return e.NotHas(effect.NewPut(action)) }

// NotPutLike expects the saga not to put any action containing action's
// fields.
func (e *Expect) NotPutLike(action any) *Expect { return e.NotHasLike(effect.NewPut(action)) }

// Select expects the saga to select through selector with args.
func (e *Expect) Select(selector effect.Selector, args ...any) *Expect {
	return e.Has(effect.NewSelect(selector, args...))
}

// SelectLike expects the saga to select through selector with any args.
// See HasLike for the matching rules.
func (e *Expect) SelectLike(selector effect.Selector) *Expect {
	return e.HasLike(effect.NewSelect(selector))
}

// NotSelect expects the saga not to select through selector with args.
func (e *Expect) NotSelect(selector effect.Selector, args ...any) *Expect {
	return e.NotHas(effect.NewSelect(selector, args...))
}

// Call expects the saga to call fn with args.
func (e *Expect) Call(fn any, args ...any) *Expect {
	return e.Has(effect.NewCall(fn, args...))
}

// CallLike expects the saga to call fn with any args.
// See HasLike for the matching rules.
func (e *Expect) CallLike(fn any) *Expect {
	return e.HasLike(effect.NewCall(fn))
}

// NotCall expects the saga not to call fn with args.
func (e *Expect) NotCall(fn any, args ...any) *Expect {
	return e.NotHas(effect.NewCall(fn, args...))
}

// Take expects the saga to take pattern.
func (e *Expect) Take(pattern any) *Expect { return e.Has(effect.NewTake(pattern)) }

// NotTake expects the saga not to take pattern.
func (e *Expect) NotTake(pattern any) *Expect { return e.NotHas(effect.NewTake(pattern)) }

// Returns expects the saga to return value.
func (e *Expect) Returns(value any) *Expect {
	e.wants = append(e.wants, want{kind: wantReturn, value: value, present: true})
	return e
}

// NotReturns expects the saga not to return value.
func (e *Expect) NotReturns(value any) *Expect {
	e.wants = append(e.wants, want{kind: wantReturn, value: value, present: false})
	return e
}

// HasFinalState expects the store to end in s.
func (e *Expect) HasFinalState(s any) *Expect {
	e.wants = append(e.wants, want{kind: wantStoreState, value: s, present: true})
	return e
}

// NotFinalState expects the store not to end in s.
func (e *Expect) NotFinalState(s any) *Expect {
	e.wants = append(e.wants, want{kind: wantStoreState, value: s, present: false})
	return e
}

func (e *Expect) addEffect(ef effect.Effect, like, present bool) *Expect {
	e.wants = append(e.wants, want{
		kind:    wantEffect,
		effect:  ef,
		name:    string(ef.Kind()),
		like:    like,
		present: present,
	})
	return e
}

// Run executes the saga and evaluates every expectation.
//
// The returned error is a *expectation.SagaTestError for the first unmet
// expectation, or a wrapped runner error if the saga itself failed. The
// Result is returned in both cases.
func (e *Expect) Run(ctx context.Context) (*Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	st := e.store()
	runner := saga.NewRunner(saga.Options{
		Store:      st,
		Dispatched: e.dispatched,
		Providers:  e.providers,
		Logger:     e.logger,
	})

	out, err := runner.Run(ctx, e.saga)
	res := &Result{
		ReturnValue: out.ReturnValue,
		FinalState:  out.FinalState,
		Effects:     out.Recording.Trace(),
		Stopped:     out.Stopped,
		StopReason:  out.StopReason,
	}
	if st == nil {
		res.FinalState = e.initialState
	}
	if err != nil {
		return res, err
	}

	args := expectation.ThunkArgs{
		StoreState:  res.FinalState,
		ReturnValue: res.ReturnValue,
	}
	if e.liveStore != nil {
		args.Store = e.liveStore
	}

	exps := e.build(out.Recording)
	if err := expectation.NewEvaluator(e.logger).Evaluate(exps, args); err != nil {
		return res, err
	}
	return res, nil
}

// Assert runs the saga with a background context and fails t on error.
func (e *Expect) Assert(t testing.TB) *Result {
	t.Helper()
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// store returns the store for a run: the live store if attached, a fresh
// reducer store if a reducer was given, otherwise nil.
func (e *Expect) store() saga.Store {
	if e.liveStore != nil {
		return e.liveStore
	}
	if e.reducer != nil {
		return state.New(e.reducer, e.initialState)
	}
	return nil
}

// build turns the registered expectations into expectation values bound to rec.
func (e *Expect) build(rec *saga.Recording) []expectation.Expectation {
	exps := make([]expectation.Expectation, 0, len(e.wants))
	for _, s := range e.wants {
		switch s.kind {
		case wantEffect:
			kind := s.effect.Kind()
			exps = append(exps, expectation.NewEffect(expectation.EffectArgs{
				EffectName: s.name,
				Expected:   s.effect,
				StoreKey:   kind,
				Like:       s.like,
				Extract:    effect.Extractor(kind),
				Set:        rec.Set(kind),
				Present:    s.present,
			}))
		case wantReturn:
			exps = append(exps, expectation.NewReturn(s.value, s.present))
		case wantStoreState:
			exps = append(exps, expectation.NewStoreState(s.value, s.present))
		}
	}
	return exps
}
