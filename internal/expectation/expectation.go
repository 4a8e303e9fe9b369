// Package expectation checks a finished saga run against what the test
// author expected.
//
// Expectations are small immutable values (Effect, Return, StoreState)
// built by the New* factories. They are evaluated after the saga settles by
// a single dispatcher, Evaluator, against a ThunkArgs context:
//
//	exps := []expectation.Expectation{
//	    expectation.NewEffect(expectation.EffectArgs{...}),
//	    expectation.NewReturn(42, true),
//	}
//	err := expectation.NewEvaluator(logger).Evaluate(exps, args)
//
// Evaluation is fail-fast: the first unmet expectation stops the pass and
// its *SagaTestError is returned unchanged.
//
// Effect expectations are destructive. A matching recorded effect is
// removed from its record set, so one recorded effect satisfies at most one
// expectation. Writing the same expectation twice asserts the effect
// happened at least twice.
package expectation

import (
	"fmt"

	"github.com/roach88/sagatest/internal/arrayset"
	"github.com/roach88/sagatest/internal/effect"
)

// StateReader is the query side of an external store.
type StateReader interface {
	GetState() any
}

// ThunkArgs is the context handed to every expectation at check time.
type ThunkArgs struct {
	// StoreState is the final state snapshot of the run.
	StoreState any

	// Store is the live store the run was attached to, if any. When set,
	// store-state expectations read from it instead of StoreState.
	Store StateReader

	// ReturnValue is the saga's resolved return value.
	ReturnValue any
}

// Expectation is a deferred check. It is a sealed interface implemented by
// *Effect, *Return and *StoreState.
type Expectation interface {
	// Describe returns a one-line summary for logs.
	Describe() string

	expectationMarker()
}

// EffectArgs configures an effect expectation.
type EffectArgs struct {
	// EffectName is the user-facing name used in messages (e.g. "put").
	EffectName string

	// Expected is the descriptor to look for.
	Expected effect.Effect

	// StoreKey is the kind of the record set being searched.
	StoreKey effect.Kind

	// Like selects partial matching on the extracted shape.
	Like bool

	// Extract maps a recorded effect to its comparable shape. Defaults to
	// effect.Extractor(StoreKey).
	Extract effect.ExtractFunc

	// Set holds the recorded effects of kind StoreKey.
	Set *arrayset.Set[effect.Effect]

	// Present selects polarity: true asserts the effect occurred, false
	// asserts it did not.
	Present bool
}

// Effect asserts presence or absence of a recorded effect.
type Effect struct {
	args EffectArgs
}

// NewEffect creates an effect expectation.
func NewEffect(args EffectArgs) *Effect {
	if args.Extract == nil {
		args.Extract = effect.Extractor(args.StoreKey)
	}
	if args.EffectName == "" {
		args.EffectName = string(args.StoreKey)
	}
	return &Effect{args: args}
}

// Args returns the configuration the expectation was built with.
func (e *Effect) Args() EffectArgs { return e.args }

// Describe implements Expectation.
func (e *Effect) Describe() string {
	return fmt.Sprintf("%s like=%t present=%t", e.args.EffectName, e.args.Like, e.args.Present)
}

func (*Effect) expectationMarker() {}

// Return asserts the saga's return value.
type Return struct {
	Value   any
	Present bool
}

// NewReturn creates a return-value expectation. expected=false asserts the
// saga did not return value.
func NewReturn(value any, expected bool) *Return {
	return &Return{Value: value, Present: expected}
}

// Describe implements Expectation.
func (r *Return) Describe() string {
	return fmt.Sprintf("return present=%t", r.Present)
}

func (*Return) expectationMarker() {}

// StoreState asserts the final store state.
type StoreState struct {
	State   any
	Present bool
}

// NewStoreState creates a store-state expectation. expected=false asserts
// the store did not end in state.
func NewStoreState(state any, expected bool) *StoreState {
	return &StoreState{State: state, Present: expected}
}

// Describe implements Expectation.
func (s *StoreState) Describe() string {
	return fmt.Sprintf("store_state present=%t", s.Present)
}

func (*StoreState) expectationMarker() {}
