package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/sagatest/internal/effect"
	"github.com/roach88/sagatest/internal/expectation"
	"github.com/roach88/sagatest/internal/expectsaga"
)

// Options configures scenario execution.
type Options struct {
	// Logger receives runner and evaluator diagnostics. Defaults to a
	// discard logger.
	Logger *slog.Logger

	// DefaultTimeout applies to scenarios without their own timeout. Zero
	// means no timeout.
	DefaultTimeout time.Duration
}

// Run executes a scenario with default options.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(context.Background(), scenario, Options{})
}

// RunWithOptions executes a scenario and returns the result.
//
// Each scenario runs against a fresh store. An unmet expectation is not an
// error: it is reported in Result.Errors with Pass=false. The error return
// is reserved for scenarios that cannot run (bad script, saga failure).
func RunWithOptions(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s, err := compileSaga(scenario.Saga)
	if err != nil {
		return nil, fmt.Errorf("failed to compile saga: %w", err)
	}

	timeout := scenario.TimeoutDuration()
	if timeout == 0 {
		timeout = opts.DefaultTimeout
	}

	exp := expectsaga.New(s).
		WithLogger(logger).
		WithTimeout(timeout).
		WithReducer(BuildReducer(scenario.Reducer, scenario.InitialState), initialState(scenario))

	for _, a := range scenario.Dispatch {
		exp.Dispatch(a)
	}

	for i, e := range scenario.Expect {
		if err := addExpectation(exp, e); err != nil {
			return nil, fmt.Errorf("expect[%d]: %w", i, err)
		}
	}

	res, err := exp.Run(ctx)

	result := NewResult()
	if res != nil {
		result.Trace = res.Effects
		result.ReturnValue = res.ReturnValue
		result.FinalState = res.FinalState
		result.Stopped = res.Stopped
	}

	var se *expectation.SagaTestError
	switch {
	case errors.As(err, &se):
		result.AddError(se.Message)
	case err != nil:
		return nil, fmt.Errorf("failed to run saga: %w", err)
	}

	logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"effects", len(result.Trace),
		"stopped", result.Stopped,
	)

	return result, nil
}

// initialState returns the scenario's initial state, or nil when it has
// none so the reducer supplies it.
func initialState(s *Scenario) any {
	if s.InitialState == nil {
		return nil
	}
	return deepCopy(s.InitialState)
}

func addExpectation(exp *expectsaga.Expect, e Expectation) error {
	switch {
	case isSet(e.Put):
		action, err := decodeNode(e.Put)
		if err != nil {
			return err
		}
		addEffect(exp, effect.NewPut(action), e)
		return nil

	case e.Select != nil:
		sel := selectEffect(*e.Select)
		if e.Like {
			sel = effect.Select{Selector: SelectPath, Name: SelectorName}
		}
		addEffect(exp, sel, e)
		return nil

	case isSet(e.Take):
		p, err := decodePattern(e.Take)
		if err != nil {
			return err
		}
		addEffect(exp, effect.NewTake(p), e)
		return nil

	case isSet(e.Returns):
		v, err := decodeNode(e.Returns)
		if err != nil {
			return err
		}
		if e.Not {
			exp.NotReturns(v)
		} else {
			exp.Returns(v)
		}
		return nil

	case isSet(e.FinalState):
		v, err := decodeNode(e.FinalState)
		if err != nil {
			return err
		}
		if e.Not {
			exp.NotFinalState(v)
		} else {
			exp.HasFinalState(v)
		}
		return nil
	}
	return fmt.Errorf("empty expectation")
}

func addEffect(exp *expectsaga.Expect, ef effect.Effect, e Expectation) {
	switch {
	case e.Like && e.Not:
		exp.NotHasLike(ef)
	case e.Like:
		exp.HasLike(ef)
	case e.Not:
		exp.NotHas(ef)
	default:
		exp.Has(ef)
	}
}
