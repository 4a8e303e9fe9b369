package expectation

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sagatest/internal/effect"
	"github.com/roach88/sagatest/internal/match"
	"github.com/roach88/sagatest/internal/render"
)

// Evaluator dispatches expectations to their checks.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates an evaluator. A nil logger discards output.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{logger: logger}
}

// Evaluate checks exps in order and returns the first failure.
// Remaining expectations are not evaluated once one fails.
func (ev *Evaluator) Evaluate(exps []Expectation, args ThunkArgs) error {
	for i, exp := range exps {
		if err := ev.Check(exp, args); err != nil {
			ev.logger.Debug("expectation unmet",
				"index", i,
				"expectation", exp.Describe(),
			)
			return err
		}
	}
	return nil
}

// Check evaluates a single expectation.
func (ev *Evaluator) Check(exp Expectation, args ThunkArgs) error {
	switch e := exp.(type) {
	case *Effect:
		return ev.checkEffect(e)
	case *Return:
		return ev.checkReturn(e, args)
	case *StoreState:
		return ev.checkStoreState(e, args)
	case nil:
		return fmt.Errorf("nil expectation")
	}
	return fmt.Errorf("unknown expectation type %T", exp)
}

func (ev *Evaluator) checkEffect(e *Effect) error {
	a := e.args

	var deleted bool
	if a.Set != nil {
		if a.Like {
			want := a.Extract(a.Expected)
			_, deleted = a.Set.DeleteBy(func(item effect.Effect) bool {
				return match.Like(a.Extract(item), want)
			})
		} else {
			_, deleted = a.Set.Delete(a.Expected)
		}
	}

	switch {
	case deleted && !a.Present:
		msg := fmt.Sprintf("\n%s expectation unmet:\n\nNot Expected\n------------\n%s\n",
			a.EffectName, render.Effect(a.Expected))
		return &SagaTestError{Kind: FailEffect, Message: msg}

	case !deleted && a.Present:
		msg := fmt.Sprintf("\n%s expectation unmet:\n\nExpected\n--------\n%s\n",
			a.EffectName, render.Effect(a.Expected))
		msg += ReportActualEffects(a.Set, a.StoreKey, a.EffectName)
		return &SagaTestError{Kind: FailEffect, Message: msg}
	}

	return nil
}

func (ev *Evaluator) checkReturn(r *Return, args ThunkArgs) error {
	equal := match.Equal(r.Value, args.ReturnValue)

	if r.Present && !equal {
		msg := fmt.Sprintf(`
Expected to return:
-------------------
%s

But returned instead:
---------------------
%s
%s`,
			render.Inspect(r.Value, render.DefaultDepth),
			render.Inspect(args.ReturnValue, render.DefaultDepth),
			diffSection(r.Value, args.ReturnValue),
		)
		return &SagaTestError{Kind: FailReturn, Message: msg}
	}

	if !r.Present && equal {
		msg := fmt.Sprintf(`
Did not expect to return:
-------------------------
%s
`,
			render.Inspect(r.Value, render.DefaultDepth),
		)
		return &SagaTestError{Kind: FailReturn, Message: msg}
	}

	return nil
}

func (ev *Evaluator) checkStoreState(s *StoreState, args ThunkArgs) error {
	state := args.StoreState
	source := "snapshot"
	if args.Store != nil {
		state = args.Store.GetState()
		source = "store"
	}

	ev.logger.Debug("store state expectation",
		"source", source,
		"expected", render.Inspect(s.State, render.DefaultDepth),
		"actual", render.Inspect(state, render.DefaultDepth),
	)

	equal := match.Equal(s.State, state)

	if s.Present && !equal {
		msg := fmt.Sprintf(`
Expected to have final store state:
-----------------------------------
%s

But instead had final store state:
----------------------------------
%s
%s`,
			render.Inspect(s.State, render.DefaultDepth),
			render.Inspect(state, render.DefaultDepth),
			diffSection(s.State, state),
		)
		return &SagaTestError{Kind: FailStoreState, Message: msg}
	}

	if !s.Present && equal {
		msg := fmt.Sprintf(`
Expected to not have final store state:
---------------------------------------
%s
`,
			render.Inspect(s.State, render.DefaultDepth),
		)
		return &SagaTestError{Kind: FailStoreState, Message: msg}
	}

	return nil
}

// diffSection renders a (-expected +actual) diff, or "" if there is none to
// show. cmp panics on some exotic values; those just lose the section.
func diffSection(expected, actual any) (out string) {
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()

	diff := match.Diff(expected, actual)
	if diff == "" {
		return ""
	}
	return "\nDifference (-expected +actual):\n" + diff
}
