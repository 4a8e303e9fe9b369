package expectsaga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sagatest/internal/effect"
	"github.com/roach88/sagatest/internal/expectation"
	"github.com/roach88/sagatest/internal/saga"
	"github.com/roach88/sagatest/internal/state"
)

func initialDog() map[string]any {
	return map[string]any{"name": "Tucker", "age": 11}
}

// dogReducer replaces the state on DOG and ages the dog on HAVE_BIRTHDAY.
// A nil state falls back to the initial dog.
func dogReducer(s, action any) any {
	d, ok := s.(map[string]any)
	if !ok {
		d = initialDog()
	}
	a, _ := action.(effect.Action)
	switch a.Type {
	case "DOG":
		return a.Payload
	case "HAVE_BIRTHDAY":
		next := make(map[string]any, len(d))
		for k, v := range d {
			next[k] = v
		}
		next["age"] = d["age"].(int) + 1
		return next
	}
	return d
}

func getDog(s any, _ ...any) any {
	if m, ok := s.(map[string]any); ok {
		return m["dog"]
	}
	return nil
}

func dogSaga(ctx context.Context, io *saga.IO) (any, error) {
	dog, err := io.Select(getDog)
	if err != nil {
		return nil, err
	}
	if err := io.Put(effect.Action{Type: "DOG", Payload: dog}); err != nil {
		return nil, err
	}
	return nil, io.Put(effect.Action{Type: "HAVE_BIRTHDAY"})
}

func fetchUser(ctx context.Context, id string) (string, error) {
	return "", errors.New("network is disabled in tests")
}

func requireFailure(t *testing.T, err error, kind string) string {
	t.Helper()
	require.Error(t, err)
	var se *expectation.SagaTestError
	require.True(t, errors.As(err, &se), "expected *SagaTestError, got %T: %v", err, err)
	assert.Equal(t, kind, se.Kind)
	return se.Message
}

func TestDogSaga_AllExpectationsMet(t *testing.T) {
	res, err := New(dogSaga).
		WithReducer(dogReducer, initialDog()).
		Put(effect.Action{Type: "DOG", Payload: nil}).
		Put(effect.Action{Type: "HAVE_BIRTHDAY"}).
		HasFinalState(map[string]any{"name": "Tucker", "age": 12}).
		Run(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Effects, 3)
	assert.Equal(t, effect.KindSelect, res.Effects[0].Effect.Kind())
	assert.Equal(t, effect.KindPut, res.Effects[1].Effect.Kind())
	assert.Equal(t, effect.KindPut, res.Effects[2].Effect.Kind())
	assert.False(t, res.Stopped)
}

func TestDogSaga_UnexpectedEffectOccurred(t *testing.T) {
	_, err := New(dogSaga).
		WithReducer(dogReducer, initialDog()).
		NotPut(effect.Action{Type: "HAVE_BIRTHDAY"}).
		Run(context.Background())

	msg := requireFailure(t, err, expectation.FailEffect)
	assert.Contains(t, msg, "put expectation unmet:")
	assert.Contains(t, msg, "Not Expected")
	assert.Contains(t, msg, "HAVE_BIRTHDAY")
}

func TestDogSaga_MissingEffectListsOthers(t *testing.T) {
	_, err := New(dogSaga).
		WithReducer(dogReducer, initialDog()).
		Put(effect.Action{Type: "HAVE_BIRTHDAY"}).
		Put(effect.Action{Type: "WALK"}).
		Run(context.Background())

	msg := requireFailure(t, err, expectation.FailEffect)
	assert.Contains(t, msg, "Expected\n--------\n")
	assert.Contains(t, msg, "WALK")
	assert.Contains(t, msg, "Actual:\n------\n1. ")
	assert.Contains(t, msg, `"DOG"`, "unconsumed puts are listed")
	assert.NotContains(t, msg, "HAVE_BIRTHDAY", "consumed puts are not listed")
}

func TestReturnValueMismatch(t *testing.T) {
	_, err := New(func(ctx context.Context, io *saga.IO) (any, error) {
		return 43, nil
	}).
		Returns(42).
		Run(context.Background())

	msg := requireFailure(t, err, expectation.FailReturn)
	assert.Contains(t, msg, "Expected to return:")
	assert.Contains(t, msg, "42")
	assert.Contains(t, msg, "But returned instead:")
	assert.Contains(t, msg, "43")
}

func TestReturnValue(t *testing.T) {
	res := New(func(ctx context.Context, io *saga.IO) (any, error) {
		return 42, nil
	}).
		Returns(42).
		NotReturns(43).
		Assert(t)

	assert.Equal(t, 42, res.ReturnValue)
}

func TestFailFastInRegistrationOrder(t *testing.T) {
	_, err := New(dogSaga).
		WithReducer(dogReducer, initialDog()).
		HasFinalState("wrong").
		Put(effect.Action{Type: "NEVER"}).
		Run(context.Background())

	requireFailure(t, err, expectation.FailStoreState)
}

func TestDuplicateExpectationNeedsDuplicateEffect(t *testing.T) {
	_, err := New(dogSaga).
		WithReducer(dogReducer, initialDog()).
		Put(effect.Action{Type: "HAVE_BIRTHDAY"}).
		Put(effect.Action{Type: "HAVE_BIRTHDAY"}).
		Run(context.Background())

	msg := requireFailure(t, err, expectation.FailEffect)
	assert.Contains(t, msg, "HAVE_BIRTHDAY")
}

func TestRunIsRepeatable(t *testing.T) {
	e := New(dogSaga).
		WithReducer(dogReducer, initialDog()).
		Put(effect.Action{Type: "HAVE_BIRTHDAY"}).
		HasFinalState(map[string]any{"name": "Tucker", "age": 12})

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	require.NoError(t, err, "each run records into fresh sets")
}

func TestLikeExpectations(t *testing.T) {
	s := func(ctx context.Context, io *saga.IO) (any, error) {
		if _, err := io.Select(getDog, "id-1"); err != nil {
			return nil, err
		}
		return nil, io.Put(map[string]any{
			"type":    "DOG",
			"payload": map[string]any{"name": "Tucker", "age": 11},
		})
	}

	New(s).
		PutLike(map[string]any{"type": "DOG"}).
		NotPutLike(map[string]any{"type": "CAT"}).
		SelectLike(getDog).
		Assert(t)
}

func TestSelectWithArgs(t *testing.T) {
	s := func(ctx context.Context, io *saga.IO) (any, error) {
		_, err := io.Select(getDog, "id-1")
		return nil, err
	}

	New(s).Select(getDog, "id-1").NotSelect(getDog, "id-2").Assert(t)
}

func TestProvideCall(t *testing.T) {
	s := func(ctx context.Context, io *saga.IO) (any, error) {
		return io.Call(fetchUser, "7")
	}

	res := New(s).
		ProvideCall(fetchUser, "Ada").
		Call(fetchUser, "7").
		NotCall(fetchUser, "8").
		Returns("Ada").
		Assert(t)

	assert.Equal(t, "Ada", res.ReturnValue)
}

func TestCallWithoutProviderFails(t *testing.T) {
	s := func(ctx context.Context, io *saga.IO) (any, error) {
		return io.Call(fetchUser, "7")
	}

	_, err := New(s).CallLike(fetchUser).Run(context.Background())

	require.Error(t, err)
	assert.False(t, expectation.IsSagaTestError(err), "saga failures are not expectation failures")
	assert.Contains(t, err.Error(), "network is disabled")
}

func TestProvideSelect(t *testing.T) {
	s := func(ctx context.Context, io *saga.IO) (any, error) {
		return io.Select(getDog)
	}

	New(s).
		WithState(initialDog()).
		ProvideSelect(getDog, "Rex").
		Returns("Rex").
		Assert(t)
}

func TestDispatchAndTake(t *testing.T) {
	s := func(ctx context.Context, io *saga.IO) (any, error) {
		action, err := io.Take("HAVE_BIRTHDAY")
		if err != nil {
			return nil, err
		}
		return nil, io.Put(effect.Action{Type: "CELEBRATED", Meta: action})
	}

	New(s).
		WithReducer(dogReducer, initialDog()).
		Dispatch(effect.Action{Type: "HAVE_BIRTHDAY"}).
		Take("HAVE_BIRTHDAY").
		NotTake("WALK").
		PutLike(effect.Action{Type: "CELEBRATED"}).
		HasFinalState(map[string]any{"name": "Tucker", "age": 12}).
		Assert(t)
}

func TestTakeWithoutDispatchStops(t *testing.T) {
	s := func(ctx context.Context, io *saga.IO) (any, error) {
		if _, err := io.Take("HAVE_BIRTHDAY"); err != nil {
			return nil, err
		}
		return nil, io.Put(effect.Action{Type: "CELEBRATED"})
	}

	res, err := New(s).
		Take("HAVE_BIRTHDAY").
		NotPut(effect.Action{Type: "CELEBRATED"}).
		Run(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.Contains(t, res.StopReason, "HAVE_BIRTHDAY")
}

func TestWithStore(t *testing.T) {
	live := state.New(dogReducer, initialDog())

	New(dogSaga).
		WithStore(live).
		HasFinalState(map[string]any{"name": "Tucker", "age": 12}).
		Assert(t)

	assert.Equal(t, map[string]any{"name": "Tucker", "age": 12}, live.GetState())
}

func TestWithStateSnapshot(t *testing.T) {
	s := func(ctx context.Context, io *saga.IO) (any, error) {
		return nil, io.Put(effect.Action{Type: "HAVE_BIRTHDAY"})
	}

	New(s).
		WithState(initialDog()).
		HasFinalState(initialDog()).
		Assert(t)
}

func TestWithTimeoutStops(t *testing.T) {
	s := func(ctx context.Context, io *saga.IO) (any, error) {
		<-ctx.Done()
		return nil, io.Put(effect.Action{Type: "LATE"})
	}

	res, err := New(s).
		WithTimeout(10 * time.Millisecond).
		NotPut(effect.Action{Type: "LATE"}).
		Run(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Stopped)
}

func TestHasLikeGeneric(t *testing.T) {
	New(dogSaga).
		WithReducer(dogReducer, initialDog()).
		HasLike(effect.NewPut(effect.Action{Type: "HAVE_BIRTHDAY"})).
		NotHas(effect.NewTake("*")).
		NotHasLike(effect.NewPut(effect.Action{Type: "CAT"})).
		Has(effect.NewSelect(getDog)).
		Assert(t)
}

func addSaga(ctx context.Context, io *saga.IO) (any, error) {
	return nil, io.Put(effect.Action{
		Type:    "ADD",
		Payload: map[string]any{"ids": []any{1, 2, 3}, "count": 0},
	})
}

func TestPutLikeWithPartialList(t *testing.T) {
	New(addSaga).
		PutLike(effect.Action{Type: "ADD", Payload: map[string]any{"ids": []any{1, 2}}}).
		Assert(t)

	New(addSaga).
		PutLike(effect.Action{Type: "ADD", Payload: map[string]any{"ids": []any{3, 1}}}).
		Assert(t)

	_, err := New(addSaga).
		PutLike(effect.Action{Type: "ADD", Payload: map[string]any{"ids": []any{4}}}).
		Run(context.Background())
	requireFailure(t, err, expectation.FailEffect)
}

func TestPutLikeZeroValues(t *testing.T) {
	// A zero struct field matches anything.
	New(addSaga).PutLike(effect.Action{Type: "ADD"}).Assert(t)

	// A map entry asserts the zero value.
	New(addSaga).
		PutLike(effect.Action{Type: "ADD", Payload: map[string]any{"count": 0}}).
		Assert(t)

	_, err := New(addSaga).
		PutLike(effect.Action{Type: "ADD", Payload: map[string]any{"count": 1}}).
		Run(context.Background())
	requireFailure(t, err, expectation.FailEffect)
}
