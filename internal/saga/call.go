package saga

import (
	"context"
	"fmt"
	"reflect"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// invoke calls fn reflectively with args.
//
// If fn takes a context.Context first and args does not supply it, ctx is
// passed. nil args become the zero value of the parameter type. Results:
// none -> nil; a trailing error is returned as the error; the first
// non-error result is the value. A panic inside fn becomes an error.
func invoke(ctx context.Context, fn any, args []any) (value any, err error) {
	if fn == nil {
		return nil, fmt.Errorf("call: nil function")
	}
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("call: %T is not a function", fn)
	}
	if fv.IsNil() {
		return nil, fmt.Errorf("call: nil function")
	}

	if ft.NumIn() > 0 && ft.In(0) == contextType && len(args) < ft.NumIn() {
		args = append([]any{ctx}, args...)
	}

	in, err := callArgs(ft, args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("call: panic: %v", r)
		}
	}()

	return callResults(fv.Call(in))
}

func callArgs(ft reflect.Type, args []any) ([]reflect.Value, error) {
	n := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < n-1 {
			return nil, fmt.Errorf("call: want at least %d args, got %d", n-1, len(args))
		}
	} else if len(args) != n {
		return nil, fmt.Errorf("call: want %d args, got %d", n, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= n-1 {
			pt = ft.In(n - 1).Elem()
		} else {
			pt = ft.In(i)
		}

		if a == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		av := reflect.ValueOf(a)
		switch {
		case av.Type().AssignableTo(pt):
			in[i] = av
		case av.Type().ConvertibleTo(pt) && av.Kind() == pt.Kind():
			in[i] = av.Convert(pt)
		default:
			return nil, fmt.Errorf("call: arg %d: %T is not assignable to %s", i, a, pt)
		}
	}
	return in, nil
}

func callResults(out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}

	var err error
	last := out[len(out)-1]
	if last.Type() == errorType {
		if !last.IsNil() {
			err = last.Interface().(error)
		}
		out = out[:len(out)-1]
	}

	if len(out) == 0 {
		return nil, err
	}
	return out[0].Interface(), err
}
