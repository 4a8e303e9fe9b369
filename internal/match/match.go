// Package match compares recorded values against expected ones.
//
// Two comparisons are provided:
//
//   - Equal: deep equality. Function values are equal when they share the
//     same code pointer, so effects carrying selectors or callees can be
//     compared structurally.
//   - Like: partial (subset) equality. Every field present in expected must
//     be Like the corresponding field in actual; extra actual fields are
//     ignored.
package match

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// equalOpts configures cmp for arbitrary test values: unexported fields are
// compared and funcs are compared by code pointer instead of being unequal.
var equalOpts = cmp.Options{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmp.FilterValues(bothFuncs, cmp.Comparer(sameFunc)),
}

// Equal reports whether a and b are deeply equal.
func Equal(a, b any) bool {
	return cmp.Equal(a, b, equalOpts)
}

// Diff returns a human-readable report of the differences between expected
// and actual, or "" when they are Equal.
func Diff(expected, actual any) string {
	return cmp.Diff(expected, actual, equalOpts)
}

// SameFunc reports whether a and b are the same function value.
func SameFunc(a, b any) bool {
	if !bothFuncs(a, b) {
		return false
	}
	return sameFunc(a, b)
}

func bothFuncs(a, b any) bool {
	return isFunc(a) && isFunc(b)
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

func sameFunc(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.IsNil() || vb.IsNil() {
		return va.IsNil() && vb.IsNil()
	}
	return va.Pointer() == vb.Pointer()
}
