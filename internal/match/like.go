package match

import (
	"reflect"
)

// Like reports whether actual contains everything expected describes.
//
// The comparison recurses through the expected value:
//   - maps: every expected key must exist in actual with a Like value
//   - structs of the same type: every non-zero expected field must be Like
//     the actual field; zero fields are treated as absent, so a zero value
//     can only be asserted through a map
//   - slices and arrays: every expected element is Like a distinct actual
//     element, in any order; actual may hold extra elements
//   - pointers and interfaces: compared through their targets
//   - everything else falls back to Equal
//
// A nil expected value only matches a nil actual value.
func Like(actual, expected any) bool {
	if expected == nil {
		return isNil(actual)
	}
	if actual == nil {
		return false
	}
	return like(reflect.ValueOf(actual), reflect.ValueOf(expected))
}

func like(actual, expected reflect.Value) bool {
	actual = unwrap(actual)
	expected = unwrap(expected)

	if !expected.IsValid() {
		return !actual.IsValid()
	}
	if !actual.IsValid() {
		return false
	}

	switch expected.Kind() {
	case reflect.Map:
		return likeMap(actual, expected)
	case reflect.Struct:
		return likeStruct(actual, expected)
	case reflect.Slice, reflect.Array:
		return likeList(actual, expected)
	}

	return leafEqual(actual, expected)
}

func likeMap(actual, expected reflect.Value) bool {
	if actual.Kind() != reflect.Map {
		return false
	}
	if !expected.Type().Key().AssignableTo(actual.Type().Key()) {
		return false
	}
	iter := expected.MapRange()
	for iter.Next() {
		got := actual.MapIndex(iter.Key())
		if !got.IsValid() {
			return false
		}
		if !like(got, iter.Value()) {
			return false
		}
	}
	return true
}

func likeStruct(actual, expected reflect.Value) bool {
	if actual.Type() != expected.Type() {
		return false
	}
	for i := 0; i < expected.NumField(); i++ {
		field := expected.Field(i)
		if field.IsZero() {
			continue
		}
		if !like(actual.Field(i), field) {
			return false
		}
	}
	return true
}

func likeList(actual, expected reflect.Value) bool {
	if actual.Kind() != reflect.Slice && actual.Kind() != reflect.Array {
		return false
	}
	if actual.Len() < expected.Len() {
		return false
	}
	used := make([]bool, actual.Len())
	for i := 0; i < expected.Len(); i++ {
		if !claim(actual, expected.Index(i), used) {
			return false
		}
	}
	return true
}

// claim marks the first unused actual element Like want.
func claim(actual, want reflect.Value, used []bool) bool {
	for j := 0; j < actual.Len(); j++ {
		if used[j] {
			continue
		}
		if like(actual.Index(j), want) {
			used[j] = true
			return true
		}
	}
	return false
}

// unwrap follows interfaces and pointers down to a concrete value.
// Returns the zero Value for nil.
func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// leafEqual compares scalar values. Values reached through unexported
// fields cannot be converted back to interfaces, so they are compared by
// kind instead.
func leafEqual(actual, expected reflect.Value) bool {
	if actual.CanInterface() && expected.CanInterface() {
		return Equal(actual.Interface(), expected.Interface())
	}
	if actual.Type() != expected.Type() {
		return false
	}
	switch expected.Kind() {
	case reflect.Bool:
		return actual.Bool() == expected.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return actual.Int() == expected.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return actual.Uint() == expected.Uint()
	case reflect.Float32, reflect.Float64:
		return actual.Float() == expected.Float()
	case reflect.Complex64, reflect.Complex128:
		return actual.Complex() == expected.Complex()
	case reflect.String:
		return actual.String() == expected.String()
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return actual.Pointer() == expected.Pointer()
	}
	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
