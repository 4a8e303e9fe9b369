package effect

import (
	"fmt"
	"reflect"
)

// ExtractFunc returns the comparable sub-shape of a recorded effect.
type ExtractFunc func(Effect) any

// SelectShape is the partial-match shape of a Select effect.
// A zero Args means "any arguments" under Like.
type SelectShape struct {
	Selector Selector
	Args     []any
}

// CallShape is the partial-match shape of a Call effect.
type CallShape struct {
	Fn   any
	Args []any
}

// Extractor returns the extraction function for kind:
//
//	put    -> the action
//	select -> SelectShape
//	call   -> CallShape
//	take   -> the pattern
//
// Extraction of an effect of a different kind yields nil, which never
// matches a non-nil expectation.
func Extractor(kind Kind) ExtractFunc {
	switch kind {
	case KindPut:
		return func(e Effect) any {
			if p, ok := e.(Put); ok {
				return p.Action
			}
			return nil
		}
	case KindSelect:
		return func(e Effect) any {
			if s, ok := e.(Select); ok {
				return SelectShape{Selector: s.Selector, Args: s.Args}
			}
			return nil
		}
	case KindCall:
		return func(e Effect) any {
			if c, ok := e.(Call); ok {
				return CallShape{Fn: c.Fn, Args: c.Args}
			}
			return nil
		}
	case KindTake:
		return func(e Effect) any {
			if t, ok := e.(Take); ok {
				return normalizePattern(t.Pattern)
			}
			return nil
		}
	}
	return func(Effect) any { return nil }
}

// Action is a conventional action value: a type tag plus optional payload.
// Sagas may dispatch any value; Action is a convenience.
type Action struct {
	Type    string
	Payload any
	Meta    any
}

// ActionTyper is implemented by action values that know their own type.
type ActionTyper interface {
	ActionType() string
}

// ActionType returns the type tag of an action, or "" if it has none.
//
// Recognised shapes: ActionTyper, Action / *Action, a map with a "type"
// string entry, or a struct with an exported string field named Type.
func ActionType(action any) string {
	switch a := action.(type) {
	case nil:
		return ""
	case ActionTyper:
		return a.ActionType()
	case Action:
		return a.Type
	case *Action:
		if a == nil {
			return ""
		}
		return a.Type
	case map[string]any:
		if t, ok := a["type"].(string); ok {
			return t
		}
		return ""
	}

	v := reflect.ValueOf(action)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Struct {
		f := v.FieldByName("Type")
		if f.IsValid() && f.Kind() == reflect.String && f.CanInterface() {
			return f.String()
		}
	}
	return ""
}

// MatchesPattern reports whether action satisfies a Take pattern.
// Returns an error for pattern values Take does not support.
func MatchesPattern(pattern, action any) (bool, error) {
	switch p := pattern.(type) {
	case nil:
		return true, nil
	case string:
		if p == "*" {
			return true, nil
		}
		return ActionType(action) == p, nil
	case []string:
		t := ActionType(action)
		for _, s := range p {
			if s == "*" || s == t {
				return true, nil
			}
		}
		return false, nil
	case func(any) bool:
		return p(action), nil
	}
	return false, fmt.Errorf("unsupported take pattern %T", pattern)
}
