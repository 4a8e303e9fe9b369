// Package effect defines the declarative effect descriptors a saga yields.
//
// Effects are plain data: they describe a side effect (dispatch an action,
// read derived state, call a function, wait for an action) without
// performing it. The saga runner interprets them; expectations compare them.
//
// Effect is a sealed sum type. Each variant reports its Kind and has an
// explicit extraction of the sub-shape used for partial ("like") matching,
// see Extractor.
package effect

import (
	"github.com/roach88/sagatest/internal/match"
)

// Kind names an effect variant. It doubles as the key of the per-kind
// record set the runner fills.
type Kind string

// Effect kinds.
const (
	KindPut    Kind = "put"
	KindSelect Kind = "select"
	KindCall   Kind = "call"
	KindTake   Kind = "take"
)

// Kinds lists every effect kind in a stable order.
var Kinds = []Kind{KindPut, KindSelect, KindCall, KindTake}

// Effect is a sealed interface implemented by Put, Select, Call and Take.
type Effect interface {
	// Kind returns the variant's kind tag.
	Kind() Kind

	effectMarker()
}

// Selector derives a value from store state.
type Selector func(state any, args ...any) any

// Put dispatches Action to the store.
type Put struct {
	Action any
}

// Select reads derived state through Selector.
// Name is only used for rendering; it does not take part in equality.
type Select struct {
	Selector Selector
	Args     []any
	Name     string
}

// Call invokes Fn with Args. Fn may be any function value; the runner calls
// it reflectively. Name is only used for rendering.
type Call struct {
	Fn   any
	Args []any
	Name string
}

// Take waits for a dispatched action matching Pattern.
//
// Pattern is one of:
//   - "*" or nil: any action
//   - string: an action whose type (see ActionType) equals the string
//   - []string: an action whose type is any of the strings
//   - func(any) bool: an action for which the predicate returns true
type Take struct {
	Pattern any
}

func (Put) Kind() Kind    { return KindPut }
func (Select) Kind() Kind { return KindSelect }
func (Call) Kind() Kind   { return KindCall }
func (Take) Kind() Kind   { return KindTake }

func (Put) effectMarker()    {}
func (Select) effectMarker() {}
func (Call) effectMarker()   {}
func (Take) effectMarker()   {}

// NewPut creates a put effect.
func NewPut(action any) Put {
	return Put{Action: action}
}

// NewSelect creates a select effect.
func NewSelect(selector Selector, args ...any) Select {
	return Select{Selector: selector, Args: args}
}

// NewCall creates a call effect.
func NewCall(fn any, args ...any) Call {
	return Call{Fn: fn, Args: args}
}

// NewTake creates a take effect.
func NewTake(pattern any) Take {
	return Take{Pattern: pattern}
}

// Equal reports whether two effects are the same descriptor: same kind and
// deeply equal fields, with functions compared by identity. Rendering-only
// fields (Name) are ignored. Nil and empty argument lists are equal.
func Equal(a, b Effect) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch x := a.(type) {
	case Put:
		y := b.(Put)
		return match.Equal(x.Action, y.Action)
	case Select:
		y := b.(Select)
		return match.SameFunc(x.Selector, y.Selector) && argsEqual(x.Args, y.Args)
	case Call:
		y := b.(Call)
		return match.SameFunc(x.Fn, y.Fn) && argsEqual(x.Args, y.Args)
	case Take:
		y := b.(Take)
		return patternEqual(x.Pattern, y.Pattern)
	}
	return false
}

func argsEqual(a, b []any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return match.Equal(a, b)
}

func patternEqual(a, b any) bool {
	if match.SameFunc(a, b) {
		return true
	}
	return match.Equal(normalizePattern(a), normalizePattern(b))
}

// normalizePattern maps the two spellings of the wildcard onto one value.
func normalizePattern(p any) any {
	if p == nil {
		return "*"
	}
	return p
}
