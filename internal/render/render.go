// Package render turns effects and arbitrary values into readable,
// deterministic text for failure messages.
//
// Nothing in this package panics on odd input: a value that cannot be
// rendered structurally degrades to a %#v dump so the assertion failure
// that asked for the rendering is never masked.
package render

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/roach88/sagatest/internal/effect"
)

// DefaultDepth bounds nested rendering in failure messages.
const DefaultDepth = 3

// Inspect renders v with nesting limited to depth levels.
// Map keys are sorted and pointer addresses omitted so output is stable
// across runs. A depth <= 0 means unlimited.
func Inspect(v any, depth int) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("%#v", v)
		}
	}()

	cfg := spew.ConfigState{
		Indent:                  "  ",
		MaxDepth:                depth,
		SortKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		DisableMethods:          true,
	}
	return strings.TrimRight(cfg.Sdump(v), "\n")
}

// FuncName returns the fully-qualified name of a function value, or
// "<nil>" / "<not a function>" for other input.
func FuncName(fn any) string {
	if fn == nil {
		return "<nil>"
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return "<not a function>"
	}
	if v.IsNil() {
		return "<nil>"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "<anonymous>"
	}
	return f.Name()
}

// Effect renders an effect descriptor. The layout depends on the kind:
//
//	put:    the action
//	select: "selector: <name>" and "args: <args>"
//	call:   "fn: <name>" and "args: <args>"
//	take:   "pattern: <pattern>"
//
// Unknown variants fall back to Inspect.
func Effect(e effect.Effect) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("%#v", e)
		}
	}()

	switch x := e.(type) {
	case nil:
		return "<nil>"
	case effect.Put:
		return Inspect(x.Action, DefaultDepth)
	case effect.Select:
		return fmt.Sprintf("selector: %s\nargs: %s", nameOr(x.Name, x.Selector), renderArgs(x.Args))
	case effect.Call:
		return fmt.Sprintf("fn: %s\nargs: %s", nameOr(x.Name, x.Fn), renderArgs(x.Args))
	case effect.Take:
		return "pattern: " + renderPattern(x.Pattern)
	}
	return Inspect(e, DefaultDepth)
}

func nameOr(name string, fn any) string {
	if name != "" {
		return name
	}
	return FuncName(fn)
}

func renderArgs(args []any) string {
	if len(args) == 0 {
		return "[]"
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Inspect(a, DefaultDepth)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func renderPattern(p any) string {
	switch v := p.(type) {
	case nil:
		return "*"
	case string:
		return v
	case []string:
		return "[" + strings.Join(v, ", ") + "]"
	case func(any) bool:
		return FuncName(v)
	}
	return Inspect(p, DefaultDepth)
}
