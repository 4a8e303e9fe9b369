package harness

import (
	"maps"
	"strings"

	"github.com/roach88/sagatest/internal/effect"
	"github.com/roach88/sagatest/internal/state"
)

// BuildReducer turns declarative rules into a state.Reducer over mapping
// states. A nil state is read as a copy of initial. Actions without a
// matching rule leave the state unchanged. The input state is never
// mutated.
func BuildReducer(rules []ReducerRule, initial map[string]any) state.Reducer {
	byType := make(map[string][]ReducerRule, len(rules))
	for _, r := range rules {
		byType[r.On] = append(byType[r.On], r)
	}

	return func(s, action any) any {
		if s == nil {
			s = deepCopy(initial)
		}
		for _, r := range byType[effect.ActionType(action)] {
			s = apply(r, s, action)
		}
		return s
	}
}

func apply(r ReducerRule, s, action any) any {
	switch r.Op {
	case OpReplaceWithPayload:
		return deepCopy(payload(action))

	case OpMergePayload:
		m, ok := s.(map[string]any)
		if !ok {
			return s
		}
		p, ok := payload(action).(map[string]any)
		if !ok {
			return s
		}
		next := maps.Clone(m)
		for k, v := range p {
			next[k] = deepCopy(v)
		}
		return next

	case OpIncrement:
		by := 1
		if r.By != nil {
			by = *r.By
		}
		return updatePath(s, r.Path, func(old any) any { return add(old, by) })

	case OpSet:
		return updatePath(s, r.Path, func(any) any { return deepCopy(r.Value) })
	}
	return s
}

func payload(action any) any {
	switch a := action.(type) {
	case map[string]any:
		return a["payload"]
	case effect.Action:
		return a.Payload
	case *effect.Action:
		if a != nil {
			return a.Payload
		}
	}
	return nil
}

// updatePath returns a copy of s with the value at the dot-separated path
// replaced by fn(old). Intermediate mappings are created as needed.
func updatePath(s any, path string, fn func(any) any) any {
	m, ok := s.(map[string]any)
	if !ok {
		return s
	}
	head, rest, nested := strings.Cut(path, ".")
	next := maps.Clone(m)
	if !nested {
		next[head] = fn(m[head])
		return next
	}
	child, ok := m[head].(map[string]any)
	if !ok {
		child = map[string]any{}
	}
	next[head] = updatePath(child, rest, fn)
	return next
}

// lookupPath reads a dot-separated path from s. An empty path is s itself;
// a missing key is nil.
func lookupPath(s any, path string) any {
	if path == "" {
		return s
	}
	for _, key := range strings.Split(path, ".") {
		m, ok := s.(map[string]any)
		if !ok {
			return nil
		}
		s = m[key]
	}
	return s
}

// add increments numbers. Anything else is left as is and shows up in the
// final state diff.
func add(v any, by int) any {
	switch n := v.(type) {
	case nil:
		return by
	case int:
		return n + by
	case int64:
		return n + int64(by)
	case float64:
		return n + float64(by)
	}
	return v
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopy(e)
		}
		return out
	}
	return v
}
