package harness

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sagatest/internal/effect"
	"github.com/roach88/sagatest/internal/saga"
)

// SelectorName is the rendered name of the state-path selector.
const SelectorName = "state"

// SelectPath is the selector behind every scripted select. args[0] is the
// dot-separated path.
func SelectPath(s any, args ...any) any {
	if len(args) == 0 {
		return s
	}
	path, _ := args[0].(string)
	return lookupPath(s, path)
}

// selectEffect builds the select effect for path. Scripts and expectations
// share it so they compare equal.
func selectEffect(path string) effect.Select {
	return effect.Select{Selector: SelectPath, Args: []any{path}, Name: SelectorName}
}

type opKind int

const (
	opPut opKind = iota + 1
	opSelect
	opTake
	opReturn
)

// instruction is a decoded saga step.
type instruction struct {
	kind  opKind
	value any // action for put, pattern for take, value for return
	path  string
	as    string
}

// compileSaga decodes steps into a saga.Saga.
func compileSaga(steps []Step) (saga.Saga, error) {
	prog := make([]instruction, 0, len(steps))
	for i, step := range steps {
		ins, err := compileStep(step)
		if err != nil {
			return nil, fmt.Errorf("saga[%d]: %w", i, err)
		}
		prog = append(prog, ins)
	}

	return func(ctx context.Context, io *saga.IO) (any, error) {
		vars := make(map[string]any)
		for _, ins := range prog {
			switch ins.kind {
			case opPut:
				if err := io.Put(bind(ins.value, vars)); err != nil {
					return nil, err
				}
			case opSelect:
				v, err := io.Do(selectEffect(ins.path))
				if err != nil {
					return nil, err
				}
				if ins.as != "" {
					vars[ins.as] = v
				}
			case opTake:
				v, err := io.Take(ins.value)
				if err != nil {
					return nil, err
				}
				if ins.as != "" {
					vars[ins.as] = v
				}
			case opReturn:
				return bind(ins.value, vars), nil
			}
		}
		return nil, nil
	}, nil
}

func compileStep(step Step) (instruction, error) {
	switch {
	case isSet(step.Put):
		v, err := decodeNode(step.Put)
		return instruction{kind: opPut, value: v}, err
	case step.Select != nil:
		return instruction{kind: opSelect, path: *step.Select, as: step.As}, nil
	case isSet(step.Take):
		p, err := decodePattern(step.Take)
		return instruction{kind: opTake, value: p, as: step.As}, err
	case isSet(step.Returns):
		v, err := decodeNode(step.Returns)
		return instruction{kind: opReturn, value: v}, err
	}
	return instruction{}, fmt.Errorf("empty step")
}

func decodeNode(n yaml.Node) (any, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodePattern reads a take pattern: a single type or a list of types.
func decodePattern(n yaml.Node) (any, error) {
	if n.Kind == yaml.SequenceNode {
		var types []string
		if err := n.Decode(&types); err != nil {
			return nil, err
		}
		return types, nil
	}
	var t string
	if err := n.Decode(&t); err != nil {
		return nil, err
	}
	return t, nil
}

// bind replaces "$name" strings with bound values, recursively. Unbound
// references are left as they are.
func bind(v any, vars map[string]any) any {
	switch x := v.(type) {
	case string:
		if name, ok := strings.CutPrefix(x, "$"); ok {
			if bound, ok := vars[name]; ok {
				return bound
			}
		}
		return x
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = bind(e, vars)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = bind(e, vars)
		}
		return out
	}
	return v
}
