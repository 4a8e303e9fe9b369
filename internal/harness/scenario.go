package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted saga test.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// InitialState is the store state before the saga runs.
	InitialState map[string]any `yaml:"initial_state,omitempty"`

	// Reducer rules applied to every action reaching the store.
	Reducer []ReducerRule `yaml:"reducer,omitempty"`

	// Dispatch lists actions queued for the saga's takes.
	Dispatch []map[string]any `yaml:"dispatch,omitempty"`

	// Saga is the scripted saga, run top to bottom.
	Saga []Step `yaml:"saga"`

	// Expect lists the expectations, evaluated in order.
	Expect []Expectation `yaml:"expect"`

	// Timeout stops the saga after the given duration (e.g. "500ms").
	Timeout string `yaml:"timeout,omitempty"`
}

// ReducerRule maps one action type to a state update.
type ReducerRule struct {
	On    string `yaml:"on"`
	Op    string `yaml:"op"`
	Path  string `yaml:"path,omitempty"`
	By    *int   `yaml:"by,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// Reducer ops.
const (
	OpReplaceWithPayload = "replace_with_payload"
	OpIncrement          = "increment"
	OpSet                = "set"
	OpMergePayload       = "merge_payload"
)

// Step is one saga instruction. Exactly one of Put, Select, Take or
// Returns is set.
type Step struct {
	Put     yaml.Node `yaml:"put"`
	Select  *string   `yaml:"select"`
	Take    yaml.Node `yaml:"take"`
	Returns yaml.Node `yaml:"returns"`

	// As binds the result of a select or take.
	As string `yaml:"as,omitempty"`
}

// Expectation is one check on the finished run. Exactly one of Put,
// Select, Take, Returns or FinalState is set.
type Expectation struct {
	Put        yaml.Node `yaml:"put"`
	Select     *string   `yaml:"select"`
	Take       yaml.Node `yaml:"take"`
	Returns    yaml.Node `yaml:"returns"`
	FinalState yaml.Node `yaml:"final_state"`

	// Like selects partial matching (put and select only).
	Like bool `yaml:"like,omitempty"`

	// Not inverts the expectation.
	Not bool `yaml:"not,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// TimeoutDuration returns the parsed timeout, or zero if none is set.
func (s *Scenario) TimeoutDuration() time.Duration {
	if s.Timeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(s.Timeout)
	return d
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Saga) == 0 {
		return fmt.Errorf("saga list is required and must be non-empty")
	}
	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}
	if s.Timeout != "" {
		if d, err := time.ParseDuration(s.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("timeout %q must be a positive duration", s.Timeout)
		}
	}

	for i, r := range s.Reducer {
		if err := validateRule(i, r); err != nil {
			return err
		}
	}

	for i, a := range s.Dispatch {
		if _, ok := a["type"].(string); !ok {
			return fmt.Errorf("dispatch[%d]: type is required", i)
		}
	}

	for i, step := range s.Saga {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, e := range s.Expect {
		if err := validateExpectation(i, e); err != nil {
			return err
		}
	}

	return nil
}

func validateRule(index int, r ReducerRule) error {
	if r.On == "" {
		return fmt.Errorf("reducer[%d]: on is required", index)
	}
	switch r.Op {
	case OpReplaceWithPayload, OpMergePayload:
	case OpIncrement, OpSet:
		if r.Path == "" {
			return fmt.Errorf("reducer[%d]: path is required for %s", index, r.Op)
		}
	case "":
		return fmt.Errorf("reducer[%d]: op is required", index)
	default:
		return fmt.Errorf("reducer[%d]: unknown op %q", index, r.Op)
	}
	return nil
}

func validateStep(index int, s Step) error {
	n := countSet(isSet(s.Put), s.Select != nil, isSet(s.Take), isSet(s.Returns))
	if n != 1 {
		return fmt.Errorf("saga[%d]: exactly one of put, select, take, returns is required", index)
	}
	if isSet(s.Put) && s.Put.Kind != yaml.MappingNode {
		return fmt.Errorf("saga[%d]: put must be a mapping", index)
	}
	if isSet(s.Take) {
		if err := validatePattern(s.Take); err != nil {
			return fmt.Errorf("saga[%d]: %w", index, err)
		}
	}
	if s.As != "" && s.Select == nil && !isSet(s.Take) {
		return fmt.Errorf("saga[%d]: as is only valid on select and take", index)
	}
	return nil
}

func validateExpectation(index int, e Expectation) error {
	n := countSet(isSet(e.Put), e.Select != nil, isSet(e.Take), isSet(e.Returns), isSet(e.FinalState))
	if n != 1 {
		return fmt.Errorf("expect[%d]: exactly one of put, select, take, returns, final_state is required", index)
	}
	if e.Like && !isSet(e.Put) && e.Select == nil {
		return fmt.Errorf("expect[%d]: like is only valid on put and select", index)
	}
	if isSet(e.Take) {
		if err := validatePattern(e.Take); err != nil {
			return fmt.Errorf("expect[%d]: %w", index, err)
		}
	}
	return nil
}

func validatePattern(n yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		return nil
	case yaml.SequenceNode:
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return fmt.Errorf("take list entries must be action types")
			}
		}
		return nil
	}
	return fmt.Errorf("take must be an action type or a list of action types")
}

// isSet reports whether a yaml.Node field was present in the document.
func isSet(n yaml.Node) bool {
	return n.Kind != 0
}

func countSet(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
