package harness

import (
	"github.com/roach88/sagatest/internal/saga"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates every expectation was met.
	Pass bool `json:"pass"`

	// Errors holds the failure message of the first unmet expectation.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Trace contains every effect the saga yielded, in order.
	Trace []saga.Record `json:"-"`

	// ReturnValue is what the saga returned.
	ReturnValue any `json:"return,omitempty"`

	// FinalState is the store state after the run.
	FinalState any `json:"final_state,omitempty"`

	// Stopped is true if the saga was forcibly stopped.
	Stopped bool `json:"stopped,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
