package expectation

import (
	"errors"
)

// Failure kinds carried by SagaTestError.
const (
	FailEffect     = "effect"
	FailReturn     = "return"
	FailStoreState = "store_state"
)

// SagaTestError is returned when an expectation is unmet.
// Message is the complete, pre-formatted diagnostic; callers surface it
// unmodified.
type SagaTestError struct {
	Kind    string // FailEffect, FailReturn or FailStoreState
	Message string
}

// Error implements the error interface.
func (e *SagaTestError) Error() string {
	return e.Message
}

// IsSagaTestError returns true if err is or wraps a SagaTestError.
func IsSagaTestError(err error) bool {
	var se *SagaTestError
	return errors.As(err, &se)
}
