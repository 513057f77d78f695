package telemetry

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("telemetry: not found")

// ValidationError reports a malformed or missing required field. It is never
// retried automatically and maps to a 4xx outcome at the HTTP boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("telemetry: invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreError wraps a durable read/write failure. It maps to a 5xx outcome;
// the gateway never publishes a distribution event after a store failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("telemetry store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
