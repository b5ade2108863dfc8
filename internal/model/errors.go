package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned when a prediction is requested while the
// classifier and encoders are not loaded.
var ErrUnavailable = errors.New("model or encoders not loaded")

// Problem describes one field that failed validation.
type Problem struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports client input that violates a declared constraint.
// Nothing downstream of validation runs when it is returned.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid submission"
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		if p.Field == "" {
			parts[i] = p.Reason
			continue
		}
		parts[i] = p.Field + ": " + p.Reason
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// EncodingError reports structurally valid input that cannot be turned into
// a feature vector, e.g. a required field that is absent.
type EncodingError struct {
	Field  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode field %q: %s", e.Field, e.Reason)
}

// InternalError is a server-side fault: a classifier failure or an
// invariant violation such as disagreeing score totals.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error during %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }
