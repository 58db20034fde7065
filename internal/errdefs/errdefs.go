// Package errdefs carries the optimizer's error-kind taxonomy,
// adapted from internal/errors.SentraError (a typed error with
// source-location context) but scoped to the method/instruction
// coordinates an optimizer pass operates on instead of file/line/column
// source positions.
package errdefs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind distinguishes the error taxonomy a pass can raise.
type Kind string

const (
	// InvariantViolation is a programmer error: a malformed CFG, a
	// plan that both replaces and deletes the same instruction, or any
	// other condition that aborts the process with context rather than
	// producing a degraded-but-valid result.
	InvariantViolation Kind = "InvariantViolation"
)

// OptimizerError is raised only for InvariantViolation conditions;
// unresolvable references and unsafe-to-inline decisions are never
// errors and are instead counted rejections.
type OptimizerError struct {
	Kind   Kind
	Method string
	Detail string
}

func (e *OptimizerError) Error() string {
	return fmt.Sprintf("%s in %s: %s", e.Kind, e.Method, e.Detail)
}

// Invariant builds and wraps an OptimizerError with a stack trace via
// github.com/pkg/errors, the way SentraError.WithStack attaches
// call-stack context — but sourced from the wrapping library already
// present in the dependency graph instead of hand-rolled frames.
func Invariant(method, format string, args ...interface{}) error {
	return errors.WithStack(&OptimizerError{
		Kind:   InvariantViolation,
		Method: method,
		Detail: fmt.Sprintf(format, args...),
	})
}
