package container

import (
	"errors"
	"fmt"
	"strings"
)

// ── Error types ───────────────────────────────────────────────────────────────

// CircularDependencyError is returned when an abstract appears twice on the
// active resolution stack. The Stack field holds the full cycle, ending with
// the abstract that closed it.
//
//	// Laravel: Illuminate\Contracts\Container\CircularDependencyException
type CircularDependencyError struct {
	// Stack is the resolution path that produced the cycle, e.g.
	// ["A", "B", "A"].
	Stack []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("container: circular dependency [%s]", strings.Join(e.Stack, " -> "))
}

// BindingResolutionError is returned when an abstract or one of its
// dependencies cannot be resolved: nothing is registered under the name, a
// factory failed, or a parameter of a called function cannot be satisfied.
//
//	// Laravel: Illuminate\Contracts\Container\BindingResolutionException
type BindingResolutionError struct {
	Abstract string
	Reason   string
	Err      error // underlying cause, if any
}

func (e *BindingResolutionError) Error() string {
	msg := fmt.Sprintf("container: unable to resolve [%s]", e.Abstract)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BindingResolutionError) Unwrap() error { return e.Err }

// CoercionError is returned by Call when a raw string argument cannot be cast
// to the scalar type a parameter declares. The call does not execute.
type CoercionError struct {
	Param  string // named argument consumed, if known
	Value  string // the raw string that failed to cast
	Target string // target type name, e.g. "int"
	Reason string
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("container: cannot cast %q to %s", e.Value, e.Target)
	if e.Param != "" {
		msg = fmt.Sprintf("container: cannot cast %q to %s for parameter [%s]", e.Value, e.Target, e.Param)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ── Error constructors ────────────────────────────────────────────────────────

func unresolvable(abstract, reason string) *BindingResolutionError {
	return &BindingResolutionError{Abstract: abstract, Reason: reason}
}

// factoryFailed wraps a factory error, except when the cause is already a
// container error from a nested resolution: those propagate untouched so the
// failure keeps naming the abstract that actually caused it.
func factoryFailed(abstract string, err error) error {
	var bre *BindingResolutionError
	var cde *CircularDependencyError
	var ce *CoercionError
	if errors.As(err, &bre) || errors.As(err, &cde) || errors.As(err, &ce) {
		return err
	}
	return &BindingResolutionError{Abstract: abstract, Reason: "factory returned an error", Err: err}
}
