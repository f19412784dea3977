package predicate

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedOutput is matched by every MalformedOutputError.
	ErrMalformedOutput = errors.New("malformed command output")
	// ErrPredicate is matched by every PredicateError.
	ErrPredicate = errors.New("predicate could not be evaluated")
)

// MalformedOutputError reports that the sanitized output has no line at the
// target index.
type MalformedOutputError struct {
	Lines []string
	Want  int // minimum number of lines required
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("expected at least %d output lines, got %d", e.Want, len(e.Lines))
}

// Is reports whether target is ErrMalformedOutput.
func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedOutput
}

// PredicateError reports that a value could not be tested, for example a
// non-numeric line given to a numeric comparison. It is distinct from a
// negative verdict.
type PredicateError struct {
	Predicate string
	Value     string
	Err       error
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("%s: cannot evaluate %q: %v", e.Predicate, e.Value, e.Err)
}

func (e *PredicateError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPredicate.
func (e *PredicateError) Is(target error) bool {
	return target == ErrPredicate
}
