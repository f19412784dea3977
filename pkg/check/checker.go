package check

import "context"

// Checker is implemented by all check types.
// Each check runs once against a remote host
// and returns a Result indicating success, failure or error.
//
// Implementations:
//   - probe.Probe: runs one command in an interactive shell and tests its output
type Checker interface {
	Run(ctx context.Context) Result
}
