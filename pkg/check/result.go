package check

// Status represents the outcome of a check.
type Status string

const (
	StatusOK    Status = "OK"
	StatusFail  Status = "FAIL"  // the check ran and its predicate was false
	StatusError Status = "ERROR" // the check could not run to a verdict
)

// Result holds the outcome of a single check.
type Result struct {
	Name    string   // e.g., "service:nginx@web-1:22"
	Status  Status   // OK, FAIL or ERROR
	Details []string // human-readable details
	Output  string   // the value the predicate was tested against, if any
	Err     error    // underlying error for failures and errors
}

// OK returns true if the check passed.
func (r Result) OK() bool {
	return r.Status == StatusOK
}
