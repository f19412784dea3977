package check

// Process exit codes.
const (
	ExitOK           = 0
	ExitFail         = 1
	DefaultExitError = 2
)

// Reporter maps results to process exit codes.
type Reporter struct {
	// ErrorCode is returned for StatusError. Zero means DefaultExitError;
	// 1 folds errors into plain failures.
	ErrorCode int
}

// Code returns the exit code for r.
func (rep Reporter) Code(r Result) int {
	switch r.Status {
	case StatusOK:
		return ExitOK
	case StatusFail:
		return ExitFail
	}
	if rep.ErrorCode == 0 {
		return DefaultExitError
	}
	return rep.ErrorCode
}

// Combine returns the code of the most severe result: error over fail over
// ok. An empty slice is ExitOK.
func (rep Reporter) Combine(results []Result) int {
	worst := StatusOK
	for _, r := range results {
		if severity(r.Status) > severity(worst) {
			worst = r.Status
		}
	}
	return rep.Code(Result{Status: worst})
}

// ExitCode maps r with the default error code.
func ExitCode(r Result) int {
	return Reporter{}.Code(r)
}

func severity(s Status) int {
	switch s {
	case StatusOK:
		return 0
	case StatusFail:
		return 1
	}
	return 2
}
