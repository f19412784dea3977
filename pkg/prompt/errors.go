package prompt

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every TimeoutError.
var ErrTimeout = errors.New("timed out waiting for prompt")

// ErrClosed is returned once the synchronizer has been closed.
var ErrClosed = errors.New("prompt synchronizer closed")

// TimeoutError reports that the prompt token did not come back in time.
// Captured holds the raw bytes received during the wait.
type TimeoutError struct {
	Timeout  time.Duration
	Captured []byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no prompt within %s (%d bytes captured)", e.Timeout, len(e.Captured))
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// StreamError reports that the terminal stream failed or ended before the
// prompt token appeared.
type StreamError struct {
	Captured []byte
	Err      error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("terminal stream ended before prompt (%d bytes captured): %v", len(e.Captured), e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// CapturedOutput returns the raw bytes carried by a TimeoutError or
// StreamError anywhere in err's chain, or nil.
func CapturedOutput(err error) []byte {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te.Captured
	}
	var se *StreamError
	if errors.As(err, &se) {
		return se.Captured
	}
	return nil
}
