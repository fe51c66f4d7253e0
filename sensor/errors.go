package sensor

import (
	"errors"
	"fmt"
)

// ErrPollLimit is returned by the workflows when WithMaxPolls is set and the
// finger did not arrive (or leave) within that many polls.
var ErrPollLimit = errors.New("poll limit reached")

// TransportError wraps an I/O failure or timeout on the link.
// The command may or may not have reached the module; no progress is assumed.
type TransportError struct {
	// Op is "write" or "read"
	Op string

	// Command is the instruction code of the transaction
	Command byte

	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s during command 0x%02X: %v", e.Op, e.Command, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a read timeout.
func (e *TransportError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}

// IsTimeout returns true if err is a transport timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout()
}

// EnrollError reports why an enrollment stopped. No template was stored.
type EnrollError struct {
	// State is the state the enrollment was in when it failed
	State EnrollState

	// Sample is the 1-based sample being processed
	Sample int

	Err error
}

func (e *EnrollError) Error() string {
	return fmt.Sprintf("enroll failed in %s (sample %d): %v", e.State, e.Sample, e.Err)
}

func (e *EnrollError) Unwrap() error {
	return e.Err
}
