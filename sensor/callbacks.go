package sensor

import "time"

// Progress describes an enrollment state change.
// Passed to ProgressCallback.
type Progress struct {
	// State is the state just entered
	State EnrollState

	// Sample is the 1-based sample being captured
	Sample int

	// Samples is the total number of samples
	Samples int

	// Slot is the library slot the template will be stored in
	Slot int

	// Err is set when State is StateFailed
	Err error

	// ElapsedTime is the time since the enrollment started
	ElapsedTime time.Duration
}

// ProgressCallback is called on every enrollment state change.
// Implementations should return quickly; the next command waits for it.
//
// Example:
//
//	s := sensor.New(port,
//	    sensor.WithProgressCallback(func(p sensor.Progress) {
//	        if p.State == sensor.StateAwaitFinger {
//	            fmt.Printf("Place finger (%d of %d)\n", p.Sample, p.Samples)
//	        }
//	    }),
//	)
type ProgressCallback func(Progress)

// Outcome classifies how a command finished.
type Outcome string

// Command outcomes reported to an Observer.
const (
	OutcomeOK          Outcome = "ok"
	OutcomeDeviceError Outcome = "device_error"
	OutcomeFrameError  Outcome = "frame_error"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeIOError     Outcome = "io_error"
)

// Observer is notified after every command transaction.
// The internal/metrics package implements it with Prometheus collectors.
type Observer interface {
	CommandCompleted(cmd byte, outcome Outcome, elapsed time.Duration)
}
