package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moffa90/go-r503/protocol"
)

// EnrollState is a state of the enrollment state machine.
type EnrollState int

// Enrollment states.
//
//	AwaitFinger → Captured → Templated ─┬→ AwaitRemoval → AwaitFinger (next sample)
//	                                    └→ Fused → Stored (after the last sample)
//
// Failed is reachable from every non-terminal state.
const (
	StateAwaitFinger EnrollState = iota
	StateCaptured
	StateTemplated
	StateAwaitRemoval
	StateFused
	StateStored
	StateFailed
)

func (s EnrollState) String() string {
	switch s {
	case StateAwaitFinger:
		return "await-finger"
	case StateCaptured:
		return "captured"
	case StateTemplated:
		return "templated"
	case StateAwaitRemoval:
		return "await-removal"
	case StateFused:
		return "fused"
	case StateStored:
		return "stored"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s EnrollState) Terminal() bool {
	return s == StateStored || s == StateFailed
}

// Enrollment captures several images of one finger, fuses them into a model
// and stores it. Drive it with Step, or with Run to completion.
//
// A model is stored only after every sample was templated and fused; any
// failure before that ends in StateFailed with nothing stored.
type Enrollment struct {
	s       *Sensor
	slot    int
	samples int

	state  EnrollState
	sample int
	polls  int
	err    error
	start  time.Time
}

// NewEnrollment prepares an enrollment into slot. The slot is chosen by the
// caller; the sensor keeps no allocation policy of its own.
func (s *Sensor) NewEnrollment(slot int) (*Enrollment, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	return &Enrollment{
		s:       s,
		slot:    slot,
		samples: s.config.Samples,
		state:   StateAwaitFinger,
		sample:  1,
	}, nil
}

// Enroll runs a complete enrollment into slot.
//
// Example:
//
//	if err := s.Enroll(ctx, 3); err != nil {
//	    if errors.Is(err, protocol.ErrEnrollMismatch) {
//	        fmt.Println("Prints did not match.")
//	    }
//	}
func (s *Sensor) Enroll(ctx context.Context, slot int) error {
	e, err := s.NewEnrollment(slot)
	if err != nil {
		return err
	}
	return e.Run(ctx)
}

// State returns the current state.
func (e *Enrollment) State() EnrollState { return e.state }

// Sample returns the 1-based sample currently being processed.
func (e *Enrollment) Sample() int { return e.sample }

// Samples returns the number of samples this enrollment captures.
func (e *Enrollment) Samples() int { return e.samples }

// Slot returns the target slot.
func (e *Enrollment) Slot() int { return e.slot }

// Err returns the failure reason once the enrollment is in StateFailed.
func (e *Enrollment) Err() error { return e.err }

// Run steps the enrollment until it is stored or fails.
func (e *Enrollment) Run(ctx context.Context) error {
	for !e.state.Terminal() {
		if err := e.Step(ctx); err != nil {
			return err
		}
	}
	return e.err
}

// Step performs one transition. It issues at most one command, except that
// leaving Templated after the last sample issues GenerateTemplate.
// It returns the failure once the enrollment has failed, nil otherwise.
func (e *Enrollment) Step(ctx context.Context) error {
	if e.start.IsZero() {
		e.start = time.Now()
		e.report()
	}

	switch e.state {
	case StateAwaitFinger:
		e.awaitFinger(ctx)

	case StateCaptured:
		if err := e.s.GenCharFromImage(ctx, e.sample); err != nil {
			e.fail(fmt.Errorf("gen char: %w", err))
			break
		}
		e.enter(StateTemplated)

	case StateTemplated:
		if e.sample < e.samples {
			e.polls = 0
			e.enter(StateAwaitRemoval)
			break
		}
		if err := e.s.GenerateTemplate(ctx); err != nil {
			e.fail(fmt.Errorf("generate template: %w", err))
			break
		}
		e.enter(StateFused)

	case StateAwaitRemoval:
		e.awaitRemoval(ctx)

	case StateFused:
		if err := e.s.StoreTemplate(ctx, e.slot); err != nil {
			e.fail(fmt.Errorf("store template: %w", err))
			break
		}
		e.s.log.Info("template enrolled", zap.Int("slot", e.slot), zap.Int("samples", e.samples))
		e.enter(StateStored)
	}

	return e.err
}

// awaitFinger polls GenImg until an image is captured. "No finger" is
// expected and retried; any other outcome ends the enrollment.
func (e *Enrollment) awaitFinger(ctx context.Context) {
	if err := e.s.pace(ctx, true); err != nil {
		e.fail(err)
		return
	}

	err := e.s.GenerateImage(ctx)
	switch {
	case err == nil:
		e.polls = 0
		e.enter(StateCaptured)
	case errors.Is(err, protocol.ErrNoFinger):
		e.polls++
		if e.s.config.MaxPolls > 0 && e.polls >= e.s.config.MaxPolls {
			e.fail(fmt.Errorf("waiting for finger: %w", ErrPollLimit))
		}
	default:
		e.fail(fmt.Errorf("capture: %w", err))
	}
}

// awaitRemoval polls GenImg until the module reports no finger, so the same
// resting finger is never templated twice.
func (e *Enrollment) awaitRemoval(ctx context.Context) {
	if err := e.s.pace(ctx, false); err != nil {
		e.fail(err)
		return
	}

	err := e.s.GenerateImage(ctx)
	var devErr *protocol.DeviceError
	switch {
	case errors.Is(err, protocol.ErrNoFinger):
		e.sample++
		e.polls = 0
		e.enter(StateAwaitFinger)
	case err == nil || errors.As(err, &devErr):
		// finger still resting on the sensor
		e.polls++
		if e.s.config.MaxPolls > 0 && e.polls >= e.s.config.MaxPolls {
			e.fail(fmt.Errorf("waiting for finger removal: %w", ErrPollLimit))
		}
	default:
		e.fail(fmt.Errorf("removal poll: %w", err))
	}
}

func (e *Enrollment) enter(state EnrollState) {
	e.state = state
	e.report()
}

func (e *Enrollment) fail(err error) {
	e.err = &EnrollError{State: e.state, Sample: e.sample, Err: err}
	e.s.log.Error("enrollment aborted",
		zap.Int("slot", e.slot),
		zap.Stringer("state", e.state),
		zap.Int("sample", e.sample),
		zap.Error(err),
	)
	e.enter(StateFailed)
}

func (e *Enrollment) report() {
	if e.s.config.ProgressCallback == nil {
		return
	}
	e.s.config.ProgressCallback(Progress{
		State:       e.state,
		Sample:      e.sample,
		Samples:     e.samples,
		Slot:        e.slot,
		Err:         e.err,
		ElapsedTime: time.Since(e.start),
	})
}
