// Package sensor provides a high-level API for driving a GROW R503 fingerprint module.
//
// # Overview
//
// This package wraps every protocol command in a method and adds the two
// multi-step workflows built on them:
//   - Enrollment: capture several samples, fuse them and store the model
//   - Identification: capture one sample and search the library
//
// # Basic Usage
//
//	port, err := transport.OpenSerial("/dev/ttyAMA0", 57600, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	s := sensor.New(port)
//	if err := s.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := s.Enroll(ctx, 3); err != nil {
//	    log.Fatal(err)
//	}
//
//	match, err := s.Identify(ctx)
//
// # Enrollment
//
// Enrollment is an explicit state machine. Run drives it to the end; Step
// performs one transition at a time for callers that want to interleave their
// own work (LED cues, prompts):
//
//	e, err := s.NewEnrollment(3)
//	for !e.State().Terminal() {
//	    e.Step(ctx)
//	}
//
// A template is stored only after every sample was captured, templated and
// fused. Any failure on the way ends in StateFailed and nothing is stored.
//
// # Session State
//
// The sensor caches what earlier commands reported: the occupied slots from
// ReadTemplates, the security level and capacity from ReadSysParam, and the
// last search match. See Session.
//
// # Error Handling
//
//   - protocol.DeviceError: the module answered with a failure code
//   - protocol.FrameError: the reply was malformed
//   - TransportError: the link failed or timed out
//   - EnrollError: an enrollment stopped, wrapping one of the above
//
// Compare device failures with errors.Is and the protocol sentinels:
//
//	if errors.Is(err, protocol.ErrNoFinger) { ... }
//
// After a timeout or malformed reply the link is resynchronised before the
// next command, so a late reply is never mistaken for a new one.
//
// # Hardware Independence
//
// The sensor talks to a Transport. The transport package provides a UART
// implementation and the simulator package an in-memory module.
package sensor
