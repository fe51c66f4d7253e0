// Package simulator provides an in-memory GROW R503 module for tests and demos.
//
// A Device decodes the command frames a sensor.Sensor writes, applies them to
// a simulated template library and queues acknowledge frames for ReadFull.
// Fingers are plain integers: two touches with the same value are the same
// finger.
//
//	dev := simulator.New(simulator.WithCapacity(200))
//	dev.QueueTouches(simulator.EnrollTouches(7, 5)...)
//
//	s := sensor.New(dev, sensor.WithPollInterval(0))
//	err := s.Enroll(ctx, 3)
//
// Link faults can be injected per reply: DelayNext, HoldNext, DropNext,
// TruncateNext, CorruptNext, InjectNoise, and FailNext for a specific
// confirmation code.
package simulator
