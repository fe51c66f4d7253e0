package sensor

import (
	"errors"
	"time"
)

// ErrTimeout is returned (wrapped) by a Transport when a read deadline passes
// before the requested bytes arrive.
var ErrTimeout = errors.New("read timeout")

// Transport is the byte-stream link to the module.
//
// This package does NOT implement hardware communication. The transport
// package provides a UART implementation; tests use the simulator package.
type Transport interface {
	// Write sends p to the module.
	Write(p []byte) (int, error)

	// ReadFull reads exactly len(p) bytes, waiting at most timeout.
	// On timeout it returns the bytes that did arrive and an error wrapping ErrTimeout.
	ReadFull(p []byte, timeout time.Duration) (int, error)
}

// Flusher is implemented by transports that can discard unread input.
// The sensor flushes after a timeout or malformed frame so a late reply is
// never taken as the answer to the next command.
type Flusher interface {
	Flush() error
}

// Presence is the optional "finger present" line of the module.
// It is only a hint; the GenImg confirmation code is authoritative.
type Presence interface {
	// WaitForFinger blocks until a finger is detected or timeout passes.
	// It returns true when a finger is (or became) present.
	WaitForFinger(timeout time.Duration) bool
}
