package simulator

import (
	"go.uber.org/zap"

	"github.com/moffa90/go-r503/protocol"
)

// Option configures a simulated Device.
type Option func(*Device)

// WithCapacity sets the library size reported by ReadSysPara.
func WithCapacity(n int) Option {
	return func(d *Device) {
		if n > 0 && n <= (protocol.MaxIndexPage+1)*protocol.IndexPageSlots {
			d.capacity = n
		}
	}
}

// WithAddress sets the module address the device answers to.
func WithAddress(addr uint32) Option {
	return func(d *Device) {
		d.address = addr
	}
}

// WithPassword sets the handshake password.
func WithPassword(password uint32) Option {
	return func(d *Device) {
		d.password = password
	}
}

// WithSecurityLevel sets the initial matching security level (1..5).
func WithSecurityLevel(level int) Option {
	return func(d *Device) {
		if level >= protocol.MinSecurityLevel && level <= protocol.MaxSecurityLevel {
			d.securityLevel = level
		}
	}
}

// WithTemplates pre-populates the library: slot → finger.
func WithTemplates(templates map[int]Touch) Option {
	return func(d *Device) {
		for slot, finger := range templates {
			d.library[slot] = finger
		}
	}
}

// WithAutoTouch makes GenImg alternate between finger and no finger whenever
// no touches are queued and no finger is placed. Useful for interactive demos.
func WithAutoTouch(finger Touch) Option {
	return func(d *Device) {
		d.autoTouch = finger
	}
}

// WithLogger sets the zap logger used to trace handled commands.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Device) {
		if logger != nil {
			d.log = logger
		}
	}
}
