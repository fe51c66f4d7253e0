package sensor

import (
	"time"

	"go.uber.org/zap"

	"github.com/moffa90/go-r503/protocol"
)

// Config holds the sensor configuration.
type Config struct {
	// ProgressCallback is called on every enrollment state change (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations. Defaults to a no-op logger.
	Logger *zap.Logger

	// Observer receives per-command outcomes, e.g. for metrics (optional)
	Observer Observer

	// Presence is the finger-detect line used as a polling hint (optional)
	Presence Presence

	// Address is the module address
	Address uint32

	// Password is sent by Open during the handshake
	Password uint32

	// ReadTimeout bounds every response read
	ReadTimeout time.Duration

	// DrainTimeout bounds each read while discarding stale input on
	// transports that do not implement Flusher
	DrainTimeout time.Duration

	// PollInterval paces GenImg polling in the workflows. Zero polls back to back.
	PollInterval time.Duration

	// MaxPolls bounds each finger wait in the workflows. Zero waits until the context ends.
	MaxPolls int

	// Samples is the number of images fused into one enrolled template
	Samples int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Logger:       zap.NewNop(),
		Address:      protocol.DefaultAddress,
		Password:     protocol.DefaultPassword,
		ReadTimeout:  time.Second,
		DrainTimeout: 20 * time.Millisecond,
		PollInterval: 100 * time.Millisecond,
		Samples:      5,
	}
}

// Option is a functional option for configuring the Sensor.
type Option func(*Config)

// WithProgressCallback sets a callback to follow enrollment progress.
//
// Example:
//
//	s := sensor.New(port,
//	    sensor.WithProgressCallback(func(p sensor.Progress) {
//	        fmt.Printf("%s sample %d/%d\n", p.State, p.Sample, p.Samples)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets the zap logger for sensor operations.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithObserver sets an observer notified after every command.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

// WithPresence sets the finger-detect line used to pace polling.
func WithPresence(p Presence) Option {
	return func(c *Config) {
		c.Presence = p
	}
}

// WithAddress sets the module address.
//
// Example:
//
//	s := sensor.New(port, sensor.WithAddress(0xFFFFFFFF))
func WithAddress(addr uint32) Option {
	return func(c *Config) {
		c.Address = addr
	}
}

// WithPassword sets the handshake password used by Open.
func WithPassword(password uint32) Option {
	return func(c *Config) {
		c.Password = password
	}
}

// WithReadTimeout sets the response read timeout.
//
// Example:
//
//	s := sensor.New(port, sensor.WithReadTimeout(2*time.Second))
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReadTimeout = timeout
		}
	}
}

// WithPollInterval sets the pause between GenImg polls in the workflows.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval >= 0 {
			c.PollInterval = interval
		}
	}
}

// WithMaxPolls bounds how many GenImg polls a workflow spends waiting for a
// finger to arrive or leave. Zero means no bound.
func WithMaxPolls(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxPolls = n
		}
	}
}

// WithSamples sets how many images an enrollment captures (1..6).
//
// Example:
//
//	s := sensor.New(port, sensor.WithSamples(2))
func WithSamples(n int) Option {
	return func(c *Config) {
		if n >= protocol.MinBuffer && n <= protocol.MaxBuffer {
			c.Samples = n
		}
	}
}
