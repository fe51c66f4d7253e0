package transport

import (
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// WakeupPin is the module's WAKEUP output, wired to a host GPIO.
// The line is pulled low while a finger touches the sensor. It implements
// sensor.Presence.
type WakeupPin struct {
	pin gpio.PinIn
}

// OpenWakeupPin initialises the host drivers and configures the named pin
// (e.g. "GPIO17") as an input with pull-up and falling-edge detection.
func OpenWakeupPin(name string) (*WakeupPin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("wakeup pin %q not found", name)
	}
	return newWakeupPin(pin)
}

func newWakeupPin(pin gpio.PinIn) (*WakeupPin, error) {
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure wakeup pin %s: %w", pin, err)
	}
	return &WakeupPin{pin: pin}, nil
}

// WaitForFinger returns true as soon as the line is low, waiting up to
// timeout for the falling edge.
func (w *WakeupPin) WaitForFinger(timeout time.Duration) bool {
	if w.pin.Read() == gpio.Low {
		return true
	}
	if !w.pin.WaitForEdge(timeout) {
		return false
	}
	return w.pin.Read() == gpio.Low
}

// Close stops edge detection.
func (w *WakeupPin) Close() error {
	return w.pin.In(gpio.PullNoChange, gpio.NoEdge)
}
