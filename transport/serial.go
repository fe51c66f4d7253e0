package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/moffa90/go-r503/sensor"
)

// DefaultBaudRate is the R503 factory baud rate (6 × 9600).
const DefaultBaudRate = 57600

// port is the subset of serial.Port the transport needs.
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Serial is a UART link to the module. It implements sensor.Transport and
// sensor.Flusher.
type Serial struct {
	port port
	name string
	log  *zap.Logger
}

// OpenSerial opens path at baud, 8N1.
//
// Example:
//
//	port, err := transport.OpenSerial("/dev/ttyAMA0", transport.DefaultBaudRate, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
func OpenSerial(path string, baud int, logger *zap.Logger) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	p, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, describePortError(err))
	}

	s := newSerial(p, path, logger)
	if err := s.Flush(); err != nil {
		p.Close()
		return nil, fmt.Errorf("reset %s: %w", path, err)
	}

	s.log.Info("serial port opened", zap.String("port", path), zap.Int("baud", baud))
	return s, nil
}

func newSerial(p port, name string, logger *zap.Logger) *Serial {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Serial{port: p, name: name, log: logger.Named("serial")}
}

// Write sends p.
func (s *Serial) Write(p []byte) (int, error) {
	n, err := s.port.Write(p)
	if err != nil {
		return n, describePortError(err)
	}
	return n, nil
}

// ReadFull reads exactly len(p) bytes within timeout. The port returns
// whatever has arrived when its read timeout passes, so the remaining budget
// is re-armed before every read.
func (s *Serial) ReadFull(p []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	n := 0
	for n < len(p) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return n, fmt.Errorf("%s: %d of %d bytes after %s: %w", s.name, n, len(p), timeout, sensor.ErrTimeout)
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return n, describePortError(err)
		}

		m, err := s.port.Read(p[n:])
		n += m
		if err != nil {
			return n, describePortError(err)
		}
		if m == 0 {
			return n, fmt.Errorf("%s: %d of %d bytes after %s: %w", s.name, n, len(p), timeout, sensor.ErrTimeout)
		}
	}
	return n, nil
}

// Flush discards unread input.
func (s *Serial) Flush() error {
	if err := s.port.ResetInputBuffer(); err != nil {
		return describePortError(err)
	}
	return nil
}

// Close releases the port.
func (s *Serial) Close() error {
	return s.port.Close()
}

// describePortError adds context to the port error codes a user can act on.
func describePortError(err error) error {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return err
	}
	switch pe.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("port not found (check the device path): %w", err)
	case serial.PortBusy:
		return fmt.Errorf("port busy (is another program using it?): %w", err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied (add the user to the dialout group): %w", err)
	case serial.InvalidSpeed:
		return fmt.Errorf("unsupported baud rate: %w", err)
	case serial.PortClosed:
		return fmt.Errorf("port closed: %w", err)
	default:
		return err
	}
}
