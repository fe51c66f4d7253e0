package simulator

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moffa90/go-r503/protocol"
	"github.com/moffa90/go-r503/sensor"
)

// Touch is what the sensor sees on one GenImg.
// Positive values identify a finger; equal values are the same finger.
type Touch int

// Special touches.
const (
	// NoTouch means nothing rests on the sensor
	NoTouch Touch = 0

	// Smudge is a finger whose image cannot be captured
	Smudge Touch = -1
)

// Device is an in-memory R503 module. It implements sensor.Transport,
// sensor.Flusher and sensor.Presence.
//
// Replies are queued on Write and consumed by ReadFull. When fewer bytes are
// queued than requested, ReadFull waits out its timeout and returns what it
// has with a timeout error.
type Device struct {
	mu  sync.Mutex
	log *zap.Logger

	address       uint32
	password      uint32
	capacity      int
	securityLevel int
	baudMult      int
	packetCode    int

	// library maps slot → enrolled finger
	library map[int]Touch

	// image is the finger captured by the last successful GenImg
	image Touch

	// buffers are the character buffers 1..6; index 0 is unused
	buffers [protocol.MaxBuffer + 1]Touch

	touches   []Touch
	placed    Touch
	autoTouch Touch
	autoPhase bool

	leds []protocol.LedPattern

	out      bytes.Buffer
	late     []byte
	held     []byte
	commands []byte
	faults   faults
}

type faults struct {
	codes    map[byte]byte
	delay    bool
	hold     bool
	drop     bool
	truncate int
	corrupt  bool
}

// New creates a device with an empty library, security level 3 and the
// R503 factory defaults.
func New(opts ...Option) *Device {
	d := &Device{
		log:           zap.NewNop(),
		address:       protocol.DefaultAddress,
		password:      protocol.DefaultPassword,
		capacity:      protocol.DefaultCapacity,
		securityLevel: 3,
		baudMult:      6,
		packetCode:    2,
		library:       make(map[int]Touch),
		faults:        faults{codes: make(map[byte]byte)},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// QueueTouches scripts the outcome of the next GenImg commands, one touch
// per command. Once the queue is empty the placed finger is used.
func (d *Device) QueueTouches(touches ...Touch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touches = append(d.touches, touches...)
}

// EnrollTouches returns the touch script of a clean enrollment: the finger
// is placed and lifted once per sample.
func EnrollTouches(finger Touch, samples int) []Touch {
	touches := make([]Touch, 0, 2*samples)
	for i := 0; i < samples; i++ {
		if i > 0 {
			touches = append(touches, NoTouch)
		}
		touches = append(touches, finger)
	}
	return touches
}

// PlaceFinger rests finger on the sensor until LiftFinger.
func (d *Device) PlaceFinger(finger Touch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.placed = finger
}

// LiftFinger removes the placed finger.
func (d *Device) LiftFinger() {
	d.PlaceFinger(NoTouch)
}

// FailNext makes the next command op answer with code instead of running.
func (d *Device) FailNext(op, code byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults.codes[op] = code
}

// DelayNext holds back the next reply until a read has timed out, as a
// module that answers after the host gave up would.
func (d *Device) DelayNext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults.delay = true
}

// HoldNext keeps the next reply in flight until another command is
// written, as a module that answers after the host flushed its input would.
// The late reply reaches the link just ahead of the next command's reply.
func (d *Device) HoldNext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults.hold = true
}

// DropNext executes the next command without answering it.
func (d *Device) DropNext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults.drop = true
}

// TruncateNext cuts the next reply after n bytes.
func (d *Device) TruncateNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults.truncate = n
}

// CorruptNext flips one bit in the checksum of the next reply.
func (d *Device) CorruptNext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults.corrupt = true
}

// InjectNoise queues raw bytes ahead of the next reply.
func (d *Device) InjectNoise(b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out.Write(b)
}

// Commands returns the instruction codes received so far, in order.
func (d *Device) Commands() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.commands...)
}

// Library returns a copy of the enrolled templates: slot → finger.
func (d *Device) Library() map[int]Touch {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[int]Touch, len(d.library))
	for slot, finger := range d.library {
		out[slot] = finger
	}
	return out
}

// SecurityLevel returns the current matching security level.
func (d *Device) SecurityLevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.securityLevel
}

// LEDs returns every LED pattern received, oldest first.
func (d *Device) LEDs() []protocol.LedPattern {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.LedPattern(nil), d.leds...)
}

// Pending returns the number of reply bytes not yet read.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.out.Len() + len(d.late) + len(d.held)
}

// Write decodes one command frame and queues the reply.
// A frame that fails to decode is answered with a packet error, as the
// module does.
func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.held != nil {
		d.out.Write(d.held)
		d.held = nil
	}

	pid, payload, err := protocol.ParseFrame(p, d.address)
	if err != nil || pid != protocol.PIDCommand {
		d.log.Debug("rejected frame", zap.Error(err), zap.Uint8("pid", pid))
		d.reply(protocol.CodePacketError, nil)
		return len(p), nil
	}

	op, params := payload[0], payload[1:]
	d.commands = append(d.commands, op)

	if code, ok := d.faults.codes[op]; ok {
		delete(d.faults.codes, op)
		d.log.Debug("injected failure", zap.String("cmd", protocol.CommandName(op)), zap.Uint8("code", code))
		d.reply(code, nil)
		return len(p), nil
	}

	code, data := d.handle(op, params)
	d.log.Debug("handled",
		zap.String("cmd", protocol.CommandName(op)),
		zap.String("code", fmt.Sprintf("0x%02X", code)),
	)
	d.reply(code, data)
	return len(p), nil
}

// ReadFull copies queued reply bytes into p. When the queue runs dry it
// waits out timeout, then returns the bytes copied and an error wrapping
// sensor.ErrTimeout. A delayed reply becomes readable after that timeout.
func (d *Device) ReadFull(p []byte, timeout time.Duration) (int, error) {
	d.mu.Lock()
	n, _ := d.out.Read(p)
	if n == len(p) {
		d.mu.Unlock()
		return n, nil
	}

	if d.late != nil {
		d.out.Write(d.late)
		d.late = nil
	}
	d.mu.Unlock()

	time.Sleep(timeout)
	return n, fmt.Errorf("simulator: no reply within %s: %w", timeout, sensor.ErrTimeout)
}

// Flush discards every queued reply byte. A held reply is still in flight
// and survives.
func (d *Device) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out.Reset()
	d.late = nil
	return nil
}

// WaitForFinger reports whether the next GenImg would see a finger.
// It never blocks.
func (d *Device) WaitForFinger(timeout time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.touches) > 0 {
		return d.touches[0] != NoTouch
	}
	return d.placed != NoTouch
}

func (d *Device) reply(code byte, data []byte) {
	frame, err := protocol.BuildFrame(d.address, protocol.PIDAck, append([]byte{code}, data...))
	if err != nil {
		d.log.Error("build reply", zap.Error(err))
		return
	}

	f := &d.faults
	switch {
	case f.drop:
		f.drop = false
		return
	case f.corrupt:
		f.corrupt = false
		frame[len(frame)-1] ^= 0x01
	case f.truncate > 0:
		if f.truncate < len(frame) {
			frame = frame[:f.truncate]
		}
		f.truncate = 0
	}

	if f.delay {
		f.delay = false
		d.late = frame
		return
	}
	if f.hold {
		f.hold = false
		d.held = frame
		return
	}
	d.out.Write(frame)
}
