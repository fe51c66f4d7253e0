package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moffa90/go-r503/protocol"
	"github.com/moffa90/go-r503/sensor"
)

// LED cues shown by the menu.
var (
	greetingLED  = protocol.LedPattern{Mode: protocol.LedBreathing, Speed: 128, Color: protocol.LedBlue, Cycles: 2}
	enrollingLED = []protocol.LedPattern{
		{Mode: protocol.LedBreathing, Speed: 128, Color: protocol.LedYellow, Cycles: 1},
		{Mode: protocol.LedOn, Speed: 1, Color: protocol.LedYellow, Cycles: 1},
	}
	enrolledLED = protocol.LedPattern{Mode: protocol.LedRampOff, Speed: 128, Color: protocol.LedYellow, Cycles: 1}
	matchLED    = protocol.LedPattern{Mode: protocol.LedFlashing, Speed: 128, Color: protocol.LedGreen, Cycles: 2}
	missLED     = protocol.LedPattern{Mode: protocol.LedOn, Speed: 1, Color: protocol.LedRed, Cycles: 1}
	offLED      = protocol.LedPattern{Mode: protocol.LedOff, Speed: 1, Color: protocol.LedRed, Cycles: 1}
)

// Menu is the interactive operator console.
//
// It keeps the slot the next enrollment goes to: one past the highest
// occupied slot after every index read, advanced by a successful enrollment
// and moved back by a delete.
type Menu struct {
	s    *sensor.Sensor
	in   *bufio.Scanner
	out  io.Writer
	log  *zap.Logger
	hold time.Duration

	nextSlot int
}

// Option configures a Menu.
type Option func(*Menu)

// WithLogger sets the logger for failures that are not shown to the operator.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Menu) {
		if logger != nil {
			m.log = logger
		}
	}
}

// WithHold sets how long the red "not found" LED stays on.
func WithHold(d time.Duration) Option {
	return func(m *Menu) {
		m.hold = d
	}
}

// New creates a menu reading choices from in and writing to out.
func New(s *sensor.Sensor, in io.Reader, out io.Writer, opts ...Option) *Menu {
	m := &Menu{
		s:        s,
		in:       bufio.NewScanner(in),
		out:      out,
		log:      zap.NewNop(),
		hold:     time.Second,
		nextSlot: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NextSlot returns the slot the next enrollment will use.
func (m *Menu) NextSlot() int { return m.nextSlot }

// Run shows the menu until the input ends, the operator enters "q", or ctx
// is canceled. A failure to read the template index ends the session.
func (m *Menu) Run(ctx context.Context) error {
	m.led(ctx, greetingLED)

	templates, err := m.s.ReadTemplates(ctx)
	if err != nil {
		return fmt.Errorf("read templates: %w", err)
	}
	m.updateNextSlot(templates)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		templates, err := m.s.ReadTemplates(ctx)
		if err != nil {
			return fmt.Errorf("read templates: %w", err)
		}

		m.printf(" ----------------- \n")
		m.printf("Fingerprint templates: %v\n", templates)
		m.printf("0) set security level\n")
		m.printf("1) enroll print\n")
		m.printf("2) find print\n")
		m.printf("3) delete print\n")
		m.printf("4) control aura (led)\n")
		m.printf("5) read template index table\n")
		m.printf("q) quit\n")
		m.printf(" ----------------- \n")

		line, ok := m.prompt("> ")
		if !ok || line == "q" {
			return nil
		}

		switch line {
		case "0":
			m.securityLevel(ctx)
		case "1":
			m.enroll(ctx)
		case "2":
			m.find(ctx)
		case "3":
			m.delete(ctx)
		case "4":
			m.aura(ctx)
		case "5":
			m.indexTable(ctx)
		default:
			m.printf("Invalid choice: please try again\n")
		}
	}
}

func (m *Menu) securityLevel(ctx context.Context) {
	m.printf("Current security level -> %d\n", m.s.SecurityLevel())

	level, ok := m.promptInt("Enter new security level (1 - 5): ")
	if !ok {
		return
	}
	if err := m.s.SetSysParam(ctx, protocol.ParamSecurityLevel, level); err != nil {
		m.printf("Could not set the security level: %v\n", err)
		return
	}
	if _, err := m.s.ReadSysParam(ctx); err != nil {
		m.printf("Could not read the system parameters back: %v\n", err)
		return
	}

	m.printf("Security level -> %d\n", m.s.SecurityLevel())
	if m.s.SecurityLevel() == level {
		m.printf("New security level set correctly!\n")
	} else {
		m.printf("The module did not take the new security level.\n")
	}
}

func (m *Menu) enroll(ctx context.Context) {
	e, err := m.s.NewEnrollment(m.nextSlot)
	if err != nil {
		m.printf("Cannot enroll into slot %d: %v\n", m.nextSlot, err)
		return
	}

	for _, p := range enrollingLED {
		m.led(ctx, p)
	}
	defer m.led(ctx, enrolledLED)

	m.printf("Place finger on sensor, sample 1 of %d\n", e.Samples())
	for !e.State().Terminal() {
		state := e.State()
		err := e.Step(ctx)
		if e.State() != state {
			m.describe(e)
		}
		if err != nil {
			m.log.Warn("enrollment failed", zap.Int("slot", e.Slot()), zap.Error(err))
			return
		}
	}

	m.nextSlot++
}

func (m *Menu) describe(e *sensor.Enrollment) {
	switch e.State() {
	case sensor.StateCaptured:
		m.printf("Image acquired.\n")
	case sensor.StateTemplated:
		m.printf("Templated.\n")
	case sensor.StateAwaitRemoval:
		m.printf("Please remove your finger.\n")
	case sensor.StateAwaitFinger:
		m.printf("Place same finger again, sample %d of %d\n", e.Sample(), e.Samples())
	case sensor.StateFused:
		m.printf("Model created.\n")
	case sensor.StateStored:
		m.printf("Model stored in slot %d.\n", e.Slot())
	case sensor.StateFailed:
		m.printf("%s\n", explain(e.Err()))
	}
}

func (m *Menu) find(ctx context.Context) {
	m.printf("Waiting for finger...\n")

	match, err := m.s.Identify(ctx)
	if err != nil {
		if !errors.Is(err, protocol.ErrNotFound) {
			m.log.Warn("identify failed", zap.Error(err))
		}
		m.led(ctx, missLED)
		m.printf("Finger not found\n")
		m.sleep(ctx, m.hold)
		m.led(ctx, offLED)
		return
	}

	m.led(ctx, matchLED)
	m.printf("Detected #%d with confidence %d\n", match.Slot, match.Confidence)
}

func (m *Menu) delete(ctx context.Context) {
	if m.nextSlot <= 1 {
		m.printf("There is no print to delete\n")
		return
	}

	slot := m.nextSlot - 1
	if err := m.s.DeleteTemplate(ctx, slot); err != nil {
		m.printf("Failed to delete slot %d: %v\n", slot, err)
		return
	}
	m.nextSlot = slot
	m.printf("Deleted slot %d!\n", slot)
}

func (m *Menu) aura(ctx context.Context) {
	m.printf("Enter the 4 parameters for LED control...\n")

	mode, ok := m.promptInt("LED mode: 1-Breathing, 2-Flashing, 3-On, 4-Off, 5-Gradually on, 6-Gradually off: ")
	if !ok {
		return
	}
	speed, ok := m.promptInt("LED speed: 0 - 255: ")
	if !ok {
		return
	}
	color, ok := m.promptInt("LED color: 1-Red, 2-Blue, 3-Purple, 4-Green, 5-Yellow, 6-Cyan, 7-White, 8-255-Off: ")
	if !ok {
		return
	}
	times, ok := m.promptInt("LED times: 0-Infinite, 1-255, breathing and flashing only: ")
	if !ok {
		return
	}

	for _, v := range []int{mode, speed, color, times} {
		if v < 0 || v > 255 {
			m.printf("Values must be 0 - 255\n")
			return
		}
	}

	pattern := protocol.LedPattern{
		Mode:   protocol.LedMode(mode),
		Speed:  byte(speed),
		Color:  protocol.LedColor(color),
		Cycles: byte(times),
	}
	if err := m.s.LedCtrl(ctx, pattern); err != nil {
		m.printf("Error in aura control command: %v\n", err)
	}
}

func (m *Menu) indexTable(ctx context.Context) {
	templates, err := m.s.ReadTemplates(ctx)
	if err != nil {
		m.printf("Error while reading the template index table: %v\n", err)
		return
	}

	if len(templates) == 0 {
		m.printf("Template library is empty\n")
	} else {
		m.printf("Valid templates are stored in slots: %v\n", templates)
	}
	m.updateNextSlot(templates)
	m.printf("Next slot: %d\n", m.nextSlot)
}

func (m *Menu) updateNextSlot(templates []int) {
	m.nextSlot = 1
	if len(templates) > 0 {
		m.nextSlot = slices.Max(templates) + 1
	}
}

// led sends an LED cue. Cues are cosmetic, so failures are only logged.
func (m *Menu) led(ctx context.Context, p protocol.LedPattern) {
	if err := m.s.LedCtrl(ctx, p); err != nil {
		m.log.Debug("led cue failed", zap.Stringer("mode", p.Mode), zap.Stringer("color", p.Color), zap.Error(err))
	}
}

func (m *Menu) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (m *Menu) prompt(text string) (string, bool) {
	m.printf("%s", text)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) promptInt(text string) (int, bool) {
	line, ok := m.prompt(text)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		m.printf("%q is not a number\n", line)
		return 0, false
	}
	return n, true
}

func (m *Menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}

// explain turns an enrollment failure into operator wording.
func explain(err error) string {
	switch {
	case errors.Is(err, protocol.ErrEnrollMismatch):
		return "Prints did not match."
	case errors.Is(err, protocol.ErrImageMessy):
		return "Over-disorderly fingerprint image."
	case errors.Is(err, protocol.ErrFeatureFail):
		return "Too few character points or fingerprint image too small."
	case errors.Is(err, protocol.ErrInvalidImage):
		return "No valid primary image."
	case errors.Is(err, protocol.ErrImageFail):
		return "Error, image not acquired."
	case errors.Is(err, protocol.ErrBadLocation):
		return "Bad storage location."
	case errors.Is(err, protocol.ErrFlashError):
		return "Flash storage error."
	case errors.Is(err, sensor.ErrPollLimit):
		return "Gave up waiting for the finger."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Enrollment canceled."
	default:
		return fmt.Sprintf("Enrollment failed: %v", err)
	}
}
