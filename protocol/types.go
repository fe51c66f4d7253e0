package protocol

import "fmt"

// Response is a decoded acknowledge frame.
type Response struct {
	// Code is the raw confirmation code (first payload byte)
	Code byte

	// Data holds any bytes following the confirmation code
	Data []byte
}

// SearchResult is returned by a successful Search command.
type SearchResult struct {
	// Slot is the page id of the matched template
	Slot int

	// Confidence is the match score reported by the module
	Confidence int
}

// SysParams holds the basic system parameters.
// Returned by the ReadSysPara command.
type SysParams struct {
	// StatusRegister is the module status register
	StatusRegister uint16

	// SystemID is the fixed system identifier code
	SystemID uint16

	// Capacity is the fingerprint library size
	Capacity int

	// SecurityLevel is the matching security level (1..5)
	SecurityLevel int

	// Address is the module address
	Address uint32

	// PacketSizeCode selects the data package length (0..3 → 32..256 bytes)
	PacketSizeCode int

	// BaudMultiplier is the baud rate divided by 9600
	BaudMultiplier int
}

// PacketSize returns the data package length in bytes.
func (p SysParams) PacketSize() int {
	return 32 << p.PacketSizeCode
}

// BaudRate returns the serial baud rate the module is configured for.
func (p SysParams) BaudRate() int {
	return p.BaudMultiplier * 9600
}

// LedMode selects the aura LED effect.
type LedMode byte

// LED effects.
const (
	LedBreathing LedMode = 0x01
	LedFlashing  LedMode = 0x02
	LedOn        LedMode = 0x03
	LedOff       LedMode = 0x04
	LedRampOn    LedMode = 0x05
	LedRampOff   LedMode = 0x06
)

func (m LedMode) String() string {
	switch m {
	case LedBreathing:
		return "breathing"
	case LedFlashing:
		return "flashing"
	case LedOn:
		return "always-on"
	case LedOff:
		return "always-off"
	case LedRampOn:
		return "ramp-on"
	case LedRampOff:
		return "ramp-off"
	default:
		return fmt.Sprintf("mode(0x%02X)", byte(m))
	}
}

// LedColor selects the aura LED colour. Every value from LedColorOff upwards turns the LED off.
type LedColor byte

// LED colours.
const (
	LedRed      LedColor = 0x01
	LedBlue     LedColor = 0x02
	LedPurple   LedColor = 0x03
	LedGreen    LedColor = 0x04
	LedYellow   LedColor = 0x05
	LedCyan     LedColor = 0x06
	LedWhite    LedColor = 0x07
	LedColorOff LedColor = 0x08
)

func (c LedColor) String() string {
	switch c {
	case LedRed:
		return "red"
	case LedBlue:
		return "blue"
	case LedPurple:
		return "purple"
	case LedGreen:
		return "green"
	case LedYellow:
		return "yellow"
	case LedCyan:
		return "cyan"
	case LedWhite:
		return "white"
	case 0:
		return "color(0x00)"
	default:
		return "off"
	}
}

// LedPattern is one aura LED instruction.
type LedPattern struct {
	Mode  LedMode
	Speed byte
	Color LedColor

	// Cycles is the repeat count, 0 means infinite. Only breathing and flashing use it.
	Cycles byte
}

// Validate reports whether the pattern can be sent to the module.
func (p LedPattern) Validate() error {
	if p.Mode < LedBreathing || p.Mode > LedRampOff {
		return &EncodingError{Field: "led mode", Value: int(p.Mode), Reason: "must be 1..6"}
	}
	if p.Color == 0 {
		return &EncodingError{Field: "led color", Value: 0, Reason: "must be 1..255"}
	}
	return nil
}
