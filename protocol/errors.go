package protocol

import (
	"errors"
	"fmt"
)

// FrameErrorKind classifies a malformed frame.
type FrameErrorKind int

// Frame error kinds.
const (
	// BadHeader means the header sentinel did not match
	BadHeader FrameErrorKind = iota + 1

	// BadAddress means the frame came from another module address
	BadAddress

	// Truncated means fewer bytes were available than the length field declares
	Truncated

	// LengthMismatch means bytes remain after the declared frame end
	LengthMismatch

	// ChecksumMismatch means the trailing checksum disagrees with the frame contents
	ChecksumMismatch

	// UnexpectedPacket means a response carried a package id other than acknowledge
	UnexpectedPacket

	// EmptyPayload means an acknowledge frame carried no confirmation code
	EmptyPayload
)

func (k FrameErrorKind) String() string {
	switch k {
	case BadHeader:
		return "bad header"
	case BadAddress:
		return "bad address"
	case Truncated:
		return "truncated frame"
	case LengthMismatch:
		return "length mismatch"
	case ChecksumMismatch:
		return "checksum mismatch"
	case UnexpectedPacket:
		return "unexpected package id"
	case EmptyPayload:
		return "empty payload"
	default:
		return fmt.Sprintf("frame error %d", int(k))
	}
}

// FrameError reports a response frame that failed validation.
// A frame with this error must never be interpreted.
type FrameError struct {
	Kind   FrameErrorKind
	Detail string
}

func (e *FrameError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is matches another *FrameError of the same kind, so errors.Is(err, &FrameError{Kind: ChecksumMismatch}) works.
func (e *FrameError) Is(target error) bool {
	t, ok := target.(*FrameError)
	return ok && t.Kind == e.Kind
}

// IsFrameError returns true if err is or wraps a *FrameError.
func IsFrameError(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe)
}

// EncodingError reports a command that cannot be encoded.
type EncodingError struct {
	Field  string
	Value  int
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

// DeviceError is a well-formed response carrying a non-success confirmation code.
// The code is always interpreted against the command that produced it.
type DeviceError struct {
	// Op is the instruction code of the failed command
	Op byte

	// Code is the raw confirmation code
	Code byte
}

func (e *DeviceError) Error() string {
	desc, ok := DescribeCode(e.Op, e.Code)
	if !ok {
		desc = "undocumented confirmation code"
	}
	return fmt.Sprintf("%s failed: %s (0x%02X)", CommandName(e.Op), desc, e.Code)
}

// Is reports whether target is a *DeviceError for the same command and code.
// A search of an empty library also matches ErrNotFound.
func (e *DeviceError) Is(target error) bool {
	t, ok := target.(*DeviceError)
	if !ok || t.Op != e.Op {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return e.Op == CmdSearch && e.Code == CodeLibraryEmpty && t.Code == CodeNotFound
}

// Known reports whether the code is documented for the command.
func (e *DeviceError) Known() bool {
	_, ok := DescribeCode(e.Op, e.Code)
	return ok
}

// Confirmation outcomes, tagged with the command family they belong to.
var (
	ErrNoFinger          = &DeviceError{Op: CmdGenImg, Code: CodeNoFinger}
	ErrImageFail         = &DeviceError{Op: CmdGenImg, Code: CodeImageFail}
	ErrImageMessy        = &DeviceError{Op: CmdGenChar, Code: CodeImageMessy}
	ErrFeatureFail       = &DeviceError{Op: CmdGenChar, Code: CodeFeatureFail}
	ErrInvalidImage      = &DeviceError{Op: CmdGenChar, Code: CodeInvalidImage}
	ErrEnrollMismatch    = &DeviceError{Op: CmdRegModel, Code: CodeEnrollMismatch}
	ErrBadLocation       = &DeviceError{Op: CmdStore, Code: CodeBadLocation}
	ErrFlashError        = &DeviceError{Op: CmdStore, Code: CodeFlashError}
	ErrDeleteFail        = &DeviceError{Op: CmdDeleteChar, Code: CodeDeleteFail}
	ErrDeleteBadLocation = &DeviceError{Op: CmdDeleteChar, Code: CodeBadLocation}
	ErrClearFail         = &DeviceError{Op: CmdEmpty, Code: CodeDBClearFail}
	ErrNotFound          = &DeviceError{Op: CmdSearch, Code: CodeNotFound}
	ErrInvalidRegister   = &DeviceError{Op: CmdSetSysPara, Code: CodeInvalidRegister}
	ErrBadRegisterConfig = &DeviceError{Op: CmdSetSysPara, Code: CodeBadRegisterConfig}
	ErrPasswordFail      = &DeviceError{Op: CmdVerifyPassword, Code: CodePasswordFail}
)

// commonCodes may be returned by any instruction.
var commonCodes = map[byte]string{
	CodePacketError:      "error receiving packet",
	CodeAddressError:     "address code incorrect",
	CodePasswordRequired: "password must be verified",
	CodeUnsupported:      "unsupported command",
	CodeHardwareFault:    "hardware error",
	CodeExecFail:         "command execution failure",
}

// familyCodes lists the codes each instruction documents beyond commonCodes.
var familyCodes = map[byte]map[byte]string{
	CmdGenImg: {
		CodeNoFinger:  "no finger on sensor",
		CodeImageFail: "failed to capture image",
	},
	CmdGenChar: {
		CodeImageMessy:   "over-disorderly fingerprint image",
		CodeFeatureFail:  "too few character points or image too small",
		CodeInvalidImage: "no valid primary image",
		CodeBadLocation:  "invalid buffer id",
	},
	CmdSearch: {
		CodeNotFound:     "no matching fingerprint",
		CodeBadLocation:  "search range outside library",
		CodeLibraryEmpty: "fingerprint library is empty",
	},
	CmdRegModel: {
		CodeEnrollMismatch: "character files do not match",
	},
	CmdStore: {
		CodeBadLocation: "page id outside library",
		CodeFlashError:  "error writing flash",
	},
	CmdDeleteChar: {
		CodeBadLocation: "page id outside library",
		CodeDeleteFail:  "failed to delete template",
	},
	CmdEmpty: {
		CodeDBClearFail: "failed to clear library",
	},
	CmdSetSysPara: {
		CodeInvalidRegister:   "invalid register number",
		CodeBadRegisterConfig: "invalid register content",
	},
	CmdReadSysPara: {},
	CmdVerifyPassword: {
		CodePasswordFail: "wrong password",
	},
	CmdTemplateNum: {},
	CmdReadIndexTable: {
		CodeBadLocation: "invalid index page",
	},
	CmdAuraLedConfig: {},
}

// DescribeCode returns the meaning of code in reply to instruction op,
// and false when the code is not documented for that instruction.
func DescribeCode(op, code byte) (string, bool) {
	if code == CodeOK {
		return "success", true
	}
	if desc, ok := familyCodes[op][code]; ok {
		return desc, true
	}
	desc, ok := commonCodes[code]
	return desc, ok
}

// CommandName returns a readable name for an instruction code.
func CommandName(op byte) string {
	switch op {
	case CmdGenImg:
		return "generate image"
	case CmdGenChar:
		return "generate char"
	case CmdSearch:
		return "search"
	case CmdRegModel:
		return "generate template"
	case CmdStore:
		return "store template"
	case CmdDeleteChar:
		return "delete template"
	case CmdEmpty:
		return "empty library"
	case CmdSetSysPara:
		return "set system parameter"
	case CmdReadSysPara:
		return "read system parameters"
	case CmdVerifyPassword:
		return "verify password"
	case CmdTemplateNum:
		return "template count"
	case CmdReadIndexTable:
		return "read index table"
	case CmdAuraLedConfig:
		return "led control"
	default:
		return fmt.Sprintf("command 0x%02X", op)
	}
}
