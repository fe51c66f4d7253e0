package protocol

// Frame structure constants per the R503 user manual.
const (
	// Header is the 2-byte frame start marker (0xEF01)
	Header = 0xEF01

	// DefaultAddress is the factory default (broadcast) module address
	DefaultAddress = 0xFFFFFFFF

	// DefaultPassword is the factory default handshake password
	DefaultPassword = 0x00000000

	// HeaderSize is the number of bytes before the payload:
	// HEADER(2) + ADDR(4) + PID(1) + LEN(2)
	HeaderSize = 9

	// ChecksumSize is the size of the trailing checksum
	ChecksumSize = 2

	// MinFrameSize is the smallest valid response: header + 1 confirmation byte + checksum
	MinFrameSize = HeaderSize + 1 + ChecksumSize

	// MaxPayloadSize is the largest payload (opcode/code + data) one frame may carry
	MaxPayloadSize = 256
)

// Package identifiers.
const (
	// PIDCommand marks a command packet sent by the host
	PIDCommand = 0x01

	// PIDData marks a data packet that is followed by more packets
	PIDData = 0x02

	// PIDAck marks an acknowledge packet sent by the module
	PIDAck = 0x07

	// PIDEndData marks the last data packet of a transfer
	PIDEndData = 0x08
)

// Instruction codes.
const (
	// CmdGenImg captures a finger image into the image buffer
	CmdGenImg = 0x01

	// CmdGenChar generates a character file from the image buffer
	CmdGenChar = 0x02

	// CmdSearch searches the library for the character file in a buffer
	CmdSearch = 0x04

	// CmdRegModel combines the character buffers into a template
	CmdRegModel = 0x05

	// CmdStore stores a template into flash
	CmdStore = 0x06

	// CmdDeleteChar deletes templates from flash
	CmdDeleteChar = 0x0C

	// CmdEmpty deletes every template in flash
	CmdEmpty = 0x0D

	// CmdSetSysPara writes one system register
	CmdSetSysPara = 0x0E

	// CmdReadSysPara reads the basic system parameters
	CmdReadSysPara = 0x0F

	// CmdVerifyPassword performs the password handshake
	CmdVerifyPassword = 0x13

	// CmdTemplateNum reads the number of valid templates
	CmdTemplateNum = 0x1D

	// CmdReadIndexTable reads one page of the template index table
	CmdReadIndexTable = 0x1F

	// CmdAuraLedConfig drives the aura LED ring
	CmdAuraLedConfig = 0x35
)

// Confirmation codes.
const (
	// CodeOK indicates the command completed
	CodeOK = 0x00

	// CodePacketError indicates the module failed to receive the packet
	CodePacketError = 0x01

	// CodeNoFinger indicates no finger is on the sensor
	CodeNoFinger = 0x02

	// CodeImageFail indicates the image could not be captured
	CodeImageFail = 0x03

	// CodeImageMessy indicates the image is too disorderly to extract features
	CodeImageMessy = 0x06

	// CodeFeatureFail indicates too few minutiae or an over-small image
	CodeFeatureFail = 0x07

	// CodeNoMatch indicates two templates do not match
	CodeNoMatch = 0x08

	// CodeNotFound indicates no matching template in the library
	CodeNotFound = 0x09

	// CodeEnrollMismatch indicates the character files could not be combined
	CodeEnrollMismatch = 0x0A

	// CodeBadLocation indicates the page id is outside the library
	CodeBadLocation = 0x0B

	// CodeDBReadFail indicates the template could not be read or is invalid
	CodeDBReadFail = 0x0C

	// CodeDeleteFail indicates the template could not be deleted
	CodeDeleteFail = 0x10

	// CodeDBClearFail indicates the library could not be cleared
	CodeDBClearFail = 0x11

	// CodePasswordFail indicates a wrong handshake password
	CodePasswordFail = 0x13

	// CodeInvalidImage indicates the image buffer lacks a valid primary image
	CodeInvalidImage = 0x15

	// CodeFlashError indicates a flash write failure
	CodeFlashError = 0x18

	// CodeUndefined indicates an undefined error
	CodeUndefined = 0x19

	// CodeInvalidRegister indicates an invalid register number
	CodeInvalidRegister = 0x1A

	// CodeBadRegisterConfig indicates incorrect register content
	CodeBadRegisterConfig = 0x1B

	// CodeLibraryFull indicates the fingerprint library is full
	CodeLibraryFull = 0x1F

	// CodeAddressError indicates the address code is incorrect
	CodeAddressError = 0x20

	// CodePasswordRequired indicates the password must be verified first
	CodePasswordRequired = 0x21

	// CodeTemplateEmpty indicates the addressed template is empty
	CodeTemplateEmpty = 0x22

	// CodeLibraryEmpty indicates the library holds no templates
	CodeLibraryEmpty = 0x24

	// CodeTimeout indicates the module timed out internally
	CodeTimeout = 0x26

	// CodeAlreadyExists indicates the fingerprint is already enrolled
	CodeAlreadyExists = 0x27

	// CodeHardwareError indicates a sensor hardware error
	CodeHardwareError = 0x29

	// CodeUnsupported indicates the instruction is not supported
	CodeUnsupported = 0xFC

	// CodeHardwareFault indicates a module hardware fault
	CodeHardwareFault = 0xFD

	// CodeExecFail indicates the command failed to execute
	CodeExecFail = 0xFE
)

// System parameter register numbers accepted by SetSysPara.
const (
	// ParamBaudRate is the baud rate control register (N x 9600, N = 1..12)
	ParamBaudRate = 4

	// ParamSecurityLevel is the matching security level register (1..5)
	ParamSecurityLevel = 5

	// ParamPacketSize is the data package length register (0..3 → 32..256 bytes)
	ParamPacketSize = 6
)

// Limits of the R503 module.
const (
	// MinBuffer and MaxBuffer bound the character buffer ids
	MinBuffer = 1
	MaxBuffer = 6

	// MinSecurityLevel and MaxSecurityLevel bound the matching strictness
	MinSecurityLevel = 1
	MaxSecurityLevel = 5

	// DefaultCapacity is the template library size of the R503
	DefaultCapacity = 200

	// IndexPageSlots is the number of slots described by one index table page
	IndexPageSlots = 256

	// MaxIndexPage is the highest index table page number
	MaxIndexPage = 3
)

// Response data sizes, excluding the confirmation code.
const (
	// SearchResponseSize is the data size of a Search response (page id + score)
	SearchResponseSize = 4

	// IndexTableResponseSize is the data size of a ReadIndexTable response
	IndexTableResponseSize = 32

	// SysParamsResponseSize is the data size of a ReadSysPara response
	SysParamsResponseSize = 16

	// TemplateCountResponseSize is the data size of a TemplateNum response
	TemplateCountResponseSize = 2
)
