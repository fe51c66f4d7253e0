package protocol

import (
	"encoding/binary"
	"fmt"
)

// BuildCommand constructs a command frame for the module at addr.
// The instruction code is the first payload byte, followed by params.
//
// Frame structure:
//
//	[HEADER(2)][ADDR(4)][PID=0x01][LEN_H][LEN_L][CMD][PARAMS...][SUM_H][SUM_L]
//
// LEN counts the payload plus the checksum. Returns the complete frame ready
// to send, or an *EncodingError if the payload does not fit in one frame.
func BuildCommand(addr uint32, cmd byte, params ...byte) ([]byte, error) {
	return buildFrame(addr, PIDCommand, append([]byte{cmd}, params...))
}

// BuildFrame constructs a frame of any package type. The simulator uses it to
// build acknowledge frames; hosts only ever send PIDCommand.
func BuildFrame(addr uint32, pid byte, payload []byte) ([]byte, error) {
	return buildFrame(addr, pid, payload)
}

func buildFrame(addr uint32, pid byte, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, &EncodingError{Field: "payload length", Value: 0, Reason: "payload cannot be empty"}
	}
	if len(payload) > MaxPayloadSize {
		return nil, &EncodingError{
			Field:  "payload length",
			Value:  len(payload),
			Reason: fmt.Sprintf("exceeds maximum %d bytes", MaxPayloadSize),
		}
	}

	frame := make([]byte, HeaderSize, HeaderSize+len(payload)+ChecksumSize)
	binary.BigEndian.PutUint16(frame[0:2], Header)
	binary.BigEndian.PutUint32(frame[2:6], addr)
	frame[6] = pid
	binary.BigEndian.PutUint16(frame[7:9], uint16(len(payload)+ChecksumSize))

	frame = append(frame, payload...)

	// Checksum covers PID, LEN and payload
	return binary.BigEndian.AppendUint16(frame, calculatePacketChecksum(frame[6:])), nil
}

// BuildGenImgCmd constructs a GenImg command frame.
// Captures a finger image into the image buffer.
func BuildGenImgCmd(addr uint32) ([]byte, error) {
	return BuildCommand(addr, CmdGenImg)
}

// BuildGenCharCmd constructs a GenChar (Img2Tz) command frame.
// Extracts features from the image buffer into character buffer bufferID.
//
// Payload: [CMD][BUFFER_ID]
func BuildGenCharCmd(addr uint32, bufferID int) ([]byte, error) {
	if bufferID < MinBuffer || bufferID > MaxBuffer {
		return nil, &EncodingError{Field: "buffer id", Value: bufferID, Reason: fmt.Sprintf("must be %d..%d", MinBuffer, MaxBuffer)}
	}
	return BuildCommand(addr, CmdGenChar, byte(bufferID))
}

// BuildRegModelCmd constructs a RegModel command frame.
// Combines the populated character buffers into one template.
func BuildRegModelCmd(addr uint32) ([]byte, error) {
	return BuildCommand(addr, CmdRegModel)
}

// BuildStoreCmd constructs a Store command frame.
//
// Payload: [CMD][BUFFER_ID][PAGE_H][PAGE_L]
func BuildStoreCmd(addr uint32, bufferID int, page int) ([]byte, error) {
	if bufferID < MinBuffer || bufferID > MaxBuffer {
		return nil, &EncodingError{Field: "buffer id", Value: bufferID, Reason: fmt.Sprintf("must be %d..%d", MinBuffer, MaxBuffer)}
	}
	if err := checkPage(page); err != nil {
		return nil, err
	}
	return BuildCommand(addr, CmdStore, byte(bufferID), byte(page>>8), byte(page))
}

// BuildDeleteCharCmd constructs a DeletChar command frame.
// Deletes count templates starting at page.
//
// Payload: [CMD][PAGE_H][PAGE_L][N_H][N_L]
func BuildDeleteCharCmd(addr uint32, page int, count int) ([]byte, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}
	if count < 1 || count > 0xFFFF {
		return nil, &EncodingError{Field: "delete count", Value: count, Reason: "must be 1..65535"}
	}
	return BuildCommand(addr, CmdDeleteChar, byte(page>>8), byte(page), byte(count>>8), byte(count))
}

// BuildEmptyCmd constructs an Empty command frame.
// Deletes every template in the library.
func BuildEmptyCmd(addr uint32) ([]byte, error) {
	return BuildCommand(addr, CmdEmpty)
}

// BuildSearchCmd constructs a Search command frame.
// Searches count pages starting at start for the template in bufferID.
//
// Payload: [CMD][BUFFER_ID][START_H][START_L][COUNT_H][COUNT_L]
func BuildSearchCmd(addr uint32, bufferID int, start int, count int) ([]byte, error) {
	if bufferID < MinBuffer || bufferID > MaxBuffer {
		return nil, &EncodingError{Field: "buffer id", Value: bufferID, Reason: fmt.Sprintf("must be %d..%d", MinBuffer, MaxBuffer)}
	}
	if err := checkPage(start); err != nil {
		return nil, err
	}
	if count < 1 || count > 0xFFFF {
		return nil, &EncodingError{Field: "search count", Value: count, Reason: "must be 1..65535"}
	}
	return BuildCommand(addr, CmdSearch, byte(bufferID), byte(start>>8), byte(start), byte(count>>8), byte(count))
}

// BuildSetSysParaCmd constructs a SetSysPara command frame.
// The value is range-checked against the register it targets.
//
// Payload: [CMD][PARAM][VALUE]
func BuildSetSysParaCmd(addr uint32, param int, value int) ([]byte, error) {
	lo, hi := 0, 0
	switch param {
	case ParamBaudRate:
		lo, hi = 1, 12
	case ParamSecurityLevel:
		lo, hi = MinSecurityLevel, MaxSecurityLevel
	case ParamPacketSize:
		lo, hi = 0, 3
	default:
		return nil, &EncodingError{Field: "system parameter", Value: param, Reason: "must be 4, 5 or 6"}
	}
	if value < lo || value > hi {
		return nil, &EncodingError{
			Field:  fmt.Sprintf("value for parameter %d", param),
			Value:  value,
			Reason: fmt.Sprintf("must be %d..%d", lo, hi),
		}
	}
	return BuildCommand(addr, CmdSetSysPara, byte(param), byte(value))
}

// BuildReadSysParaCmd constructs a ReadSysPara command frame.
func BuildReadSysParaCmd(addr uint32) ([]byte, error) {
	return BuildCommand(addr, CmdReadSysPara)
}

// BuildVerifyPasswordCmd constructs a VfyPwd command frame.
//
// Payload: [CMD][PWD(4)]
func BuildVerifyPasswordCmd(addr uint32, password uint32) ([]byte, error) {
	return BuildCommand(addr, CmdVerifyPassword, binary.BigEndian.AppendUint32(nil, password)...)
}

// BuildTemplateNumCmd constructs a TempleteNum command frame.
func BuildTemplateNumCmd(addr uint32) ([]byte, error) {
	return BuildCommand(addr, CmdTemplateNum)
}

// BuildReadIndexTableCmd constructs a ReadIndexTable command frame for one index page.
//
// Payload: [CMD][INDEX_PAGE]
func BuildReadIndexTableCmd(addr uint32, indexPage int) ([]byte, error) {
	if indexPage < 0 || indexPage > MaxIndexPage {
		return nil, &EncodingError{Field: "index page", Value: indexPage, Reason: fmt.Sprintf("must be 0..%d", MaxIndexPage)}
	}
	return BuildCommand(addr, CmdReadIndexTable, byte(indexPage))
}

// BuildAuraLedConfigCmd constructs an AuraLedConfig command frame.
//
// Payload: [CMD][CTRL][SPEED][COLOR][TIMES]
func BuildAuraLedConfigCmd(addr uint32, p LedPattern) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return BuildCommand(addr, CmdAuraLedConfig, byte(p.Mode), p.Speed, byte(p.Color), p.Cycles)
}

func checkPage(page int) error {
	if page < 0 || page > 0xFFFF {
		return &EncodingError{Field: "page id", Value: page, Reason: "must be 0..65535"}
	}
	return nil
}
