package protocol

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// ParseHeader validates the fixed 9-byte frame header and returns the number
// of bytes that follow it (payload plus checksum).
//
// Header structure:
//
//	[HEADER(2)][ADDR(4)][PID][LEN_H][LEN_L]
//
// Transports reading a byte stream use it to learn how much more to read.
func ParseHeader(hdr []byte, addr uint32) (int, error) {
	if len(hdr) < HeaderSize {
		return 0, &FrameError{Kind: Truncated, Detail: fmt.Sprintf("header has %d bytes, need %d", len(hdr), HeaderSize)}
	}

	if got := binary.BigEndian.Uint16(hdr[0:2]); got != Header {
		return 0, &FrameError{Kind: BadHeader, Detail: fmt.Sprintf("got 0x%04X, expected 0x%04X", got, Header)}
	}

	if got := binary.BigEndian.Uint32(hdr[2:6]); got != addr {
		return 0, &FrameError{Kind: BadAddress, Detail: fmt.Sprintf("got 0x%08X, expected 0x%08X", got, addr)}
	}

	length := int(binary.BigEndian.Uint16(hdr[7:9]))
	if length < ChecksumSize {
		return 0, &FrameError{Kind: LengthMismatch, Detail: fmt.Sprintf("declared length %d is shorter than the checksum", length)}
	}
	if length > MaxPayloadSize+ChecksumSize {
		return 0, &FrameError{Kind: LengthMismatch, Detail: fmt.Sprintf("declared length %d exceeds maximum %d", length, MaxPayloadSize+ChecksumSize)}
	}

	return length, nil
}

// ParseResponse validates an acknowledge frame and extracts the confirmation
// code and trailing data. The code is returned as-is; interpreting it is left
// to the caller, which knows which command it answers.
//
// Response frame structure:
//
//	[HEADER(2)][ADDR(4)][PID=0x07][LEN_H][LEN_L][CODE][DATA...][SUM_H][SUM_L]
func ParseResponse(frame []byte, addr uint32) (*Response, error) {
	pid, payload, err := ParseFrame(frame, addr)
	if err != nil {
		return nil, err
	}

	if pid != PIDAck {
		return nil, &FrameError{Kind: UnexpectedPacket, Detail: fmt.Sprintf("got 0x%02X, expected 0x%02X", pid, PIDAck)}
	}

	if len(payload) == 0 {
		return nil, &FrameError{Kind: EmptyPayload}
	}

	resp := &Response{Code: payload[0]}
	if len(payload) > 1 {
		resp.Data = payload[1:]
	}
	return resp, nil
}

// ParseFrame validates any frame and returns its package id and payload.
// The simulator uses it to decode command frames.
func ParseFrame(frame []byte, addr uint32) (pid byte, payload []byte, err error) {
	length, err := ParseHeader(frame, addr)
	if err != nil {
		return 0, nil, err
	}

	expectedLen := HeaderSize + length
	if len(frame) < expectedLen {
		return 0, nil, &FrameError{Kind: Truncated, Detail: fmt.Sprintf("got %d bytes, declared %d", len(frame), expectedLen)}
	}
	if len(frame) > expectedLen {
		return 0, nil, &FrameError{Kind: LengthMismatch, Detail: fmt.Sprintf("got %d bytes, declared %d", len(frame), expectedLen)}
	}

	checksumExpected := binary.BigEndian.Uint16(frame[expectedLen-ChecksumSize:])
	checksumActual := calculatePacketChecksum(frame[6 : expectedLen-ChecksumSize])
	if checksumExpected != checksumActual {
		return 0, nil, &FrameError{
			Kind:   ChecksumMismatch,
			Detail: fmt.Sprintf("got 0x%04X, frame carries 0x%04X", checksumActual, checksumExpected),
		}
	}

	return frame[6], frame[HeaderSize : expectedLen-ChecksumSize], nil
}

// ResponseDataSize returns the number of data bytes that follow the
// confirmation code in a successful reply to op.
func ResponseDataSize(op byte) int {
	switch op {
	case CmdSearch:
		return SearchResponseSize
	case CmdReadIndexTable:
		return IndexTableResponseSize
	case CmdReadSysPara:
		return SysParamsResponseSize
	case CmdTemplateNum:
		return TemplateCountResponseSize
	default:
		return 0
	}
}

func dataLengthError(op byte, got, want int) error {
	return &FrameError{
		Kind:   LengthMismatch,
		Detail: fmt.Sprintf("%s reply carries %d data bytes, expected %d", CommandName(op), got, want),
	}
}

// ParseSearchResponse parses the Search command response data.
//
// Data format (SearchResponseSize bytes):
//
//	[PAGE_H][PAGE_L][SCORE_H][SCORE_L]
func ParseSearchResponse(data []byte) (*SearchResult, error) {
	if len(data) != SearchResponseSize {
		return nil, dataLengthError(CmdSearch, len(data), SearchResponseSize)
	}

	return &SearchResult{
		Slot:       int(binary.BigEndian.Uint16(data[0:2])),
		Confidence: int(binary.BigEndian.Uint16(data[2:4])),
	}, nil
}

// ParseIndexTableResponse parses one page of the template index table.
// Bit n of byte i marks slot indexPage*256 + i*8 + n as occupied.
// Returns the occupied slots in ascending order.
func ParseIndexTableResponse(indexPage int, data []byte) ([]int, error) {
	if len(data) != IndexTableResponseSize {
		return nil, dataLengthError(CmdReadIndexTable, len(data), IndexTableResponseSize)
	}

	base := indexPage * IndexPageSlots
	slots := make([]int, 0, 8)
	for i, b := range data {
		for b != 0 {
			n := bits.TrailingZeros8(b)
			slots = append(slots, base+i*8+n)
			b &= b - 1
		}
	}
	return slots, nil
}

// ParseSysParamsResponse parses the ReadSysPara command response.
//
// Data format (16 bytes, all big-endian):
//
//	[STATUS(2)][SYSTEM_ID(2)][LIBRARY_SIZE(2)][SECURITY_LEVEL(2)][ADDR(4)][PACKET_SIZE(2)][BAUD(2)]
func ParseSysParamsResponse(data []byte) (*SysParams, error) {
	if len(data) != SysParamsResponseSize {
		return nil, dataLengthError(CmdReadSysPara, len(data), SysParamsResponseSize)
	}

	return &SysParams{
		StatusRegister: binary.BigEndian.Uint16(data[0:2]),
		SystemID:       binary.BigEndian.Uint16(data[2:4]),
		Capacity:       int(binary.BigEndian.Uint16(data[4:6])),
		SecurityLevel:  int(binary.BigEndian.Uint16(data[6:8])),
		Address:        binary.BigEndian.Uint32(data[8:12]),
		PacketSizeCode: int(binary.BigEndian.Uint16(data[12:14])),
		BaudMultiplier: int(binary.BigEndian.Uint16(data[14:16])),
	}, nil
}

// ParseTemplateCountResponse parses the TempleteNum command response.
func ParseTemplateCountResponse(data []byte) (int, error) {
	if len(data) != TemplateCountResponseSize {
		return 0, dataLengthError(CmdTemplateNum, len(data), TemplateCountResponseSize)
	}
	return int(binary.BigEndian.Uint16(data)), nil
}

// EncodeSysParams is the inverse of ParseSysParamsResponse.
func EncodeSysParams(p SysParams) []byte {
	data := make([]byte, 0, SysParamsResponseSize)
	data = binary.BigEndian.AppendUint16(data, p.StatusRegister)
	data = binary.BigEndian.AppendUint16(data, p.SystemID)
	data = binary.BigEndian.AppendUint16(data, uint16(p.Capacity))
	data = binary.BigEndian.AppendUint16(data, uint16(p.SecurityLevel))
	data = binary.BigEndian.AppendUint32(data, p.Address)
	data = binary.BigEndian.AppendUint16(data, uint16(p.PacketSizeCode))
	return binary.BigEndian.AppendUint16(data, uint16(p.BaudMultiplier))
}

// EncodeIndexTable builds one index table page from a set of occupied slots.
// Slots outside the page are ignored.
func EncodeIndexTable(indexPage int, slots []int) []byte {
	data := make([]byte, IndexTableResponseSize)
	base := indexPage * IndexPageSlots
	for _, s := range slots {
		off := s - base
		if off < 0 || off >= IndexPageSlots {
			continue
		}
		data[off/8] |= 1 << (off % 8)
	}
	return data
}
