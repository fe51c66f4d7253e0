// Package protocol implements the GROW R503 fingerprint module communication protocol.
//
// This package provides functions to build command frames and parse response frames
// according to the R503 user manual.
//
// # Protocol Overview
//
// Every packet shares one frame layout:
//
//	[HEADER(2)][ADDR(4)][PID][LEN_H][LEN_L][PAYLOAD...][SUM_H][SUM_L]
//
// Where:
//   - HEADER = 0xEF01
//   - ADDR = module address, 0xFFFFFFFF by default
//   - PID = package identifier (0x01 command, 0x02 data, 0x07 acknowledge, 0x08 end of data)
//   - LEN = payload length + 2, big-endian
//   - SUM = low 16 bits of PID + LEN_H + LEN_L + every payload byte, big-endian
//
// A command payload starts with the instruction code; an acknowledge payload
// starts with the confirmation code.
//
// # Command Builders
//
// Use the Build* functions to create command frames:
//
//	frame, err := protocol.BuildGenImgCmd(protocol.DefaultAddress)
//	frame, err := protocol.BuildStoreCmd(addr, 1, slot)
//	// ... etc
//
// # Response Parsers
//
// Use ParseResponse to validate a frame and extract the confirmation code:
//
//	resp, err := protocol.ParseResponse(frame, addr)
//	if resp.Code != protocol.CodeOK {
//	    return &protocol.DeviceError{Op: protocol.CmdSearch, Code: resp.Code}
//	}
//
// Then use the Parse* functions for command-specific data:
//
//	match, err := protocol.ParseSearchResponse(resp.Data)
//	slots, err := protocol.ParseIndexTableResponse(0, resp.Data)
//
// # Error Handling
//
// Malformed frames produce a *FrameError whose Kind tells a bad header from a
// truncated frame or a checksum mismatch. Non-success confirmation codes are
// reported as *DeviceError, which pairs the code with the instruction that
// produced it; the same numeric code means different things for different
// instructions, so compare against the sentinels with errors.Is:
//
//	if errors.Is(err, protocol.ErrNoFinger) {
//	    // keep polling
//	}
package protocol
