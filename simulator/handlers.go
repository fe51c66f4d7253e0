package simulator

import (
	"encoding/binary"
	"sort"

	"github.com/moffa90/go-r503/protocol"
)

// handle runs one instruction against the device state and returns the
// confirmation code plus any reply data.
func (d *Device) handle(op byte, params []byte) (byte, []byte) {
	switch op {
	case protocol.CmdGenImg:
		return d.handleGenImg()
	case protocol.CmdGenChar:
		return d.handleGenChar(params)
	case protocol.CmdRegModel:
		return d.handleRegModel()
	case protocol.CmdStore:
		return d.handleStore(params)
	case protocol.CmdDeleteChar:
		return d.handleDeleteChar(params)
	case protocol.CmdEmpty:
		d.library = make(map[int]Touch)
		return protocol.CodeOK, nil
	case protocol.CmdSearch:
		return d.handleSearch(params)
	case protocol.CmdSetSysPara:
		return d.handleSetSysPara(params)
	case protocol.CmdReadSysPara:
		return protocol.CodeOK, protocol.EncodeSysParams(d.sysParams())
	case protocol.CmdVerifyPassword:
		return d.handleVerifyPassword(params)
	case protocol.CmdTemplateNum:
		return protocol.CodeOK, binary.BigEndian.AppendUint16(nil, uint16(len(d.library)))
	case protocol.CmdReadIndexTable:
		return d.handleReadIndexTable(params)
	case protocol.CmdAuraLedConfig:
		return d.handleAuraLed(params)
	default:
		return protocol.CodeUnsupported, nil
	}
}

func (d *Device) nextTouch() Touch {
	if len(d.touches) > 0 {
		t := d.touches[0]
		d.touches = d.touches[1:]
		return t
	}
	if d.placed != NoTouch || d.autoTouch == NoTouch {
		return d.placed
	}

	d.autoPhase = !d.autoPhase
	if d.autoPhase {
		return d.autoTouch
	}
	return NoTouch
}

func (d *Device) handleGenImg() (byte, []byte) {
	switch t := d.nextTouch(); t {
	case NoTouch:
		return protocol.CodeNoFinger, nil
	case Smudge:
		d.image = NoTouch
		return protocol.CodeImageFail, nil
	default:
		d.image = t
		return protocol.CodeOK, nil
	}
}

// Payload: [BUFFER_ID]
func (d *Device) handleGenChar(params []byte) (byte, []byte) {
	if len(params) != 1 {
		return protocol.CodePacketError, nil
	}
	buf := int(params[0])
	if buf < protocol.MinBuffer || buf > protocol.MaxBuffer {
		return protocol.CodeBadLocation, nil
	}
	if d.image == NoTouch {
		return protocol.CodeInvalidImage, nil
	}
	d.buffers[buf] = d.image
	return protocol.CodeOK, nil
}

// handleRegModel fuses the populated buffers. At least two samples of one
// finger are needed; the model lands in buffer 1.
func (d *Device) handleRegModel() (byte, []byte) {
	var (
		finger  Touch
		samples int
	)
	for _, t := range d.buffers[protocol.MinBuffer:] {
		if t == NoTouch {
			continue
		}
		if finger != NoTouch && t != finger {
			return protocol.CodeEnrollMismatch, nil
		}
		finger = t
		samples++
	}
	if samples < 2 {
		return protocol.CodeEnrollMismatch, nil
	}

	d.buffers = [protocol.MaxBuffer + 1]Touch{}
	d.buffers[1] = finger
	return protocol.CodeOK, nil
}

// Payload: [BUFFER_ID][PAGE(2)]
func (d *Device) handleStore(params []byte) (byte, []byte) {
	if len(params) != 3 {
		return protocol.CodePacketError, nil
	}
	buf := int(params[0])
	page := int(binary.BigEndian.Uint16(params[1:3]))
	if page >= d.capacity {
		return protocol.CodeBadLocation, nil
	}
	if buf < protocol.MinBuffer || buf > protocol.MaxBuffer || d.buffers[buf] == NoTouch {
		return protocol.CodeExecFail, nil
	}
	d.library[page] = d.buffers[buf]
	return protocol.CodeOK, nil
}

// Payload: [PAGE(2)][COUNT(2)]
func (d *Device) handleDeleteChar(params []byte) (byte, []byte) {
	if len(params) != 4 {
		return protocol.CodePacketError, nil
	}
	page := int(binary.BigEndian.Uint16(params[0:2]))
	count := int(binary.BigEndian.Uint16(params[2:4]))
	if page+count > d.capacity {
		return protocol.CodeBadLocation, nil
	}
	for slot := page; slot < page+count; slot++ {
		delete(d.library, slot)
	}
	return protocol.CodeOK, nil
}

// Payload: [BUFFER_ID][START(2)][COUNT(2)]
// Reply: [PAGE(2)][SCORE(2)]
func (d *Device) handleSearch(params []byte) (byte, []byte) {
	if len(params) != 5 {
		return protocol.CodePacketError, nil
	}
	buf := int(params[0])
	start := int(binary.BigEndian.Uint16(params[1:3]))
	count := int(binary.BigEndian.Uint16(params[3:5]))
	if buf < protocol.MinBuffer || buf > protocol.MaxBuffer {
		return protocol.CodeBadLocation, nil
	}

	if len(d.library) == 0 {
		return protocol.CodeLibraryEmpty, nil
	}

	finger := d.buffers[buf]
	if finger == NoTouch {
		return protocol.CodeNotFound, nil
	}

	slots := make([]int, 0, len(d.library))
	for slot := range d.library {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	for _, slot := range slots {
		if slot < start || slot >= start+count || d.library[slot] != finger {
			continue
		}
		data := binary.BigEndian.AppendUint16(nil, uint16(slot))
		return protocol.CodeOK, binary.BigEndian.AppendUint16(data, uint16(d.score()))
	}
	return protocol.CodeNotFound, nil
}

// score is the confidence reported for a match; stricter levels score lower.
func (d *Device) score() int {
	return 200 - 20*d.securityLevel
}

// Payload: [PARAM][VALUE]
func (d *Device) handleSetSysPara(params []byte) (byte, []byte) {
	if len(params) != 2 {
		return protocol.CodePacketError, nil
	}
	value := int(params[1])
	switch int(params[0]) {
	case protocol.ParamBaudRate:
		if value < 1 || value > 12 {
			return protocol.CodeBadRegisterConfig, nil
		}
		d.baudMult = value
	case protocol.ParamSecurityLevel:
		if value < protocol.MinSecurityLevel || value > protocol.MaxSecurityLevel {
			return protocol.CodeBadRegisterConfig, nil
		}
		d.securityLevel = value
	case protocol.ParamPacketSize:
		if value > 3 {
			return protocol.CodeBadRegisterConfig, nil
		}
		d.packetCode = value
	default:
		return protocol.CodeInvalidRegister, nil
	}
	return protocol.CodeOK, nil
}

func (d *Device) sysParams() protocol.SysParams {
	return protocol.SysParams{
		SystemID:       0x0009,
		Capacity:       d.capacity,
		SecurityLevel:  d.securityLevel,
		Address:        d.address,
		PacketSizeCode: d.packetCode,
		BaudMultiplier: d.baudMult,
	}
}

// Payload: [PWD(4)]
func (d *Device) handleVerifyPassword(params []byte) (byte, []byte) {
	if len(params) != 4 {
		return protocol.CodePacketError, nil
	}
	if binary.BigEndian.Uint32(params) != d.password {
		return protocol.CodePasswordFail, nil
	}
	return protocol.CodeOK, nil
}

// Payload: [INDEX_PAGE]
func (d *Device) handleReadIndexTable(params []byte) (byte, []byte) {
	if len(params) != 1 {
		return protocol.CodePacketError, nil
	}
	page := int(params[0])
	if page > protocol.MaxIndexPage {
		return protocol.CodeBadLocation, nil
	}

	slots := make([]int, 0, len(d.library))
	for slot := range d.library {
		slots = append(slots, slot)
	}
	return protocol.CodeOK, protocol.EncodeIndexTable(page, slots)
}

// Payload: [CTRL][SPEED][COLOR][TIMES]
func (d *Device) handleAuraLed(params []byte) (byte, []byte) {
	if len(params) != 4 {
		return protocol.CodePacketError, nil
	}
	p := protocol.LedPattern{
		Mode:   protocol.LedMode(params[0]),
		Speed:  params[1],
		Color:  protocol.LedColor(params[2]),
		Cycles: params[3],
	}
	if err := p.Validate(); err != nil {
		return protocol.CodeBadRegisterConfig, nil
	}
	d.leds = append(d.leds, p)
	return protocol.CodeOK, nil
}
