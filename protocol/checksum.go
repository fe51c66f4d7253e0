package protocol

// ChecksumMask is the 16-bit mask used in checksum calculations
const ChecksumMask = 0xFFFF

// calculatePacketChecksum computes the 16-bit frame checksum.
// The sum covers every byte from the package identifier through the end of
// the payload, excluding HEADER, ADDR and the checksum itself, truncated to 16 bits.
func calculatePacketChecksum(data []byte) uint16 {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	return uint16(sum & ChecksumMask)
}

// Checksum returns the checksum a frame carrying pid and payload must end with.
func Checksum(pid byte, payload []byte) uint16 {
	length := uint16(len(payload) + ChecksumSize)
	sum := uint32(pid) + uint32(length>>8) + uint32(length&0xFF)
	return uint16((sum + uint32(calculatePacketChecksum(payload))) & ChecksumMask)
}
