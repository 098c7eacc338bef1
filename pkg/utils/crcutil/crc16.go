package crcutil

import (
	"github.com/sigurn/crc16"
)

// modbusTable is the reflected 0xA001 table, init 0xFFFF, no final xor.
var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Checksum returns the CRC-16/MODBUS of data.
// The value is in register order; on the wire the low byte goes first.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, modbusTable)
}

// Append returns data followed by its checksum, low byte first.
func Append(data []byte) []byte {
	sum := Checksum(data)
	out := make([]byte, len(data), len(data)+2)
	copy(out, data)
	return append(out, byte(sum), byte(sum>>8))
}

// Verify reports whether the trailing two bytes of frame are the checksum of
// everything before them.
func Verify(frame []byte) bool {
	if len(frame) < 3 {
		return false
	}
	n := len(frame) - 2
	sum := Checksum(frame[:n])
	return frame[n] == byte(sum) && frame[n+1] == byte(sum>>8)
}
