package binutil

// ParseUint16BigEndian 解析 AB
func ParseUint16BigEndian(buf []byte) uint16 {
	return uint16(buf[0])<<8 + uint16(buf[1])
}

// ParseUint16LittleEndian 解析 BA
func ParseUint16LittleEndian(buf []byte) uint16 {
	return uint16(buf[1])<<8 + uint16(buf[0])
}

// WriteUint16 编码
func WriteUint16(buf []byte, value uint16) {
	buf[0] = byte(value >> 8)
	buf[1] = byte(value)
}

// WriteUint16LittleEndian 编码
func WriteUint16LittleEndian(buf []byte, value uint16) {
	buf[1] = byte(value >> 8)
	buf[0] = byte(value)
}

// Uint16sToBytes packs register words big-endian, one after another.
func Uint16sToBytes(values []uint16) []byte {
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		WriteUint16(buf[i*2:], v)
	}
	return buf
}

// BytesToUint16s splits buf into big-endian words. A trailing odd byte is
// dropped.
func BytesToUint16s(buf []byte) []uint16 {
	values := make([]uint16, len(buf)/2)
	for i := range values {
		values[i] = ParseUint16BigEndian(buf[i*2:])
	}
	return values
}

// Dup 复制
func Dup(buf []byte) []byte {
	b := make([]byte, len(buf))
	copy(b, buf)
	return b
}
