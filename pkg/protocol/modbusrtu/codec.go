package modbusrtu

import (
	"bytes"
	"fmt"

	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
	"serialserver/pkg/utils/binutil"
	"serialserver/pkg/utils/crcutil"
)

/**
modbus rtu ADU = 地址(1) + pdu(253) + 16位校验(2) = 256

01 04 00 01 00 01 60 0A
01     设备地址
04     功能码
00 01  寄存器地址
00 01  寄存器数量
60 0A  crc16, 低字节在前
*/

// Encode lays out address, function and data and appends the checksum low
// byte first. The address is not checked, broadcast frames are legal.
func Encode(address uint8, function byte, data []byte) ([]byte, error) {
	if len(data) > modbusrturuntime.MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", modbusrturuntime.ErrPayloadTooLong, len(data), modbusrturuntime.MaxDataLength)
	}
	message := make([]byte, 2+len(data)+modbusrturuntime.ChecksumLength)
	message[0] = address
	message[1] = function
	copy(message[2:], data)
	n := len(message) - modbusrturuntime.ChecksumLength
	binutil.WriteUint16LittleEndian(message[n:], crcutil.Checksum(message[:n]))
	return message, nil
}

// EncodeRead builds a read request for the register of op, asking for as
// many words as the register is long.
func EncodeRead(address uint8, op modbusrturuntime.Operation) ([]byte, error) {
	if !op.Function.IsRead() {
		return nil, fmt.Errorf("%w: %s is not a read", modbusrturuntime.ErrUnsupportedFunction, op.Function)
	}
	quantity := op.Register.Quantity()
	if quantity == 0 || quantity > modbusrturuntime.MaxReadQuantity {
		return nil, fmt.Errorf("%w: quantity %d out of 1..%d", modbusrturuntime.ErrMalformedFrame, quantity, modbusrturuntime.MaxReadQuantity)
	}
	data := make([]byte, 4)
	binutil.WriteUint16(data[0:], op.Register.Address)
	binutil.WriteUint16(data[2:], quantity)
	return Encode(address, op.Code(), data)
}

// EncodeWriteSingle writes one word. The response echoes the request.
func EncodeWriteSingle(address uint8, register uint16, value uint16) ([]byte, error) {
	data := make([]byte, 4)
	binutil.WriteUint16(data[0:], register)
	binutil.WriteUint16(data[2:], value)
	return Encode(address, modbusrturuntime.WriteSingleRegister.Code(), data)
}

// EncodeWriteMultiple writes consecutive words starting at start.
// Layout: start(2) quantity(2) byte count(1) values(2*n).
func EncodeWriteMultiple(address uint8, start uint16, values []uint16) ([]byte, error) {
	if len(values) == 0 || len(values) > modbusrturuntime.MaxWriteQuantity {
		return nil, fmt.Errorf("%w: quantity %d out of 1..%d", modbusrturuntime.ErrMalformedFrame, len(values), modbusrturuntime.MaxWriteQuantity)
	}
	data := make([]byte, 5, 5+len(values)*2)
	binutil.WriteUint16(data[0:], start)
	binutil.WriteUint16(data[2:], uint16(len(values)))
	data[4] = byte(len(values) * 2)
	data = append(data, binutil.Uint16sToBytes(values)...)
	return Encode(address, modbusrturuntime.WriteMultipleRegisters.Code(), data)
}

// EncodeDiagnostics builds a function 0x08 request. Sub function 0x0000
// (return query data) is answered with an exact echo, the others with the
// sub function and one data word.
func EncodeDiagnostics(address uint8, subFunction uint16, values []uint16) ([]byte, error) {
	data := make([]byte, 2, 2+len(values)*2)
	binutil.WriteUint16(data, subFunction)
	data = append(data, binutil.Uint16sToBytes(values)...)
	return Encode(address, modbusrturuntime.Diagnostics.Code(), data)
}

// EncodeOperation picks the builder matching op.Function. Writes take their
// words from values; reads ignore them.
func EncodeOperation(address uint8, op modbusrturuntime.Operation, values []uint16) ([]byte, error) {
	switch op.Function {
	case modbusrturuntime.ReadHoldingRegister, modbusrturuntime.ReadInputRegister:
		return EncodeRead(address, op)
	case modbusrturuntime.WriteSingleRegister:
		if len(values) != 1 {
			return nil, fmt.Errorf("%w: single write takes one value, got %d", modbusrturuntime.ErrMalformedFrame, len(values))
		}
		return EncodeWriteSingle(address, op.Register.Address, values[0])
	case modbusrturuntime.WriteMultipleRegisters:
		return EncodeWriteMultiple(address, op.Register.Address, values)
	case modbusrturuntime.Diagnostics:
		return EncodeDiagnostics(address, op.Register.Address, values)
	default:
		return nil, fmt.Errorf("%w: %s", modbusrturuntime.ErrUnsupportedFunction, op.Function)
	}
}

// Decode checks length and checksum and splits the frame into its fields.
// It does not interpret the payload.
func Decode(frame []byte) (*modbusrturuntime.Frame, error) {
	if len(frame) < modbusrturuntime.MinFrameLength {
		return nil, fmt.Errorf("%w: %d bytes (min %d)", modbusrturuntime.ErrMalformedFrame, len(frame), modbusrturuntime.MinFrameLength)
	}
	if len(frame) > modbusrturuntime.MaxFrameLength {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", modbusrturuntime.ErrMalformedFrame, len(frame), modbusrturuntime.MaxFrameLength)
	}

	n := len(frame) - modbusrturuntime.ChecksumLength
	sum := crcutil.Checksum(frame[:n])
	crc := binutil.ParseUint16LittleEndian(frame[n:])
	if sum != crc {
		return nil, fmt.Errorf("%w: computed %#04x, received %#04x", modbusrturuntime.ErrCRC16Error, sum, crc)
	}

	return &modbusrturuntime.Frame{
		Address:      frame[0],
		FunctionCode: frame[1],
		Data:         binutil.Dup(frame[2:n]),
		Checksum:     crc,
	}, nil
}

// DecodeResponse decodes response and checks it answers request. The bus is
// shared, so a frame from another device or for another function is an error
// and not a result.
func DecodeResponse(request, response []byte) (*modbusrturuntime.Frame, error) {
	if len(request) < modbusrturuntime.MinFrameLength {
		return nil, fmt.Errorf("%w: request of %d bytes", modbusrturuntime.ErrMalformedFrame, len(request))
	}
	f, err := Decode(response)
	if err != nil {
		return nil, err
	}

	if f.Address != request[0] {
		return nil, fmt.Errorf("%w: expected %d, got %d", modbusrturuntime.ErrUnexpectedAddress, request[0], f.Address)
	}

	function := modbusrturuntime.FunctionCode(request[1])
	if f.IsException() && f.Function() == function {
		if len(f.Data) != 1 {
			return nil, fmt.Errorf("%w: exception payload of %d bytes", modbusrturuntime.ErrMalformedFrame, len(f.Data))
		}
		return f, &modbusrturuntime.ExceptionError{
			Address:  f.Address,
			Function: function,
			Code:     modbusrturuntime.ExceptionCode(f.Data[0]),
		}
	}
	if f.FunctionCode != request[1] {
		return nil, fmt.Errorf("%w: expected %#02x, got %#02x", modbusrturuntime.ErrFunctionCodeMismatch, request[1], f.FunctionCode)
	}

	switch function {
	case modbusrturuntime.ReadHoldingRegister, modbusrturuntime.ReadInputRegister:
		if len(f.Data) < 1 {
			return nil, fmt.Errorf("%w: missing byte count", modbusrturuntime.ErrMalformedFrame)
		}
		byteCount := int(f.Data[0])
		if byteCount != len(f.Data)-1 {
			return nil, fmt.Errorf("%w: byte count %d, payload %d", modbusrturuntime.ErrMalformedFrame, byteCount, len(f.Data)-1)
		}
		if len(request) == 8 {
			if quantity := int(binutil.ParseUint16BigEndian(request[4:6])); byteCount != quantity*2 {
				return nil, fmt.Errorf("%w: asked for %d words, got %d bytes", modbusrturuntime.ErrMalformedFrame, quantity, byteCount)
			}
		}
	case modbusrturuntime.WriteSingleRegister:
		if !bytes.Equal(request, response) {
			return nil, modbusrturuntime.ErrWriteEchoMismatch
		}
	case modbusrturuntime.Diagnostics:
		if len(request) < 6 || len(f.Data) < 2 || !bytes.Equal(f.Data[:2], request[2:4]) {
			return nil, modbusrturuntime.ErrWriteEchoMismatch
		}
		if isReturnQueryData(request) && !bytes.Equal(request, response) {
			return nil, modbusrturuntime.ErrWriteEchoMismatch
		}
	case modbusrturuntime.WriteMultipleRegisters:
		// 地址 + 数量
		if len(f.Data) != 4 || len(request) < 6 || !bytes.Equal(f.Data, request[2:6]) {
			return nil, modbusrturuntime.ErrWriteEchoMismatch
		}
	}
	return f, nil
}

// ExpectedResponseLength is the size of a regular answer to request, or 0 if
// it cannot be known up front.
func ExpectedResponseLength(request []byte) int {
	if len(request) < modbusrturuntime.MinFrameLength {
		return 0
	}
	switch modbusrturuntime.FunctionCode(request[1]) {
	case modbusrturuntime.ReadHoldingRegister, modbusrturuntime.ReadInputRegister:
		if len(request) != 8 {
			return 0
		}
		// 地址(1) + 功能码(1) + 字节数(1) + 数据 + crc(2)
		return 5 + int(binutil.ParseUint16BigEndian(request[4:6]))*2
	case modbusrturuntime.WriteSingleRegister:
		return len(request)
	case modbusrturuntime.Diagnostics:
		if isReturnQueryData(request) {
			return len(request)
		}
		// 地址(1) + 功能码(1) + 子功能码(2) + 数据(2) + crc(2)
		return 8
	case modbusrturuntime.WriteMultipleRegisters:
		return 8
	}
	return 0
}

// Payload returns the data bytes of a read response, without the byte count.
func Payload(f *modbusrturuntime.Frame) []byte {
	if f == nil || len(f.Data) < 1 {
		return nil
	}
	return f.Data[1:]
}

// RegisterValues returns the words of a read response.
func RegisterValues(f *modbusrturuntime.Frame) []uint16 {
	return binutil.BytesToUint16s(Payload(f))
}

// ReturnQueryData is the diagnostics sub function answered with an echo.
const ReturnQueryData uint16 = 0x0000

func isReturnQueryData(request []byte) bool {
	return len(request) >= 6 && binutil.ParseUint16BigEndian(request[2:4]) == ReturnQueryData
}
