package runtime

import (
	"errors"

	"go.bug.st/serial"
	"serialserver/pkg/runtime/constant"
)

// Frame errors.
var (
	ErrMalformedFrame       = errors.New("rtu message malformed")
	ErrCRC16Error           = errors.New("rtu message crc16 error")
	ErrPayloadTooLong       = errors.New("rtu message payload too long")
	ErrUnsupportedFunction  = errors.New("rtu message function code not supported")
	ErrUnexpectedAddress    = errors.New("rtu message answered by another device")
	ErrFunctionCodeMismatch = errors.New("rtu message function code error")
	ErrWriteEchoMismatch    = errors.New("rtu write response does not echo the request")
	ErrBroadcastRead        = errors.New("rtu broadcast cannot be read")
)

// Transport errors.
var (
	ErrBadConn          = errors.New("rtu bad connection")
	ErrSerialPortClosed = errors.New("serial port closed")
	ErrResponseTimeout  = errors.New("rtu response timeout")
	ErrManyRetry        = errors.New("rtu connect retry more than allowed")
)

const (
	// BroadcastAddress reaches every device on the line, none answers.
	BroadcastAddress uint8 = 0
	// MinDeviceAddress and MaxDeviceAddress bound the assignable addresses.
	MinDeviceAddress uint8 = 1
	MaxDeviceAddress uint8 = 247
	// DefaultDeviceAddress is what most devices ship with, avoid assigning it.
	DefaultDeviceAddress uint8 = 1
)

const (
	// MinFrameLength is address + function + checksum with an empty payload.
	MinFrameLength = 4
	// MaxFrameLength is the RTU ADU limit.
	MaxFrameLength = 256
	// MaxDataLength is what is left for the payload.
	MaxDataLength = MaxFrameLength - MinFrameLength
	// ChecksumLength is the trailing crc.
	ChecksumLength = 2
	// ExceptionFrameLength is address + function + exception code + checksum.
	ExceptionFrameLength = 5
	// MaxReadQuantity is the number of words a single read may ask for.
	MaxReadQuantity = 125
	// MaxWriteQuantity is the number of words a single multiple write may carry.
	MaxWriteQuantity = 123
)

var StopBitsToStopBits = map[constant.StopBits]serial.StopBits{
	constant.OneStopBit:           serial.OneStopBit,
	constant.OnePointFiveStopBits: serial.OnePointFiveStopBits,
	constant.TwoStopBits:          serial.TwoStopBits,
}

var ParityToParity = map[constant.Parity]serial.Parity{
	constant.NoParity:    serial.NoParity,
	constant.OddParity:   serial.OddParity,
	constant.EvenParity:  serial.EvenParity,
	constant.MarkParity:  serial.MarkParity,
	constant.SpaceParity: serial.SpaceParity,
}
