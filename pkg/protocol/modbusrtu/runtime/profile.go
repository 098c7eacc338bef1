package runtime

import (
	"go.bug.st/serial"
	"serialserver/pkg/runtime/constant"
)

// SerialProfile is passed through to the port as is, the core never
// negotiates it.
type SerialProfile struct {
	BaudRate int               `json:"baudRate"`
	DataBits int               `json:"dataBits"`
	StopBits constant.StopBits `json:"stopBits"`
	Parity   constant.Parity   `json:"parity"`
}

// DefaultSerialProfile is 9600 8N1, what the supported devices ship with.
func DefaultSerialProfile() SerialProfile {
	return SerialProfile{
		BaudRate: 9600,
		DataBits: 8,
		StopBits: constant.OneStopBit,
		Parity:   constant.NoParity,
	}
}

func (p SerialProfile) Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: p.BaudRate,
		DataBits: p.DataBits,
		StopBits: StopBitsToStopBits[p.StopBits],
		Parity:   ParityToParity[p.Parity],
	}
}
