package runtime

import "fmt"

// Frame is one unit of exchange on the line. Checksum is held in register
// order, it travels low byte first.
type Frame struct {
	Address      uint8  `json:"address"`
	FunctionCode byte   `json:"functionCode"`
	Data         []byte `json:"data"`
	Checksum     uint16 `json:"checksum"`
}

func (f *Frame) IsException() bool {
	return f.FunctionCode&ExceptionFlag != 0
}

// Function strips the exception flag.
func (f *Frame) Function() FunctionCode {
	return FunctionCode(f.FunctionCode &^ ExceptionFlag)
}

func (f *Frame) String() string {
	return fmt.Sprintf("address=%d function=%#02x data=% X checksum=%#04x", f.Address, f.FunctionCode, f.Data, f.Checksum)
}

// ExceptionCode is the single payload byte of an exception response.
type ExceptionCode byte

const (
	IllegalFunction                    ExceptionCode = 0x01
	IllegalDataAddress                 ExceptionCode = 0x02
	IllegalDataValue                   ExceptionCode = 0x03
	ServerDeviceFailure                ExceptionCode = 0x04
	Acknowledge                        ExceptionCode = 0x05
	ServerDeviceBusy                   ExceptionCode = 0x06
	MemoryParityError                  ExceptionCode = 0x08
	GatewayPathUnavailable             ExceptionCode = 0x0A
	GatewayTargetDeviceFailedToRespond ExceptionCode = 0x0B
)

var exceptionCodeToString = map[ExceptionCode]string{
	IllegalFunction:                    "illegal function",
	IllegalDataAddress:                 "illegal data address",
	IllegalDataValue:                   "illegal data value",
	ServerDeviceFailure:                "server device failure",
	Acknowledge:                        "acknowledge",
	ServerDeviceBusy:                   "server device busy",
	MemoryParityError:                  "memory parity error",
	GatewayPathUnavailable:             "gateway path unavailable",
	GatewayTargetDeviceFailedToRespond: "gateway target device failed to respond",
}

func (e ExceptionCode) String() string {
	if s, ok := exceptionCodeToString[e]; ok {
		return s
	}
	return fmt.Sprintf("exception %#02x", byte(e))
}

// ExceptionError is returned when a device answers with an exception frame.
type ExceptionError struct {
	Address  uint8
	Function FunctionCode
	Code     ExceptionCode
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("device %d rejected %s: %s", e.Address, e.Function, e.Code)
}
