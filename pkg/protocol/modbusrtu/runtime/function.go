package runtime

import "fmt"

// FunctionCode selects the operation a frame asks the device to perform.
// The set is closed; adding an operation means adding a constant here and
// teaching the codec about it.
type FunctionCode uint8

const (
	ReadHoldingRegister    FunctionCode = 0x03
	ReadInputRegister      FunctionCode = 0x04
	WriteSingleRegister    FunctionCode = 0x06
	Diagnostics            FunctionCode = 0x08
	WriteMultipleRegisters FunctionCode = 0x10
)

// ExceptionFlag is set on the function byte of an exception response.
const ExceptionFlag byte = 0x80

var FunctionCodeToString = map[FunctionCode]string{
	ReadHoldingRegister:    "ReadHoldingRegister",
	ReadInputRegister:      "ReadInputRegister",
	WriteSingleRegister:    "WriteSingleRegister",
	Diagnostics:            "Diagnostics",
	WriteMultipleRegisters: "WriteMultipleRegisters",
}

var StringToFunctionCode = map[string]FunctionCode{
	"ReadHoldingRegister":    ReadHoldingRegister,
	"ReadInputRegister":      ReadInputRegister,
	"WriteSingleRegister":    WriteSingleRegister,
	"Diagnostics":            Diagnostics,
	"WriteMultipleRegisters": WriteMultipleRegisters,
}

// Code is the byte placed on the wire.
func (f FunctionCode) Code() byte {
	return byte(f)
}

func (f FunctionCode) Valid() bool {
	_, ok := FunctionCodeToString[f]
	return ok
}

func (f FunctionCode) IsRead() bool {
	return f == ReadHoldingRegister || f == ReadInputRegister
}

func (f FunctionCode) IsWrite() bool {
	return f == WriteSingleRegister || f == WriteMultipleRegisters
}

func (f FunctionCode) String() string {
	if s, ok := FunctionCodeToString[f]; ok {
		return s
	}
	return fmt.Sprintf("FunctionCode(%#02x)", uint8(f))
}

// Register is an addressable slot on a device. Length is in bytes.
type Register struct {
	Address uint16 `json:"address"`
	Length  uint16 `json:"length"`
}

// Quantity is the number of 16 bit words covering the register.
func (r Register) Quantity() uint16 {
	return uint16((uint32(r.Length) + 1) / 2)
}

// Operation pairs a function with the register it works on.
type Operation struct {
	Function FunctionCode
	Register Register
}

func NewOperation(function FunctionCode, register Register) Operation {
	return Operation{Function: function, Register: register}
}

func (o Operation) Code() byte {
	return o.Function.Code()
}

func (o Operation) String() string {
	return fmt.Sprintf("%s(%#04x..%d)", o.Function, o.Register.Address, o.Register.Length)
}
