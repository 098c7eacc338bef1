package model

import (
	"errors"
	"fmt"
	"math"

	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
)

var (
	ErrUnknownDeviceType = errors.New("unknown device type")
	ErrUnknownRegister   = errors.New("unknown register")
	ErrReadOnly          = errors.New("register is read only")
	ErrShortRead         = errors.New("register read returned no value")
	ErrValueOutOfRange   = errors.New("value out of range")
	ErrUnsupportedBaud   = errors.New("unsupported baud rate")
	ErrInvalidCorrection = errors.New("correction must have one decimal and lie within (-10, 10)")
	ErrInvalidNewAddress = errors.New("device address must be within 1..247")
)

// Definition describes one register of a device type. The engineering value
// is raw / Scale.
type Definition struct {
	Name     string                        `json:"name"`
	Function modbusrturuntime.FunctionCode `json:"function"`
	Register modbusrturuntime.Register     `json:"register"`
	Signed   bool                          `json:"signed"`
	Scale    float64                       `json:"scale"`
	Unit     string                        `json:"unit,omitempty"`
	Writable bool                          `json:"writable"`

	validate func(float64) error
}

func (d Definition) Operation() modbusrturuntime.Operation {
	return modbusrturuntime.NewOperation(d.Function, d.Register)
}

func (d Definition) scale() float64 {
	if d.Scale == 0 {
		return 1
	}
	return d.Scale
}

// Decode turns the words of a read into the engineering value.
func (d Definition) Decode(values []uint16) (float64, error) {
	if len(values) < 1 {
		return 0, fmt.Errorf("%w: %s", ErrShortRead, d.Name)
	}
	if d.Signed {
		return float64(int16(values[0])) / d.scale(), nil
	}
	return float64(values[0]) / d.scale(), nil
}

// Encode checks value and turns it into the word to write.
func (d Definition) Encode(value float64) (uint16, error) {
	if !d.Writable {
		return 0, fmt.Errorf("%w: %s", ErrReadOnly, d.Name)
	}
	if d.validate != nil {
		if err := d.validate(value); err != nil {
			return 0, err
		}
	}
	raw := math.Round(value * d.scale())
	if d.Signed {
		if raw < math.MinInt16 || raw > math.MaxInt16 {
			return 0, fmt.Errorf("%w: %s=%v", ErrValueOutOfRange, d.Name, value)
		}
		return uint16(int16(raw)), nil
	}
	if raw < 0 || raw > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %s=%v", ErrValueOutOfRange, d.Name, value)
	}
	return uint16(raw), nil
}

const (
	Fan               = "Fan"
	TemperatureSensor = "TemperatureSensor"
)

// temperature sensor
const (
	TemperatureRegister           uint16 = 0x0001
	HumidityRegister              uint16 = 0x0002
	DeviceAddressRegister         uint16 = 0x0101
	BaudRateRegister              uint16 = 0x0102
	TemperatureCorrectionRegister uint16 = 0x0103
	HumidityCorrectionRegister    uint16 = 0x0104
)

// fan
const (
	CurrentRpmRegister       uint16 = 0xD010
	MotorStatusRegister      uint16 = 0xD011
	MotorTemperatureRegister uint16 = 0xD016
	HeartbeatRegister        uint16 = 0xD037
)

var SupportedBaudRates = []int{9600, 14400, 19200}

func ValidBaudRate(baudRate int) bool {
	for _, b := range SupportedBaudRates {
		if b == baudRate {
			return true
		}
	}
	return false
}

// ValidCorrectionValue accepts at most one decimal place, strictly inside
// (-10, 10).
func ValidCorrectionValue(value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	tenths := value * 10
	if math.Abs(tenths-math.Round(tenths)) > 1e-9 {
		return false
	}
	return value > -10 && value < 10
}

func validateBaudRate(value float64) error {
	if value != math.Trunc(value) || !ValidBaudRate(int(value)) {
		return fmt.Errorf("%w: %v (supported %v)", ErrUnsupportedBaud, value, SupportedBaudRates)
	}
	return nil
}

func validateCorrection(value float64) error {
	if !ValidCorrectionValue(value) {
		return fmt.Errorf("%w: %v", ErrInvalidCorrection, value)
	}
	return nil
}

func validateDeviceAddress(value float64) error {
	if value != math.Trunc(value) || value < float64(modbusrturuntime.MinDeviceAddress) || value > float64(modbusrturuntime.MaxDeviceAddress) {
		return fmt.Errorf("%w: %v", ErrInvalidNewAddress, value)
	}
	return nil
}

func word(address uint16) modbusrturuntime.Register {
	return modbusrturuntime.Register{Address: address, Length: 2}
}

var registers = map[string][]Definition{
	TemperatureSensor: {
		{Name: "temperature", Function: modbusrturuntime.ReadInputRegister, Register: word(TemperatureRegister), Scale: 10, Unit: "°C"},
		{Name: "humidity", Function: modbusrturuntime.ReadInputRegister, Register: word(HumidityRegister), Scale: 10, Unit: "%"},
		{Name: "deviceAddress", Function: modbusrturuntime.ReadHoldingRegister, Register: word(DeviceAddressRegister), Scale: 1, Writable: true, validate: validateDeviceAddress},
		{Name: "baudRate", Function: modbusrturuntime.ReadHoldingRegister, Register: word(BaudRateRegister), Scale: 1, Writable: true, validate: validateBaudRate},
		{Name: "temperatureCorrection", Function: modbusrturuntime.ReadHoldingRegister, Register: word(TemperatureCorrectionRegister), Signed: true, Scale: 10, Unit: "°C", Writable: true, validate: validateCorrection},
		{Name: "humidityCorrection", Function: modbusrturuntime.ReadHoldingRegister, Register: word(HumidityCorrectionRegister), Signed: true, Scale: 10, Unit: "%", Writable: true, validate: validateCorrection},
	},
	Fan: {
		{Name: "currentRpm", Function: modbusrturuntime.ReadInputRegister, Register: word(CurrentRpmRegister), Scale: 1, Unit: "rpm"},
		{Name: "motorStatus", Function: modbusrturuntime.ReadInputRegister, Register: word(MotorStatusRegister), Scale: 1},
		{Name: "motorTemperature", Function: modbusrturuntime.ReadInputRegister, Register: word(MotorTemperatureRegister), Signed: true, Scale: 1, Unit: "°C"},
		{Name: "heartbeat", Function: modbusrturuntime.ReadInputRegister, Register: word(HeartbeatRegister), Scale: 1},
	},
}

// Registers returns the definitions of deviceType in probing order.
func Registers(deviceType string) ([]Definition, error) {
	defs, ok := registers[deviceType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeviceType, deviceType)
	}
	return append([]Definition(nil), defs...), nil
}

func Lookup(deviceType, name string) (Definition, error) {
	defs, err := Registers(deviceType)
	if err != nil {
		return Definition{}, err
	}
	for _, d := range defs {
		if d.Name == name {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %s.%s", ErrUnknownRegister, deviceType, name)
}
