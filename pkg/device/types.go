package device

import (
	"encoding/json"
	"fmt"

	"serialserver/pkg/protocol/modbusrtu/model"
)

type DeviceType uint8

const (
	Fan DeviceType = iota + 1
	TemperatureSensor
)

var DeviceTypeToString = map[DeviceType]string{
	Fan:               model.Fan,
	TemperatureSensor: model.TemperatureSensor,
}

var StringToDeviceType = map[string]DeviceType{
	model.Fan:               Fan,
	model.TemperatureSensor: TemperatureSensor,
}

func ParseDeviceType(s string) (DeviceType, error) {
	if t, ok := StringToDeviceType[s]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDeviceType, s)
}

func (t DeviceType) Valid() bool {
	_, ok := DeviceTypeToString[t]
	return ok
}

func (t DeviceType) String() string {
	if s, ok := DeviceTypeToString[t]; ok {
		return s
	}
	return fmt.Sprintf("DeviceType(%d)", uint8(t))
}

func (t DeviceType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDeviceType, uint8(t))
	}
	return json.Marshal(t.String())
}

func (t *DeviceType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDeviceType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Device is a node on the serial line, identified by its address.
type Device struct {
	Address uint8      `json:"address"`
	Type    DeviceType `json:"type"`
}
