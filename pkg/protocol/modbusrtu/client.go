package modbusrtu

import (
	"context"

	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
	"serialserver/pkg/utils/binutil"
)

// Client talks to one device address over a Transport.
type Client struct {
	Transport Transport
	Address   uint8
}

func NewClient(transport Transport, address uint8) *Client {
	return &Client{Transport: transport, Address: address}
}

// Do encodes op, exchanges it and validates the answer. Broadcasts return a
// nil frame.
func (c *Client) Do(ctx context.Context, op modbusrturuntime.Operation, values []uint16) (*modbusrturuntime.Frame, error) {
	request, err := EncodeOperation(c.Address, op, values)
	if err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, request)
}

// Raw sends an arbitrary function and payload.
func (c *Client) Raw(ctx context.Context, function byte, data []byte) (*modbusrturuntime.Frame, error) {
	request, err := Encode(c.Address, function, data)
	if err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, request)
}

func (c *Client) roundTrip(ctx context.Context, request []byte) (*modbusrturuntime.Frame, error) {
	response, err := c.Transport.Exchange(ctx, request)
	if err != nil {
		return nil, err
	}
	if c.Address == modbusrturuntime.BroadcastAddress {
		return nil, nil
	}
	return DecodeResponse(request, response)
}

// ReadRegisters fails with ErrBroadcastRead on the broadcast address, nothing
// is sent since no device would answer.
func (c *Client) ReadRegisters(ctx context.Context, function modbusrturuntime.FunctionCode, register modbusrturuntime.Register) ([]uint16, error) {
	if c.Address == modbusrturuntime.BroadcastAddress {
		return nil, modbusrturuntime.ErrBroadcastRead
	}
	f, err := c.Do(ctx, modbusrturuntime.NewOperation(function, register), nil)
	if err != nil || f == nil {
		return nil, err
	}
	return RegisterValues(f), nil
}

func (c *Client) WriteSingleRegister(ctx context.Context, register uint16, value uint16) error {
	_, err := c.Do(ctx, modbusrturuntime.NewOperation(modbusrturuntime.WriteSingleRegister, modbusrturuntime.Register{Address: register, Length: 2}), []uint16{value})
	return err
}

func (c *Client) WriteMultipleRegisters(ctx context.Context, start uint16, values []uint16) error {
	register := modbusrturuntime.Register{Address: start, Length: uint16(len(values) * 2)}
	_, err := c.Do(ctx, modbusrturuntime.NewOperation(modbusrturuntime.WriteMultipleRegisters, register), values)
	return err
}

// Diagnostics returns the data words of the echo.
func (c *Client) Diagnostics(ctx context.Context, subFunction uint16, data []uint16) ([]uint16, error) {
	register := modbusrturuntime.Register{Address: subFunction, Length: uint16(len(data) * 2)}
	f, err := c.Do(ctx, modbusrturuntime.NewOperation(modbusrturuntime.Diagnostics, register), data)
	if err != nil || f == nil {
		return nil, err
	}
	// first word is the sub function
	return binutil.BytesToUint16s(f.Data[2:]), nil
}
