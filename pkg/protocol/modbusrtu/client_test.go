package modbusrtu

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
	"serialserver/pkg/utils/crcutil"
)

type transportFunc func(ctx context.Context, request []byte) ([]byte, error)

func (f transportFunc) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	return f(ctx, request)
}

func (f transportFunc) Close() error {
	return nil
}

func echo(_ context.Context, request []byte) ([]byte, error) {
	return request, nil
}

func TestClientReadRegisters(t *testing.T) {
	var sent []byte
	c := NewClient(transportFunc(func(_ context.Context, request []byte) ([]byte, error) {
		sent = request
		return crcutil.Append([]byte{0x07, 0x04, 0x04, 0x00, 0xD7, 0x02, 0x58}), nil
	}), 7)

	values, err := c.ReadRegisters(context.Background(), modbusrturuntime.ReadInputRegister, modbusrturuntime.Register{Address: 0x0001, Length: 4})
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x00D7, 0x0258}, values)
	assert.Equal(t, []byte{0x07, 0x04, 0x00, 0x01, 0x00, 0x02}, sent[:6])
}

func TestClientWrites(t *testing.T) {
	c := NewClient(transportFunc(echo), 1)
	assert.NoError(t, c.WriteSingleRegister(context.Background(), 0x0103, 5))

	c = NewClient(transportFunc(func(_ context.Context, request []byte) ([]byte, error) {
		return crcutil.Append(request[:6]), nil
	}), 1)
	assert.NoError(t, c.WriteMultipleRegisters(context.Background(), 0x0001, []uint16{0x000A, 0x0102}))
}

func TestClientWriteNotEchoed(t *testing.T) {
	c := NewClient(transportFunc(func(_ context.Context, request []byte) ([]byte, error) {
		return crcutil.Append([]byte{0x01, 0x06, 0x01, 0x03, 0x00, 0x06}), nil
	}), 1)
	err := c.WriteSingleRegister(context.Background(), 0x0103, 5)
	assert.ErrorIs(t, err, modbusrturuntime.ErrWriteEchoMismatch)
}

func TestClientDiagnostics(t *testing.T) {
	c := NewClient(transportFunc(echo), 1)
	data, err := c.Diagnostics(context.Background(), 0x0000, []uint16{0xA537})
	require.NoError(t, err)
	assert.Equal(t, []uint16{0xA537}, data)
}

func TestClientException(t *testing.T) {
	c := NewClient(transportFunc(func(_ context.Context, request []byte) ([]byte, error) {
		return crcutil.Append([]byte{0x01, 0x83, 0x02}), nil
	}), 1)

	_, err := c.ReadRegisters(context.Background(), modbusrturuntime.ReadHoldingRegister, modbusrturuntime.Register{Address: 0x0200, Length: 2})
	var exception *modbusrturuntime.ExceptionError
	require.True(t, errors.As(err, &exception))
	assert.Equal(t, modbusrturuntime.IllegalDataAddress, exception.Code)
}

func TestClientBroadcast(t *testing.T) {
	c := NewClient(transportFunc(func(_ context.Context, request []byte) ([]byte, error) {
		return nil, nil
	}), modbusrturuntime.BroadcastAddress)

	assert.NoError(t, c.WriteSingleRegister(context.Background(), 0x0102, 2))
}

func TestClientBroadcastRead(t *testing.T) {
	sent := 0
	c := NewClient(transportFunc(func(_ context.Context, request []byte) ([]byte, error) {
		sent++
		return nil, nil
	}), modbusrturuntime.BroadcastAddress)

	assert.NotPanics(t, func() {
		values, err := c.ReadRegisters(context.Background(), modbusrturuntime.ReadInputRegister, modbusrturuntime.Register{Address: 1, Length: 2})
		assert.ErrorIs(t, err, modbusrturuntime.ErrBroadcastRead)
		assert.Nil(t, values)
	})
	assert.Zero(t, sent)

	f, err := c.Do(context.Background(), modbusrturuntime.NewOperation(modbusrturuntime.ReadInputRegister, modbusrturuntime.Register{Address: 1, Length: 2}), nil)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Nil(t, Payload(f))
	assert.Empty(t, RegisterValues(f))
}

func TestClientDiagnosticsCounter(t *testing.T) {
	c := NewClient(transportFunc(func(_ context.Context, request []byte) ([]byte, error) {
		return crcutil.Append([]byte{0x01, 0x08, 0x00, 0x0B, 0x01, 0x2C}), nil
	}), 1)

	data, err := c.Diagnostics(context.Background(), 0x000B, []uint16{0x0000})
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x012C}, data)
}

func TestClientRaw(t *testing.T) {
	c := NewClient(transportFunc(func(_ context.Context, request []byte) ([]byte, error) {
		if !bytes.Equal(request, readTemperature) {
			return nil, errors.New("unexpected request")
		}
		return []byte{0x01, 0x04, 0x02, 0x00, 0xD7, 0xF9, 0x6E}, nil
	}), 1)

	f, err := c.Raw(context.Background(), 0x04, []byte{0x00, 0x01, 0x00, 0x01})
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x00D7}, RegisterValues(f))

	_, err = c.Raw(context.Background(), 0x04, make([]byte, modbusrturuntime.MaxDataLength+1))
	assert.ErrorIs(t, err, modbusrturuntime.ErrPayloadTooLong)
}

func TestClientTransportError(t *testing.T) {
	c := NewClient(transportFunc(func(_ context.Context, request []byte) ([]byte, error) {
		return nil, modbusrturuntime.ErrResponseTimeout
	}), 1)
	_, err := c.ReadRegisters(context.Background(), modbusrturuntime.ReadInputRegister, modbusrturuntime.Register{Address: 0x0001, Length: 2})
	assert.ErrorIs(t, err, modbusrturuntime.ErrResponseTimeout)
}
