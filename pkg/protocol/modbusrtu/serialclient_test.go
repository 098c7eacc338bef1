package modbusrtu

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
	"serialserver/pkg/utils/crcutil"
)

var errFakePortClosed = errors.New("fake port closed")

// fakePort answers every write with respond(request), handing the answer
// out a few bytes per read like a real line does.
type fakePort struct {
	serial.Port

	mux       sync.Mutex
	respond   func(request []byte) []byte
	pending   []byte
	written   [][]byte
	writeErr  error
	hang      bool
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakePort(respond func(request []byte) []byte) *fakePort {
	return &fakePort{respond: respond, closed: make(chan struct{})}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, append([]byte(nil), b...))
	if p.respond != nil {
		p.pending = append(p.pending, p.respond(b)...)
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, errFakePortClosed
	default:
	}
	p.mux.Lock()
	if len(p.pending) == 0 {
		hang := p.hang
		p.mux.Unlock()
		if hang {
			<-p.closed
			return 0, errFakePortClosed
		}
		return 0, nil
	}
	chunk := 3
	if chunk > len(p.pending) {
		chunk = len(p.pending)
	}
	n := copy(b, p.pending[:chunk])
	p.pending = p.pending[n:]
	p.mux.Unlock()
	return n, nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.pending = nil
	return nil
}

func (p *fakePort) SetReadTimeout(time.Duration) error {
	return nil
}

func (p *fakePort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// opener hands out the given ports in order and counts the calls.
type opener struct {
	mux   sync.Mutex
	ports []*fakePort
	calls int
	err   error
}

func (o *opener) open(name string, mode *serial.Mode) (serial.Port, error) {
	o.mux.Lock()
	defer o.mux.Unlock()
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	p := o.ports[0]
	if len(o.ports) > 1 {
		o.ports = o.ports[1:]
	}
	return p, nil
}

func temperatureResponder(request []byte) []byte {
	return []byte{0x01, 0x04, 0x02, 0x00, 0xD7, 0xF9, 0x6E}
}

var readTemperature = []byte{0x01, 0x04, 0x00, 0x01, 0x00, 0x01, 0x60, 0x0A}

func TestSerialClientExchange(t *testing.T) {
	port := newFakePort(temperatureResponder)
	o := &opener{ports: []*fakePort{port}}
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), o.open)

	response, err := sc.Exchange(context.Background(), readTemperature)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x04, 0x02, 0x00, 0xD7, 0xF9, 0x6E}, response)
	assert.Equal(t, [][]byte{readTemperature}, port.written)

	_, err = sc.Exchange(context.Background(), readTemperature)
	require.NoError(t, err)
	assert.Equal(t, 1, o.calls)
	assert.Equal(t, uint64(2), sc.Exchanges())
}

func TestSerialClientBroadcast(t *testing.T) {
	port := newFakePort(nil)
	port.hang = true
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), (&opener{ports: []*fakePort{port}}).open)

	request, err := EncodeWriteSingle(modbusrturuntime.BroadcastAddress, 0x0102, 2)
	require.NoError(t, err)

	response, err := sc.Exchange(context.Background(), request)
	require.NoError(t, err)
	assert.Nil(t, response)
	assert.Len(t, port.written, 1)
}

func TestSerialClientTimeout(t *testing.T) {
	silent := newFakePort(nil)
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), (&opener{ports: []*fakePort{silent}}).open)

	_, err := sc.Exchange(context.Background(), readTemperature)
	assert.ErrorIs(t, err, modbusrturuntime.ErrResponseTimeout)

	partial := newFakePort(func([]byte) []byte { return []byte{0x01, 0x04, 0x02} })
	sc = NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), (&opener{ports: []*fakePort{partial}}).open)

	_, err = sc.Exchange(context.Background(), readTemperature)
	assert.ErrorIs(t, err, modbusrturuntime.ErrResponseTimeout)
}

func TestSerialClientException(t *testing.T) {
	exception := crcutil.Append([]byte{0x01, 0x84, 0x02})
	port := newFakePort(func([]byte) []byte { return exception })
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), (&opener{ports: []*fakePort{port}}).open)

	response, err := sc.Exchange(context.Background(), readTemperature)
	require.NoError(t, err)
	assert.Equal(t, exception, response)
}

func TestSerialClientReopensBadPort(t *testing.T) {
	bad := newFakePort(nil)
	bad.writeErr = errors.New("device unplugged")
	good := newFakePort(temperatureResponder)
	o := &opener{ports: []*fakePort{bad, good}}
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), o.open)

	response, err := sc.Exchange(context.Background(), readTemperature)
	require.NoError(t, err)
	assert.Len(t, response, 7)
	assert.Equal(t, 2, o.calls)
	assert.True(t, bad.isClosed())
}

func TestSerialClientManyRetry(t *testing.T) {
	bad := newFakePort(nil)
	bad.writeErr = errors.New("device unplugged")
	o := &opener{ports: []*fakePort{bad}}
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), o.open)

	_, err := sc.Exchange(context.Background(), readTemperature)
	assert.ErrorIs(t, err, modbusrturuntime.ErrManyRetry)
	assert.Equal(t, DefaultRetries, o.calls)
}

func TestSerialClientOpenError(t *testing.T) {
	openErr := errors.New("no such file or directory")
	sc := NewSerialClient("/dev/ttyUSB9", modbusrturuntime.DefaultSerialProfile(), (&opener{err: openErr}).open)

	_, err := sc.Exchange(context.Background(), readTemperature)
	assert.ErrorIs(t, err, openErr)
	assert.NotErrorIs(t, err, modbusrturuntime.ErrManyRetry)
}

func TestSerialClientChecksumNotRetried(t *testing.T) {
	port := newFakePort(func([]byte) []byte { return []byte{0x01, 0x04, 0x02, 0x00, 0xD7, 0x6E, 0xF9} })
	o := &opener{ports: []*fakePort{port}}
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), o.open)

	_, err := NewClient(sc, 1).ReadRegisters(context.Background(), modbusrturuntime.ReadInputRegister, modbusrturuntime.Register{Address: 0x0001, Length: 2})
	assert.ErrorIs(t, err, modbusrturuntime.ErrCRC16Error)
	assert.Len(t, port.written, 1)
}

func TestSerialClientCancel(t *testing.T) {
	hung := newFakePort(nil)
	hung.hang = true
	good := newFakePort(temperatureResponder)
	o := &opener{ports: []*fakePort{hung, good}}
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), o.open)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := sc.Exchange(ctx, readTemperature)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, hung.isClosed())

	_, err = sc.Exchange(context.Background(), readTemperature)
	require.NoError(t, err)
	assert.Equal(t, 2, o.calls)
}

func TestSerialClientClose(t *testing.T) {
	port := newFakePort(temperatureResponder)
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), (&opener{ports: []*fakePort{port}}).open)

	_, err := sc.Exchange(context.Background(), readTemperature)
	require.NoError(t, err)

	require.NoError(t, sc.Close())
	require.NoError(t, sc.Close())
	assert.True(t, port.isClosed())

	_, err = sc.Exchange(context.Background(), readTemperature)
	assert.ErrorIs(t, err, modbusrturuntime.ErrSerialPortClosed)
}

func TestSerialClientSerializesExchanges(t *testing.T) {
	port := newFakePort(temperatureResponder)
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), (&opener{ports: []*fakePort{port}}).open)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			response, err := sc.Exchange(context.Background(), readTemperature)
			if err == nil && len(response) != 7 {
				err = errors.New("torn response")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, uint64(16), sc.Exchanges())
}

func TestSerialClientRejectsShortRequest(t *testing.T) {
	sc := NewSerialClient("/dev/ttyUSB0", modbusrturuntime.DefaultSerialProfile(), (&opener{err: errors.New("unused")}).open)
	_, err := sc.Exchange(context.Background(), []byte{0x01, 0x04})
	assert.ErrorIs(t, err, modbusrturuntime.ErrMalformedFrame)
}
