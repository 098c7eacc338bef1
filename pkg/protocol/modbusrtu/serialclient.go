package modbusrtu

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"
	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
	"serialserver/pkg/utils/binutil"
)

const (
	DefaultTimeout = time.Second
	DefaultRetries = 3
)

// SerialClient owns one serial line. The port is opened on first use and
// reopened after a failure.
type SerialClient struct {
	Name    string
	Profile modbusrturuntime.SerialProfile
	Timeout time.Duration
	// Retries is the number of attempts for an exchange that fails on the
	// port itself. Bad answers are never retried.
	Retries int

	open      OpenFunc
	mux       sync.Mutex
	port      serial.Port
	closed    *atomic.Bool
	exchanges *atomic.Uint64
}

func NewSerialClient(name string, profile modbusrturuntime.SerialProfile, open OpenFunc) *SerialClient {
	if open == nil {
		open = serial.Open
	}
	return &SerialClient{
		Name:      name,
		Profile:   profile,
		Timeout:   DefaultTimeout,
		Retries:   DefaultRetries,
		open:      open,
		closed:    atomic.NewBool(false),
		exchanges: atomic.NewUint64(0),
	}
}

func (sc *SerialClient) Exchange(ctx context.Context, request []byte) ([]byte, error) {
	if len(request) < modbusrturuntime.MinFrameLength {
		return nil, errors.Wrapf(modbusrturuntime.ErrMalformedFrame, "request of %d bytes", len(request))
	}
	if sc.closed.Load() {
		return nil, modbusrturuntime.ErrSerialPortClosed
	}

	sc.mux.Lock()
	defer sc.mux.Unlock()

	retries := sc.Retries
	if retries < 1 {
		retries = 1
	}
	var lastErr error
	for i := 0; i < retries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sc.closed.Load() {
			return nil, modbusrturuntime.ErrSerialPortClosed
		}
		response, err := sc.askAtLeast(ctx, request)
		if err == nil {
			klog.V(5).InfoS("Succeed to exchange with serial port", "port", sc.Name, "request", request, "response", response, "exchanges", sc.exchanges.Inc())
			return response, nil
		}
		if !errors.Is(err, modbusrturuntime.ErrBadConn) {
			return nil, err
		}
		klog.V(2).InfoS("Serial port went bad, reopening", "port", sc.Name, "attempt", i+1, "err", err)
		sc.closePort()
		lastErr = err
	}
	return nil, errors.Wrapf(modbusrturuntime.ErrManyRetry, "port %s: %v", sc.Name, lastErr)
}

func (sc *SerialClient) askAtLeast(ctx context.Context, request []byte) ([]byte, error) {
	port, err := sc.ensurePort()
	if err != nil {
		return nil, err
	}

	release := sc.watch(ctx, port)
	defer func() {
		if release() {
			sc.port = nil
		}
	}()

	if err := port.ResetInputBuffer(); err != nil {
		klog.V(4).InfoS("Failed to discard stale input", "port", sc.Name, "err", err)
	}
	n, err := port.Write(request)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		klog.V(2).InfoS("Failed to write byte to serial port", "port", sc.Name, "err", err)
		return nil, errors.Wrap(modbusrturuntime.ErrBadConn, err.Error())
	}
	klog.V(5).InfoS("Succeed to write byte to serial port", "port", sc.Name, "bytes", request, "length", n)

	// nobody answers a broadcast
	if request[0] == modbusrturuntime.BroadcastAddress {
		return nil, nil
	}

	if err := port.SetReadTimeout(sc.Timeout); err != nil {
		klog.V(2).InfoS("Failed to set serial port read timeout", "port", sc.Name, "err", err)
		return nil, errors.Wrap(modbusrturuntime.ErrBadConn, err.Error())
	}

	expected := ExpectedResponseLength(request)
	buf := make([]byte, modbusrturuntime.MaxFrameLength)
	total := 0
	for total < len(buf) {
		n, err := port.Read(buf[total:])
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			klog.V(2).InfoS("Failed to read byte from serial port", "port", sc.Name, "err", err)
			return nil, errors.Wrap(modbusrturuntime.ErrBadConn, err.Error())
		}
		if n == 0 {
			break
		}
		total += n
		if total >= modbusrturuntime.ExceptionFrameLength && buf[1]&modbusrturuntime.ExceptionFlag != 0 {
			total = modbusrturuntime.ExceptionFrameLength
			break
		}
		if expected > 0 && total >= expected {
			break
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if total == 0 {
		return nil, errors.Wrapf(modbusrturuntime.ErrResponseTimeout, "no answer within %s", sc.Timeout)
	}
	isException := total >= 2 && buf[1]&modbusrturuntime.ExceptionFlag != 0
	if expected > 0 && total < expected && !isException {
		klog.V(2).InfoS("Modbus rtu data length not enough", "port", sc.Name, "bytesLength", total, "expected", expected)
		return nil, errors.Wrapf(modbusrturuntime.ErrResponseTimeout, "got %d of %d bytes", total, expected)
	}
	return binutil.Dup(buf[:total]), nil
}

// watch closes port when ctx ends so a blocked read returns. The returned
// func stops watching and reports whether the port was closed that way.
func (sc *SerialClient) watch(ctx context.Context, port serial.Port) func() bool {
	stop := make(chan struct{})
	exited := make(chan struct{})
	interrupted := atomic.NewBool(false)
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			interrupted.Store(true)
			klog.V(3).InfoS("Exchange cancelled, closing serial port", "port", sc.Name, "err", ctx.Err())
			_ = port.Close()
		case <-stop:
		}
	}()
	return func() bool {
		close(stop)
		<-exited
		return interrupted.Load()
	}
}

func (sc *SerialClient) ensurePort() (serial.Port, error) {
	if sc.port != nil {
		return sc.port, nil
	}
	port, err := sc.open(sc.Name, sc.Profile.Mode())
	if err != nil {
		klog.V(2).InfoS("Failed to connect serial port", "port", sc.Name, "err", err)
		return nil, errors.Wrapf(err, "open %s", sc.Name)
	}
	sc.port = port
	return port, nil
}

func (sc *SerialClient) closePort() {
	if sc.port == nil {
		return
	}
	if err := sc.port.Close(); err != nil {
		klog.V(4).InfoS("Failed to close serial port", "port", sc.Name, "err", err)
	}
	sc.port = nil
}

// Close releases the port. Later exchanges fail with ErrSerialPortClosed.
func (sc *SerialClient) Close() error {
	if !sc.closed.CAS(false, true) {
		return nil
	}
	sc.mux.Lock()
	defer sc.mux.Unlock()
	sc.closePort()
	return nil
}

// Exchanges is the number of successful exchanges so far.
func (sc *SerialClient) Exchanges() uint64 {
	return sc.exchanges.Load()
}
