package modbusrtu

import (
	"context"

	"go.bug.st/serial"
)

// Transport moves one request frame to the line and returns the raw answer.
// Implementations serialize exchanges; a half duplex line carries one
// conversation at a time. A broadcast request returns a nil response.
type Transport interface {
	Exchange(ctx context.Context, request []byte) ([]byte, error)
	Close() error
}

// OpenFunc opens a serial port. serial.Open satisfies it.
type OpenFunc func(name string, mode *serial.Mode) (serial.Port, error)
