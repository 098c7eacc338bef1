package device

import (
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"
	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
)

// Registry holds the devices known on the line, in insertion order. It lives
// in memory only.
type Registry struct {
	mux       sync.Mutex
	devices   []Device
	addresses sets.Set[uint8]
}

func NewRegistry() *Registry {
	return &Registry{addresses: sets.New[uint8]()}
}

// Create adds d and returns a snapshot of every device, d included. Checking
// the address and appending happen under one lock, so of two concurrent
// creates for the same address exactly one wins.
func (r *Registry) Create(d Device) ([]Device, error) {
	if r == nil {
		return nil, ErrNoState
	}

	r.mux.Lock()
	defer r.mux.Unlock()

	if d.Address < modbusrturuntime.MinDeviceAddress || d.Address > modbusrturuntime.MaxDeviceAddress {
		return nil, fmt.Errorf("%w: %d not in %d..%d", ErrAddressOutOfRange, d.Address, modbusrturuntime.MinDeviceAddress, modbusrturuntime.MaxDeviceAddress)
	}
	if !d.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDeviceType, d.Type)
	}
	if r.addresses.Has(d.Address) {
		return nil, fmt.Errorf("%w: %d", ErrAddressTaken, d.Address)
	}

	r.devices = append(r.devices, d)
	r.addresses.Insert(d.Address)
	return r.snapshot(), nil
}

func (r *Registry) List() ([]Device, error) {
	if r == nil {
		return nil, ErrNoState
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.snapshot(), nil
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	return len(r.devices)
}

func (r *Registry) snapshot() []Device {
	return append(make([]Device, 0, len(r.devices)), r.devices...)
}
