package modbusrtu

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"
	modbusrturuntime "serialserver/pkg/protocol/modbusrtu/runtime"
)

var ErrPortName = errors.New("serial port name required")

type Option func(*Manager)

func WithProfile(profile modbusrturuntime.SerialProfile) Option {
	return func(m *Manager) {
		m.profile = profile
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

func WithRetries(retries int) Option {
	return func(m *Manager) {
		m.retries = retries
	}
}

func WithOpenFunc(open OpenFunc) Option {
	return func(m *Manager) {
		m.open = open
	}
}

// Manager keeps one SerialClient per port name.
type Manager struct {
	mux      sync.Mutex
	clients  map[string]*SerialClient
	shutdown bool

	profile modbusrturuntime.SerialProfile
	timeout time.Duration
	retries int
	open    OpenFunc
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		clients: make(map[string]*SerialClient),
		profile: modbusrturuntime.DefaultSerialProfile(),
		timeout: DefaultTimeout,
		retries: DefaultRetries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Transport returns the client of port, creating it on first use. The port
// itself is opened lazily by the first exchange.
func (m *Manager) Transport(port string) (*SerialClient, error) {
	port = strings.TrimSpace(port)
	if len(port) == 0 {
		return nil, ErrPortName
	}

	m.mux.Lock()
	defer m.mux.Unlock()
	if m.shutdown {
		return nil, modbusrturuntime.ErrSerialPortClosed
	}
	if sc, ok := m.clients[port]; ok {
		return sc, nil
	}
	sc := NewSerialClient(port, m.profile, m.open)
	sc.Timeout = m.timeout
	sc.Retries = m.retries
	m.clients[port] = sc
	klog.V(3).InfoS("Serial client created", "port", port, "baudRate", m.profile.BaudRate)
	return sc, nil
}

func (m *Manager) Client(port string, address uint8) (*Client, error) {
	sc, err := m.Transport(port)
	if err != nil {
		return nil, err
	}
	return NewClient(sc, address), nil
}

// Ports lists the port names in use, sorted.
func (m *Manager) Ports() []string {
	m.mux.Lock()
	defer m.mux.Unlock()
	ports := make([]string, 0, len(m.clients))
	for port := range m.clients {
		ports = append(ports, port)
	}
	sort.Strings(ports)
	return ports
}

// Shutdown closes every client. Closing waits for a running exchange, which
// is bounded by the read timeout, or for ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mux.Lock()
	m.shutdown = true
	clients := make([]*SerialClient, 0, len(m.clients))
	for _, sc := range m.clients {
		clients = append(clients, sc)
	}
	m.clients = make(map[string]*SerialClient)
	m.mux.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, sc := range clients {
			if err := sc.Close(); err != nil {
				klog.V(2).InfoS("Failed to close serial client", "port", sc.Name, "err", err)
			}
		}
	}()
	select {
	case <-done:
		klog.V(3).InfoS("Serial clients closed", "count", len(clients))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
