package trustedpeer

import (
	"fmt"
	"net"
	"sync"
)

// Manager owns the set of trusted-validator connections, keyed by remote
// IP address per spec §3.
type Manager struct {
	cfg *Config

	mu    sync.Mutex
	conns map[string]*Connection
}

// NewManager returns an empty Manager.
func NewManager(cfg *Config) *Manager {
	return &Manager{cfg: cfg, conns: make(map[string]*Connection)}
}

func hostOf(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("trustedpeer: invalid address %q: %w", addr, err)
	}
	return host, nil
}

// Add begins managing a dual connection to addr ("host:port"). It is an
// error to add an address already present and not marked for removal.
func (m *Manager) Add(addr string) error {
	host, err := hostOf(addr)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conns[host]; exists {
		return fmt.Errorf("trustedpeer: %s already tracked", host)
	}

	m.conns[host] = newConnection(addr, m.cfg, func() {
		m.mu.Lock()
		delete(m.conns, host)
		m.mu.Unlock()
	})
	return nil
}

// Remove permanently disconnects and forgets the validator at addr.
func (m *Manager) Remove(addr string) error {
	host, err := hostOf(addr)
	if err != nil {
		return err
	}

	m.mu.Lock()
	c, ok := m.conns[host]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("trustedpeer: %s not tracked", host)
	}

	c.disconnectPermanently()
	return nil
}

// ForceDisconnectAll force-closes every tracked connection's sessions and
// schedules their reconnects, without forgetting them. Used for the
// relay-peer header-drift resync (spec §4.6, scenario 6).
func (m *Manager) ForceDisconnectAll() {
	for _, c := range m.snapshot() {
		c.forceDisconnect()
	}
}

func (m *Manager) snapshot() []*Connection {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Connection, 0, len(m.conns))
	for _, c := range m.conns {
		out = append(out, c)
	}
	return out
}

// Status is a point-in-time snapshot of one trusted connection, for the
// TUI status panel.
type Status struct {
	Addr     string
	State    State
	Inbound  bool
	Outbound bool
}

// Statuses returns a Status for every tracked connection.
func (m *Manager) Statuses() []Status {
	conns := m.snapshot()
	out := make([]Status, 0, len(conns))
	for _, c := range conns {
		out = append(out, Status{
			Addr:     c.Addr(),
			State:    c.State(),
			Inbound:  c.inboundConnected,
			Outbound: c.outboundConnected,
		})
	}
	return out
}
